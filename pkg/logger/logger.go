package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var Logger *logrus.Logger

// InitLogger initializes the structured logger with proper configuration
func InitLogger(logLevel string, isDevelopment bool) *logrus.Logger {
	log := logrus.New()

	// Environment wins over the caller's default
	if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
		logLevel = envLevel
	}
	if logLevel == "" {
		if isDevelopment {
			logLevel = "debug"
		} else {
			logLevel = "info"
		}
	}

	if level, err := logrus.ParseLevel(strings.ToLower(logLevel)); err == nil {
		log.SetLevel(level)
	} else {
		log.SetLevel(logrus.InfoLevel)
		log.WithField("invalid_level", logLevel).Warn("Invalid LOG_LEVEL, using INFO")
	}

	format := strings.ToLower(os.Getenv("LOG_FORMAT"))
	if format == "json" || (!isDevelopment && format != "text") {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	log.SetOutput(os.Stdout)

	Logger = log

	return log
}

// GetLogger returns the global logger instance
func GetLogger() *logrus.Logger {
	if Logger == nil {
		return InitLogger("info", false)
	}
	return Logger
}

func base(log *logrus.Logger) *logrus.Logger {
	if log == nil {
		return GetLogger()
	}
	return log
}

// WithService creates a logger with service context. A nil log uses the
// global logger.
func WithService(log *logrus.Logger, serviceName string) *logrus.Entry {
	return base(log).WithField("service", serviceName)
}

// WithTicketContext creates a logger scoped to one ticket session
func WithTicketContext(log *logrus.Logger, sessionID string, legs int) *logrus.Entry {
	return base(log).WithFields(logrus.Fields{
		"session_id": sessionID,
		"legs":       legs,
	})
}

// WithRequestContext creates a logger with request context
func WithRequestContext(log *logrus.Logger, requestID, sessionID string) *logrus.Entry {
	fields := logrus.Fields{"request_id": requestID}
	if sessionID != "" {
		fields["session_id"] = sessionID
	}
	return base(log).WithFields(fields)
}
