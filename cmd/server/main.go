package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/acca-builder/internal/api"
	"github.com/stitts-dev/acca-builder/internal/pool"
	"github.com/stitts-dev/acca-builder/internal/services"
	"github.com/stitts-dev/acca-builder/internal/websocket"
	"github.com/stitts-dev/acca-builder/pkg/config"
	"github.com/stitts-dev/acca-builder/pkg/database"
	"github.com/stitts-dev/acca-builder/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	log := logger.InitLogger("", cfg.IsDevelopment())
	logger.WithService(log, "acca-builder").WithFields(logrus.Fields{
		"env":         cfg.Env,
		"target_low":  cfg.TargetLow,
		"target_high": cfg.TargetHigh,
		"legs":        fmt.Sprintf("%d-%d", cfg.LegsMin, cfg.LegsMax),
	}).Info("Starting acca builder")

	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	deps := api.Dependencies{Config: cfg, Logger: log}

	var store services.SessionStore
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		redisClient := redis.NewClient(opt)
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()

		redisStore := services.NewRedisSessionStore(redisClient, cfg.SessionTTL, cfg.CacheBreakerThreshold, log)
		store = redisStore
		deps.Cache = redisStore
	} else {
		log.Warn("REDIS_URL not set, keeping ticket sessions in memory")
		store = services.NewMemorySessionStore(cfg.SessionTTL)
	}

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	hub := websocket.NewHub(log)
	go hub.Run(hubCtx)

	deps.Hub = hub
	deps.Tickets = services.NewTicketService(cfg, store, pool.NewGenerator(nil), hub, log)
	deps.Archive = services.NewArchiveService(db.DB, cfg.ArchiveCap, hub, log)

	pruner := services.NewArchivePruner(deps.Archive, cfg.ArchivePruneSchedule, log)
	if err := pruner.Start(); err != nil {
		log.Errorf("Failed to start archive pruner: %v", err)
	}
	defer pruner.Stop()

	router := api.NewRouter(deps)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CorsOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler(router)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      corsHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infof("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited")
}
