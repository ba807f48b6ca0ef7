package main

import (
	"database/sql"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/acca-builder/pkg/config"
	"github.com/stitts-dev/acca-builder/pkg/database"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: migrate [create-db|up|down]")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	command := os.Args[1]

	if command == "create-db" {
		created, err := createDatabase(cfg.DatabaseURL)
		if err != nil {
			logrus.Fatalf("Failed to create database: %v", err)
		}
		if created {
			logrus.Info("Database created successfully")
		} else {
			logrus.Info("Database already exists")
		}
		return
	}

	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	switch command {
	case "up":
		if err := db.Migrate(); err != nil {
			logrus.Fatalf("Failed to run migrations: %v", err)
		}
		logrus.Info("Migrations completed successfully")

	case "down":
		if err := db.Rollback(); err != nil {
			logrus.Fatalf("Failed to drop tables: %v", err)
		}
		logrus.Info("Tables dropped successfully")

	default:
		log.Fatalf("Unknown command: %s", command)
	}
}

// createDatabase connects to the server's maintenance database and creates
// the database named in databaseURL when it is missing.
func createDatabase(databaseURL string) (bool, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return false, fmt.Errorf("invalid DATABASE_URL: %w", err)
	}
	name := strings.TrimPrefix(u.Path, "/")
	if name == "" {
		return false, fmt.Errorf("DATABASE_URL has no database name")
	}

	admin := *u
	admin.Path = "/postgres"

	conn, err := sql.Open("postgres", admin.String())
	if err != nil {
		return false, fmt.Errorf("failed to open maintenance connection: %w", err)
	}
	defer conn.Close()

	var exists bool
	if err := conn.QueryRow("SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", name).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check database: %w", err)
	}
	if exists {
		return false, nil
	}

	if _, err := conn.Exec("CREATE DATABASE " + pq.QuoteIdentifier(name)); err != nil {
		return false, fmt.Errorf("failed to create database %s: %w", name, err)
	}
	return true, nil
}
