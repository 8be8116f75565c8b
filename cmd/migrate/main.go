package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/move-league/move-league-backend/internal/config"
	"github.com/move-league/move-league-backend/internal/repository"
	"github.com/move-league/move-league-backend/pkg/database"
	"github.com/move-league/move-league-backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set in environment")
	}

	logger.Init(cfg.Env, cfg.LogLevel)
	defer logger.Sync()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := repository.Migrate(ctx, db); err != nil {
		logger.Fatal("Failed to apply schema", "error", err)
	}

	// Verify the tables exist.
	rows, err := db.QueryContext(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = current_schema()
		ORDER BY table_name`)
	if err != nil {
		logger.Fatal("Failed to list tables", "error", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			logger.Fatal("Failed to scan table name", "error", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		logger.Fatal("Failed to read tables", "error", err)
	}

	logger.Info("Schema applied", "tables", fmt.Sprint(tables))
}
