package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"strings"

	_ "github.com/lib/pq"

	"github.com/fixora/tasktrail/internal/config"
	"github.com/fixora/tasktrail/internal/logger"
	"github.com/fixora/tasktrail/migrations"
)

func main() {
	mode := flag.String("mode", "up", "migration mode: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	appLogger := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		ServiceName: "tasktrail-migrate",
	})

	db, err := sql.Open("postgres", cfg.GetDatabaseURL())
	if err != nil {
		appLogger.Error(ctx, "Failed to open database", err, nil)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		appLogger.Error(ctx, "Failed to ping database", err, nil)
		os.Exit(1)
	}

	dir := migrations.Direction(strings.ToLower(*mode))
	if err := migrations.New(db, appLogger).Run(ctx, dir); err != nil {
		appLogger.Error(ctx, "Migration failed", err, map[string]interface{}{"mode": string(dir)})
		os.Exit(1)
	}
	appLogger.Info(ctx, "Migration completed successfully", map[string]interface{}{"mode": string(dir)})
}
