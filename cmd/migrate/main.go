package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/subdesk/subdesk/internal/config"
	"github.com/subdesk/subdesk/internal/logger"
	"github.com/subdesk/subdesk/internal/migration"
	"github.com/subdesk/subdesk/internal/postgres"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "List pending migrations without applying them")
	flag.Parse()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logger.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	logger.Infow("Connecting to database", "host", cfg.Postgres.Host)
	db, err := postgres.NewDB(cfg, logger)
	if err != nil {
		logger.Fatalw("Failed to connect to postgres", "error", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	runner := migration.NewRunner(db.DB, logger)

	if *dryRun {
		pending, err := runner.Pending(ctx)
		if err != nil {
			logger.Fatalw("Failed to read migration state", "error", err)
		}
		for _, m := range pending {
			fmt.Printf("%04d_%s\n", m.Version, m.Name)
		}
		fmt.Printf("%d pending migrations\n", len(pending))
		return
	}

	applied, err := runner.Up(ctx)
	if err != nil {
		logger.Fatalw("Failed to apply migrations", "error", err)
	}
	logger.Infow("Migration completed successfully", "applied", applied)
}
