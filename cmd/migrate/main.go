package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun/migrate"
	"github.com/voice2post/voice2post/internal/config"
	"github.com/voice2post/voice2post/internal/db"
	"github.com/voice2post/voice2post/internal/logger"
	"github.com/voice2post/voice2post/migrations"
)

func main() {
	cfg := config.Load()
	logger.Configure(cfg.LogLevel, "console")

	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is required")
	}

	bunDB := db.NewBunPostgresClient(cfg.DatabaseURL)
	defer bunDB.Close()

	migrator := migrate.NewMigrator(bunDB, migrations.Migrations)

	ctx := context.Background()

	if err := migrator.Init(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize migrator")
	}

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "up":
		if err := migrator.Lock(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to acquire migration lock")
		}
		defer migrator.Unlock(ctx) //nolint:errcheck

		group, err := migrator.Migrate(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("migration failed")
		}
		if group.IsZero() {
			fmt.Println("No new migrations to run (database is up to date)")
			return
		}
		fmt.Printf("Migrated to %s\n", group)

	case "down":
		group, err := migrator.Rollback(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("rollback failed")
		}
		if group.IsZero() {
			fmt.Println("No migrations to rollback")
			return
		}
		fmt.Printf("Rolled back %s\n", group)

	case "status":
		ms, err := migrator.MigrationsWithStatus(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to get migration status")
		}
		fmt.Printf("Migrations:\n")
		for _, m := range ms {
			status := "pending"
			if m.IsApplied() {
				status = "applied"
			}
			fmt.Printf("  %s: %s\n", m.Name, status)
		}

	case "create":
		name := "migration"
		if len(os.Args) > 2 {
			name = strings.Join(os.Args[2:], "_")
		}
		files, err := migrator.CreateTxSQLMigrations(ctx, name)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create migration")
		}
		for _, f := range files {
			fmt.Printf("Created migration: %s\n", f.Path)
		}

	case "reset-usage":
		// Meant for a daily scheduler. Rows already reset by the lazy
		// per-request rollover are left untouched.
		if _, err := bunDB.ExecContext(ctx, "SELECT reset_daily_usage()"); err != nil {
			log.Fatal().Err(err).Msg("reset_daily_usage failed")
		}
		fmt.Println("Daily usage reset")

	default:
		fmt.Println("Usage: migrate [up|down|status|create <name>|reset-usage]")
		fmt.Println("  up          - Run all pending migrations")
		fmt.Println("  down        - Rollback the last migration group")
		fmt.Println("  status      - Show migration status")
		fmt.Println("  create      - Create new migration files")
		fmt.Println("  reset-usage - Zero every stale daily usage counter")
		os.Exit(1)
	}
}
