package main

// Run database migrations:
//   go run ./cmd/migrate [up|down|status]

import (
	"context"
	"os"

	"pdfvault-backend/internal/shared/config"
	"pdfvault-backend/internal/shared/storage/db"
	"pdfvault-backend/internal/shared/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		telemetry.Error("config.load.failed", map[string]any{"error": err})
		os.Exit(1)
	}
	ctx := context.Background()

	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		telemetry.Error("migrate.connect.failed", map[string]any{"error": err})
		os.Exit(1)
	}
	defer sqlDB.Close()

	dialect := db.DialectFor(cfg.DatabaseURL)
	switch command {
	case "up":
		err = db.RunMigrations(ctx, sqlDB, dialect)
	case "down":
		err = db.MigrateDown(ctx, sqlDB, dialect)
	case "status":
		err = db.MigrationStatus(ctx, sqlDB, dialect)
	default:
		telemetry.Error("migrate.unknown_command", map[string]any{"command": command})
		sqlDB.Close()
		os.Exit(2)
	}
	if err != nil {
		telemetry.Error("migrate.failed", map[string]any{"command": command, "dialect": dialect, "error": err})
		sqlDB.Close()
		os.Exit(1)
	}
	telemetry.Info("migrate.done", map[string]any{"command": command, "dialect": dialect})
}
