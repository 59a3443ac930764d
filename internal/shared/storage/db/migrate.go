package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFiles embed.FS

// goose keeps dialect and base FS in package globals.
var gooseMu sync.Mutex

// MigrationsDir returns the embedded migrations directory for a dialect.
func MigrationsDir(dialect string) string {
	if dialect == DialectSQLite {
		return "migrations/sqlite"
	}
	return "migrations/postgres"
}

// RunMigrations applies embedded SQL migrations via goose. If database is nil, it's a no-op.
func RunMigrations(ctx context.Context, database *sql.DB, dialect string) error {
	if database == nil {
		return nil
	}
	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := configureGoose(dialect); err != nil {
		return err
	}
	return goose.UpContext(ctx, database, MigrationsDir(dialect))
}

// MigrateDown rolls back the most recent migration.
func MigrateDown(ctx context.Context, database *sql.DB, dialect string) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := configureGoose(dialect); err != nil {
		return err
	}
	return goose.DownContext(ctx, database, MigrationsDir(dialect))
}

// MigrationStatus logs applied and pending migrations through goose's logger.
func MigrationStatus(ctx context.Context, database *sql.DB, dialect string) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := configureGoose(dialect); err != nil {
		return err
	}
	return goose.StatusContext(ctx, database, MigrationsDir(dialect))
}

func configureGoose(dialect string) error {
	goose.SetBaseFS(migrationFiles)
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("goose dialect %q: %w", dialect, err)
	}
	return nil
}
