package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // register the "sqlite" database/sql driver
)

// Dialect names as understood by goose.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite3"
)

const sqliteScheme = "sqlite:"

var sqlitePragmas = []string{
	"PRAGMA foreign_keys = ON",
	"PRAGMA journal_mode = WAL",
	"PRAGMA busy_timeout = 10000",
	"PRAGMA synchronous = NORMAL",
}

// DialectFor picks the SQL dialect for a DATABASE_URL.
func DialectFor(databaseURL string) string {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(databaseURL)), sqliteScheme) {
		return DialectSQLite
	}
	return DialectPostgres
}

// SQLitePath strips the sqlite: scheme (and an optional //) from a DATABASE_URL.
func SQLitePath(databaseURL string) string {
	path := strings.TrimSpace(databaseURL)
	path = path[len(sqliteScheme):]
	path = strings.TrimPrefix(path, "//")
	if path == "" {
		return ":memory:"
	}
	return path
}

// openSQLite opens a single-connection SQLite pool with the pragmas applied.
// One connection keeps ":memory:" databases coherent and serializes writers.
func openSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("sqlite mkdir: %w", err)
			}
		}
	}

	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range sqlitePragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite %s: %w", pragma, err)
		}
	}
	return db, nil
}
