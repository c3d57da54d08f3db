package cache

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver (pure Go, no CGO required)
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// openIndex opens the SQLite index with WAL mode enabled and the schema
// migrated to the latest version.
//
// WAL (Write-Ahead Logging) mode gives concurrent readers with a single
// writer and crash recovery, which is exactly the single-session access
// pattern the cache serves.
func openIndex(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("cache: index path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cache: open index: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("cache: %s: %w", pragma, err)
		}
	}

	// SQLite handles concurrency best with a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// migrateUp applies pending schema migrations from the embedded sources.
// ErrNoChange is not an error condition.
func migrateUp(db *sql.DB) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("cache: load migrations: %w", err)
	}

	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("cache: migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "main", driver)
	if err != nil {
		return fmt.Errorf("cache: create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("cache: apply migrations: %w", err)
	}
	return nil
}

// corruption message fragments emitted by SQLite for a damaged index file.
var corruptionFragments = []string{
	"database disk image is malformed",
	"file is not a database",
	"file is encrypted or is not a database",
	"malformed database schema",
}

// isCorruption reports whether an error indicates structural index corruption
// (as opposed to a constraint violation or an I/O hiccup).
func isCorruption(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, frag := range corruptionFragments {
		if strings.Contains(msg, frag) {
			return true
		}
	}
	return false
}
