// Package store is the SQLite-backed local store shared by the CRUD
// layer and the sync engine. All multi-table steps run inside explicit
// transactions so a concurrent reader never observes a row with
// inconsistent sync bookkeeping.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/hyperengineering/studysync/migrations"
	"github.com/pressly/goose/v3"
)

// Store wraps the local SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the local database at dbPath,
// enables WAL mode and foreign keys, and applies pending migrations.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := enablePragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable pragmas: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func enablePragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	return nil
}

// runMigrations applies all pending migrations using goose and the
// embedded SQL files.
func runMigrations(db *sql.DB) error {
	goose.SetLogger(goose.NopLogger())
	goose.SetBaseFS(migrations.FS)

	if err := goose.SetDialect("sqlite"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// BeginTx starts a database transaction.
func (s *Store) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, nil)
}

// DeviceID returns this installation's stable identifier, generating
// and persisting one on first use.
func (s *Store) DeviceID(ctx context.Context) (string, error) {
	id, err := s.getMeta(ctx, metaDeviceID)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", err
	}

	id = ulid.Make().String()
	if err := s.setMeta(ctx, metaDeviceID, id); err != nil {
		return "", err
	}
	return id, nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// nullable converts an empty string to NULL for optional TEXT columns.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
