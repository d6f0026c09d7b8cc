package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
)

// sync_meta keys. The checkpoint is a server-defined cursor and is
// treated as an opaque string; no validation is performed locally.
const (
	metaCheckpoint = "checkpoint"
	metaLastSyncAt = "last_sync_at"
	metaDeviceID   = "device_id"
)

func (s *Store) getMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM sync_meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("sync meta key %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get sync meta: %w", err)
	}
	return value, nil
}

func (s *Store) setMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO sync_meta (key, value) VALUES (?, ?)`, key, value)
	if err != nil {
		return fmt.Errorf("set sync meta: %w", err)
	}
	return nil
}

// Checkpoint returns the stored pull cursor, or "" when no sync has
// completed yet.
func (s *Store) Checkpoint(ctx context.Context) (string, error) {
	v, err := s.getMeta(ctx, metaCheckpoint)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return v, err
}

// SetCheckpoint durably replaces the pull cursor.
func (s *Store) SetCheckpoint(ctx context.Context, checkpoint string) error {
	return s.setMeta(ctx, metaCheckpoint, checkpoint)
}

// LastSyncAt returns the Unix timestamp of the last successful sync,
// or nil when none has completed.
func (s *Store) LastSyncAt(ctx context.Context) (*int64, error) {
	v, err := s.getMeta(ctx, metaLastSyncAt)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ts, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse last_sync_at %q: %w", v, err)
	}
	return &ts, nil
}

// SetLastSyncAt records the Unix timestamp of a completed sync.
func (s *Store) SetLastSyncAt(ctx context.Context, ts int64) error {
	return s.setMeta(ctx, metaLastSyncAt, strconv.FormatInt(ts, 10))
}
