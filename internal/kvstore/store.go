// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package kvstore is the durable local key/value store. Values are JSON
// documents in a single SQLite table; every write bumps a per-key version and
// records which Store instance wrote it, so other processes sharing the file
// can detect changes by polling Stamp.
package kvstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Keys used by the application.
const (
	KeySearchHistory   = "search_history"
	KeyAnalyticsData   = "analytics_data"
	KeyQueryHistory    = "ml_query_history"
	KeyUserPreferences = "ml_user_preferences"
	KeySessionHistory  = "session_history"
)

// ErrNotFound is returned by Get when the key has never been written.
var ErrNotFound = errors.New("key not found")

// Stamp identifies the last write to a key. The zero Stamp means the key is absent.
type Stamp struct {
	Version   int64
	Writer    string
	UpdatedAt time.Time
}

// Store is a SQLite-backed key/value store. It is safe for concurrent use.
type Store struct {
	db     *sql.DB
	writer string
}

// Open opens or creates the database at path and applies pending migrations.
// Parent directories are created as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := newMigrationRunner(db).Run(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating %s: %w", path, err)
	}

	return &Store{db: db, writer: uuid.NewString()}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// WriterID identifies this Store instance in Stamps.
func (s *Store) WriterID() string { return s.writer }

// Get decodes the value stored under key into dst.
func (s *Store) Get(ctx context.Context, key string, dst any) error {
	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("decoding %s: %w", key, err)
	}
	return nil
}

// Put stores v under key.
func (s *Store) Put(ctx context.Context, key string, v any) error {
	return s.PutAll(ctx, map[string]any{key: v})
}

// PutAll stores every entry in one transaction: either all keys are updated
// or none are.
func (s *Store) PutAll(ctx context.Context, entries map[string]any) error {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	encoded := make([]string, len(keys))
	for i, k := range keys {
		data, err := json.Marshal(entries[k])
		if err != nil {
			return fmt.Errorf("encoding %s: %w", k, err)
		}
		encoded[i] = string(data)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for i, k := range keys {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO kv (key, value, version, writer, updated_at) VALUES (?, ?, 1, ?, ?)
			ON CONFLICT(key) DO UPDATE SET
				value = excluded.value,
				version = kv.version + 1,
				writer = excluded.writer,
				updated_at = excluded.updated_at`,
			k, encoded[i], s.writer, now,
		); err != nil {
			return fmt.Errorf("writing %s: %w", k, err)
		}
	}
	return tx.Commit()
}

// Stamp returns the last-write stamp of key, or the zero Stamp when absent.
func (s *Store) Stamp(ctx context.Context, key string) (Stamp, error) {
	var st Stamp
	var updated string
	err := s.db.QueryRowContext(ctx,
		"SELECT version, writer, updated_at FROM kv WHERE key = ?", key,
	).Scan(&st.Version, &st.Writer, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Stamp{}, nil
	}
	if err != nil {
		return Stamp{}, fmt.Errorf("reading stamp of %s: %w", key, err)
	}
	st.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return st, nil
}

// Delete removes keys. Missing keys are ignored.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, k := range keys {
		if _, err := tx.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", k); err != nil {
			return fmt.Errorf("deleting %s: %w", k, err)
		}
	}
	return tx.Commit()
}
