// Package storage persists the agent's local cache in a SQLite file.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteKV stores opaque blobs by key. It satisfies cache.KV.
type SQLiteKV struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

func NewSQLiteKV(dbPath string) (*SQLiteKV, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// a single writer keeps read-modify-write of the pending queue serial
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteKV{db: db, queries: New(db), now: time.Now}, nil
}

func (s *SQLiteKV) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.queries.GetBlob(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get blob %s: %w", key, err)
	}
	return b.Value, true, nil
}

func (s *SQLiteKV) Set(ctx context.Context, key string, value []byte) error {
	err := s.queries.UpsertBlob(ctx, UpsertBlobParams{
		Key:       key,
		Value:     value,
		UpdatedAt: s.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("set blob %s: %w", key, err)
	}
	slog.DebugContext(ctx, "Blob stored", "key", key, "bytes", len(value))
	return nil
}

// Updated returns when each stored key was last written.
func (s *SQLiteKV) Updated(ctx context.Context) (map[string]time.Time, error) {
	rows, err := s.queries.ListBlobKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list blob keys: %w", err)
	}
	out := make(map[string]time.Time, len(rows))
	for _, r := range rows {
		out[r.Key] = r.UpdatedAt
	}
	return out, nil
}
