package storage

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

type Blob struct {
	Key       string
	Value     []byte
	UpdatedAt time.Time
}

const getBlob = `-- name: GetBlob :one
SELECT key, value, updated_at FROM blobs WHERE key = ?
`

func (q *Queries) GetBlob(ctx context.Context, key string) (Blob, error) {
	row := q.db.QueryRowContext(ctx, getBlob, key)
	var i Blob
	err := row.Scan(&i.Key, &i.Value, &i.UpdatedAt)
	return i, err
}

const upsertBlob = `-- name: UpsertBlob :exec
INSERT INTO blobs (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
`

type UpsertBlobParams struct {
	Key       string
	Value     []byte
	UpdatedAt time.Time
}

func (q *Queries) UpsertBlob(ctx context.Context, arg UpsertBlobParams) error {
	_, err := q.db.ExecContext(ctx, upsertBlob, arg.Key, arg.Value, arg.UpdatedAt)
	return err
}

const listBlobKeys = `-- name: ListBlobKeys :many
SELECT key, updated_at FROM blobs ORDER BY key
`

type ListBlobKeysRow struct {
	Key       string
	UpdatedAt time.Time
}

func (q *Queries) ListBlobKeys(ctx context.Context) ([]ListBlobKeysRow, error) {
	rows, err := q.db.QueryContext(ctx, listBlobKeys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListBlobKeysRow
	for rows.Next() {
		var i ListBlobKeysRow
		if err := rows.Scan(&i.Key, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
