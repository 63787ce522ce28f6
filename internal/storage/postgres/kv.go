package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/and161185/medrec/internal/errs"
	"github.com/jackc/pgx/v5"
)

// KV implements storage.KV over the kv_store table.
type KV struct{ db *DB }

// NewKV constructs a Postgres-backed KV.
func NewKV(db *DB) *KV { return &KV{db: db} }

// Get selects the JSON document stored under key.
func (r *KV) Get(ctx context.Context, key string) ([]byte, error) {
	const q = `SELECT value FROM kv_store WHERE key=$1`
	var v []byte
	if err := r.db.Pool.QueryRow(ctx, q, key).Scan(&v); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("kv get %s: %w", key, err)
	}
	return v, nil
}

// Set upserts the document under key.
func (r *KV) Set(ctx context.Context, key string, value []byte) error {
	const q = `
INSERT INTO kv_store (key, value, updated_at)
VALUES ($1, $2::jsonb, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
	if _, err := r.db.Pool.Exec(ctx, q, key, string(value)); err != nil {
		return fmt.Errorf("kv set %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (r *KV) Delete(ctx context.Context, key string) error {
	const q = `DELETE FROM kv_store WHERE key=$1`
	if _, err := r.db.Pool.Exec(ctx, q, key); err != nil {
		return fmt.Errorf("kv delete %s: %w", key, err)
	}
	return nil
}
