// Package repository maps the typed identity tables onto a storage.KV.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/and161185/medrec/internal/errs"
	"github.com/and161185/medrec/internal/storage"
)

// Table is a JSON object of V values stored under one key. Every Load returns the
// whole table and every Save replaces it.
type Table[V any] struct {
	kv  storage.KV
	key string
}

// NewTable binds a table to key.
func NewTable[V any](kv storage.KV, key string) *Table[V] {
	return &Table[V]{kv: kv, key: key}
}

// Key returns the storage key.
func (t *Table[V]) Key() string { return t.key }

// Load reads the table; a missing key yields an empty map.
func (t *Table[V]) Load(ctx context.Context) (map[string]V, error) {
	b, err := t.kv.Get(ctx, t.key)
	if errors.Is(err, errs.ErrNotFound) {
		return map[string]V{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", t.key, err)
	}
	out := map[string]V{}
	if len(b) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", t.key, err)
	}
	return out, nil
}

// Save writes the whole table.
func (t *Table[V]) Save(ctx context.Context, rows map[string]V) error {
	if rows == nil {
		rows = map[string]V{}
	}
	b, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encode %s: %w", t.key, err)
	}
	if err := t.kv.Set(ctx, t.key, b); err != nil {
		return fmt.Errorf("save %s: %w", t.key, err)
	}
	return nil
}

// Doc is a single optional JSON value stored under one key.
type Doc[V any] struct {
	kv  storage.KV
	key string
}

// NewDoc binds a document to key.
func NewDoc[V any](kv storage.KV, key string) *Doc[V] {
	return &Doc[V]{kv: kv, key: key}
}

// Load returns the value, or nil when absent.
func (d *Doc[V]) Load(ctx context.Context) (*V, error) {
	b, err := d.kv.Get(ctx, d.key)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", d.key, err)
	}
	var v V
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", d.key, err)
	}
	return &v, nil
}

// Save writes v.
func (d *Doc[V]) Save(ctx context.Context, v V) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", d.key, err)
	}
	if err := d.kv.Set(ctx, d.key, b); err != nil {
		return fmt.Errorf("save %s: %w", d.key, err)
	}
	return nil
}

// Clear removes the value.
func (d *Doc[V]) Clear(ctx context.Context) error {
	if err := d.kv.Delete(ctx, d.key); err != nil {
		return fmt.Errorf("clear %s: %w", d.key, err)
	}
	return nil
}
