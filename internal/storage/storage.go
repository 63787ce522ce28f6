// Package storage defines the key-value persistence port the identity store is built on.
package storage

import "context"

// KV is a name-addressable store of opaque values.
type KV interface {
	// Get returns the value stored under key or errs.ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set replaces the value stored under key.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key; deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
