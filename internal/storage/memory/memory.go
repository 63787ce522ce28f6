// Package memory implements storage.KV in process memory.
package memory

import (
	"context"
	"sync"

	"github.com/and161185/medrec/internal/errs"
)

// Store is a map-backed KV. The zero value is not usable; call New.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte

	// FailSet, when non-nil, is returned by Set for keys it reports true for.
	FailSet func(key string) error
}

// New returns an empty store.
func New() *Store { return &Store{data: map[string][]byte{}} }

// Get returns a copy of the stored value.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set stores a copy of value.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	if s.FailSet != nil {
		if err := s.FailSet(key); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes key.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Keys lists stored keys in no particular order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.data))
	for k := range s.data {
		out = append(out, k)
	}
	return out
}
