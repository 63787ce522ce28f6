// Package limiter defines interfaces and implementations for login rate limiting.
package limiter

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Limiter controls login attempts and temporary lockouts per account email.
type Limiter interface {
	// Allow reports whether login is currently allowed and optional retry-after.
	Allow(ctx context.Context, email string) (bool, time.Duration, error)
	// Success resets counters after a successful login.
	Success(ctx context.Context, email string) error
	// Failure records a failed attempt; may place a temporary block.
	Failure(ctx context.Context, email string) (bool, time.Duration, error)
}

// Key normalises an email for use as a limiter key.
func Key(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

type entry struct {
	fails        int
	updatedAt    time.Time
	blockedUntil time.Time
}

// Memory is an in-process limiter with sliding window and lockout.
// maxFails <= 0 disables limiting.
type Memory struct {
	mu       sync.Mutex
	window   time.Duration
	maxFails int
	blockFor time.Duration
	now      func() time.Time
	entries  map[string]*entry
}

// NewMemory constructs an in-memory limiter.
func NewMemory(window time.Duration, maxFails int, blockFor time.Duration) *Memory {
	return &Memory{
		window:   window,
		maxFails: maxFails,
		blockFor: blockFor,
		now:      time.Now,
		entries:  map[string]*entry{},
	}
}

// WithClock replaces the time source.
func (l *Memory) WithClock(now func() time.Time) *Memory {
	l.now = now
	return l
}

// Allow reports whether the email is currently unblocked.
func (l *Memory) Allow(_ context.Context, email string) (bool, time.Duration, error) {
	if l.maxFails <= 0 {
		return true, 0, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[Key(email)]
	if !ok {
		return true, 0, nil
	}
	if now := l.now(); e.blockedUntil.After(now) {
		return false, e.blockedUntil.Sub(now), nil
	}
	return true, 0, nil
}

// Success forgets the email's failures.
func (l *Memory) Success(_ context.Context, email string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, Key(email))
	return nil
}

// Failure counts a failed attempt and blocks at the threshold.
func (l *Memory) Failure(_ context.Context, email string) (bool, time.Duration, error) {
	if l.maxFails <= 0 {
		return false, 0, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	k := Key(email)
	e, ok := l.entries[k]
	if !ok || now.Sub(e.updatedAt) > l.window {
		e = &entry{}
		l.entries[k] = e
	}
	e.fails++
	e.updatedAt = now
	if e.fails >= l.maxFails {
		e.blockedUntil = now.Add(l.blockFor)
		return true, l.blockFor, nil
	}
	return false, 0, nil
}
