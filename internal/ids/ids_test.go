package ids

import (
	"strings"
	"testing"
)

func TestNewUserID_UniqueAndPrefixed(t *testing.T) {
	t.Parallel()

	seen := map[string]struct{}{}
	for i := 0; i < 1000; i++ {
		id := NewUserID()
		if !strings.HasPrefix(id, "user-") {
			t.Fatalf("missing prefix: %q", id)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = struct{}{}
	}
}

func TestNewToken(t *testing.T) {
	t.Parallel()

	a, err := NewToken()
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}
	b, _ := NewToken()
	if a == "" || a == b {
		t.Fatalf("tokens must be non-empty and distinct: %q %q", a, b)
	}
}

func TestRecordIDs_UniqueInBurst(t *testing.T) {
	t.Parallel()

	g, err := NewRecordIDs(1)
	if err != nil {
		t.Fatalf("NewRecordIDs: %v", err)
	}
	seen := map[string]struct{}{}
	for i := 0; i < 5000; i++ {
		id := g.Next()
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate record id %q at %d", id, i)
		}
		seen[id] = struct{}{}
	}
}

func TestNewRecordIDs_BadNode(t *testing.T) {
	t.Parallel()

	if _, err := NewRecordIDs(-1); err == nil {
		t.Fatalf("want error for negative node")
	}
	if _, err := NewRecordIDs(4096); err == nil {
		t.Fatalf("want error for node out of range")
	}
}
