package errs

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestRoleMismatchError(t *testing.T) {
	t.Parallel()

	var err error = &RoleMismatchError{Actual: "doctor", Requested: "patient"}
	if !errors.Is(err, ErrRoleMismatch) {
		t.Fatalf("want errors.Is(ErrRoleMismatch)")
	}
	if errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("must not match other sentinels")
	}
	if !strings.Contains(err.Error(), "registered as a doctor") {
		t.Fatalf("message must state the actual role: %q", err.Error())
	}

	wrapped := fmt.Errorf("login: %w", err)
	var rm *RoleMismatchError
	if !errors.As(wrapped, &rm) || rm.Actual != "doctor" {
		t.Fatalf("errors.As through wrap failed: %v", wrapped)
	}
}
