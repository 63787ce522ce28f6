package sessiontoken

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueVerify(t *testing.T) {
	t.Parallel()

	s := NewSigner([]byte("k"), time.Hour)
	now := time.Now()
	tok, exp, err := s.Issue("user-1", "admin", now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !exp.Equal(now.Add(time.Hour)) {
		t.Fatalf("exp=%v", exp)
	}
	c, err := s.Verify(tok, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if c.Subject != "user-1" || c.Role != "admin" {
		t.Fatalf("claims: %+v", c)
	}
}

func TestVerify_Rejects(t *testing.T) {
	t.Parallel()

	s := NewSigner([]byte("k"), time.Minute)
	now := time.Now()
	tok, _, _ := s.Issue("user-1", "lab", now)

	if _, err := s.Verify(tok, now.Add(2*time.Minute)); !errors.Is(err, ErrInvalid) {
		t.Fatalf("want ErrInvalid for expired token, got %v", err)
	}
	if _, err := NewSigner([]byte("other"), time.Minute).Verify(tok, now); !errors.Is(err, ErrInvalid) {
		t.Fatalf("want ErrInvalid for wrong key, got %v", err)
	}
	if _, err := s.Verify("garbage", now); !errors.Is(err, ErrInvalid) {
		t.Fatalf("want ErrInvalid for garbage")
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "user-1", ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))})
	raw, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := s.Verify(raw, now); !errors.Is(err, ErrInvalid) {
		t.Fatalf("want ErrInvalid for alg=none")
	}
}

func TestNewSigner_DefaultTTL(t *testing.T) {
	t.Parallel()

	s := NewSigner([]byte("k"), 0)
	if s.ttl != 24*time.Hour {
		t.Fatalf("ttl=%v", s.ttl)
	}
}
