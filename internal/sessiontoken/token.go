// Package sessiontoken signs and verifies the persisted session pointer.
package sessiontoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalid is returned for tokens that fail signature, expiry or claim checks.
var ErrInvalid = errors.New("invalid session token")

// Claims binds a session to a user id and role.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Signer issues HS256 session tokens.
type Signer struct {
	key []byte
	ttl time.Duration
}

// NewSigner constructs a Signer; ttl <= 0 means 24h.
func NewSigner(key []byte, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Signer{key: key, ttl: ttl}
}

// Issue creates a signed token for userID valid from now.
func (s *Signer) Issue(userID, role string, now time.Time) (string, time.Time, error) {
	exp := now.Add(s.ttl)
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.key)
	return signed, exp, err
}

// Verify checks the token at time now and returns its claims.
func (s *Signer) Verify(token string, now time.Time) (*Claims, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.key, nil
	}, jwt.WithTimeFunc(func() time.Time { return now }), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalid
	}
	return &claims, nil
}
