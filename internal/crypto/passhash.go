// Package crypto implements password hashing and verification for stored credentials.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"

	"golang.org/x/crypto/argon2"
)

// Hasher holds Argon2id parameters.
type Hasher struct {
	Time    uint32 // iterations
	Memory  uint32 // KiB
	Threads uint8
	KeyLen  uint32
	SaltLen int
}

// DefaultHasher returns parameters tuned for interactive logins.
func DefaultHasher() Hasher {
	return Hasher{Time: 3, Memory: 64 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16}
}

// RandBytes returns n cryptographically secure random bytes.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// Hash derives a hash of password under a fresh random salt.
func (h Hasher) Hash(password string) (hash, salt []byte, err error) {
	salt, err = RandBytes(h.SaltLen)
	if err != nil {
		return nil, nil, err
	}
	return h.HashWithSalt([]byte(password), salt), salt, nil
}

// HashWithSalt returns the Argon2id hash of password using salt.
func (h Hasher) HashWithSalt(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, h.Time, h.Memory, h.Threads, h.KeyLen)
}

// Verify reports whether password hashes to expected under salt.
func (h Hasher) Verify(password string, salt, expected []byte) bool {
	if len(expected) == 0 {
		return false
	}
	got := h.HashWithSalt([]byte(password), salt)
	return subtle.ConstantTimeCompare(got, expected) == 1
}
