// Package hasher turns plaintext passwords into the digests stored in the user directory.
package hasher

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	SHA256 = "sha256"
	Bcrypt = "bcrypt"
)

// Hasher produces and checks password digests.
type Hasher interface {
	// Hash returns the digest to store for plaintext.
	Hash(plaintext string) (string, error)
	// Verify reports whether plaintext matches a stored digest.
	Verify(plaintext, digest string) bool
}

// New returns the Hasher registered under name.
func New(name string) (Hasher, error) {
	switch strings.ToLower(name) {
	case "", SHA256:
		return LegacySHA256{}, nil
	case Bcrypt:
		return BcryptHasher{Cost: bcrypt.DefaultCost}, nil
	default:
		return nil, fmt.Errorf("unknown password hasher %q", name)
	}
}

// LegacySHA256 is the unsalted, single-round SHA-256 hex digest existing user records were written with.
type LegacySHA256 struct{}

// Sum returns the lowercase hex SHA-256 of plaintext. It is deterministic.
func (LegacySHA256) Sum(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

func (h LegacySHA256) Hash(plaintext string) (string, error) {
	return h.Sum(plaintext), nil
}

func (h LegacySHA256) Verify(plaintext, digest string) bool {
	return subtle.ConstantTimeCompare([]byte(h.Sum(plaintext)), []byte(digest)) == 1
}

// BcryptHasher writes salted bcrypt digests and still accepts legacy SHA-256 digests, so records can be
// migrated one registration at a time.
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(plaintext string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	if err != nil {
		return "", fmt.Errorf("error hashing password: %w", err)
	}
	return string(digest), nil
}

func (h BcryptHasher) Verify(plaintext, digest string) bool {
	if isBcrypt(digest) {
		return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
	}
	return LegacySHA256{}.Verify(plaintext, digest)
}

func isBcrypt(digest string) bool {
	return strings.HasPrefix(digest, "$2a$") || strings.HasPrefix(digest, "$2b$") || strings.HasPrefix(digest, "$2y$")
}
