package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

const (
	// refreshSecretBytes is the entropy of the long-lived refresh secret.
	refreshSecretBytes = 48
	// csrfSecretBytes is the entropy of the per-session CSRF secret.
	csrfSecretBytes = 32
)

// NewSecret generates a cryptographically random, URL-safe secret of n bytes
// of entropy. The raw value is handed to the caller exactly once; only its
// hash may be persisted.
func NewSecret(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashSecret computes the one-way hash under which a secret is stored.
// Validation is always "hash the presented secret and compare".
func HashSecret(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// HashEquals compares two secret hashes in constant time.
func HashEquals(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
