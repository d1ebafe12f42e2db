package common

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"

	"github.com/hashicorp/go-secure-stdlib/base62"
)

// NewTokenKey returns an opaque api key: the hex SHA-256 digest of
// TokenEntropyBytes random bytes, always 64 characters long.
func NewTokenKey() (string, error) {
	b := make([]byte, TokenEntropyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	defer WipeByteArray(b)

	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// NewUID returns a random alphanumeric public identifier of UIDLength chars.
func NewUID() (string, error) {
	return base62.Random(UIDLength)
}

// WipeByteArray zeroes b. A nil slice is a no-op.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
