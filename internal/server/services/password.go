package services

import (
	"fmt"

	"github.com/dmitrijs2005/gophaccounts/internal/common"
	"golang.org/x/crypto/bcrypt"
)

// hashSecret hashes a login secret with bcrypt at the given cost. bcrypt
// generates a fresh salt per call.
func hashSecret(secret string, cost int) (string, error) {
	if secret == "" {
		return "", common.ErrorPasswordEmpty
	}
	if len(secret) > 72 {
		return "", common.ErrorPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", fmt.Errorf("hash secret: %w", err)
	}
	return string(hash), nil
}

// verifySecret reports whether secret matches hash. The comparison is
// constant-time.
func verifySecret(hash, secret string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

// needsRehash reports whether hash was produced with a bcrypt cost below
// cost. Unparseable hashes are left alone.
func needsRehash(hash string, cost int) bool {
	have, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return false
	}
	return have < cost
}
