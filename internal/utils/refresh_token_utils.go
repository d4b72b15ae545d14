package utils

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HashRefreshToken generates a SHA256 hash of a refresh token.
// Refresh tokens are signed JWTs well beyond bcrypt's 72-byte input limit, and they
// already carry full entropy, so a fast digest is sufficient.
func HashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// CompareRefreshTokenHash compares a plain refresh token with its stored SHA256 hash
// in constant time. A nil or empty stored hash never matches.
func CompareRefreshTokenHash(token string, storedHash *string) bool {
	if storedHash == nil || *storedHash == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(HashRefreshToken(token)), []byte(*storedHash)) == 1
}
