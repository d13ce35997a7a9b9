// refresh.go

// Opaque refresh-token generation.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// GenerateRefreshToken returns a 256-bit random refresh token and its SHA-256 hex digest.
// The token goes to the client; only the digest is stored on the user row.
func GenerateRefreshToken() (string, string, error) {
	var raw [32]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", "", fmt.Errorf("generating refresh token with rand: %w", err)
	}
	tok := base64.RawURLEncoding.EncodeToString(raw[:])
	return tok, HashRefreshToken(tok), nil
}

// HashRefreshToken is the storage form of a refresh token.
func HashRefreshToken(tok string) string {
	sum := sha256.Sum256([]byte(tok))
	return hex.EncodeToString(sum[:])
}
