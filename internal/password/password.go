// Package password hashes and verifies credentials with bcrypt
// and validates the raw inputs before they reach the hasher.
package password

import (
	"errors"
	"fmt"
	netmail "net/mail"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is used when the configured cost is out of bcrypt's range.
const DefaultCost = bcrypt.DefaultCost

// maxBytes is bcrypt's input limit; longer passwords are rejected, not truncated.
const maxBytes = 72

// Hash returns a salted bcrypt hash of plain at the given cost.
func Hash(plain string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(h), nil
}

// Verify reports whether plain matches hash.
// A mismatch is (false, nil); a malformed hash is an error.
func Verify(plain, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("verifying password: %w", err)
}

// dummyHash is a live bcrypt hash computed once at first use.
// Verifying against it when a user doesn't exist keeps both login paths equally slow.
var dummyHash = sync.OnceValue(func() string {
	h, _ := bcrypt.GenerateFromPassword([]byte("dummy-password"), DefaultCost)
	return string(h)
})

// Equalize burns one bcrypt comparison so an unknown-user path costs the same as a real one.
func Equalize(plain string) {
	bcrypt.CompareHashAndPassword([]byte(dummyHash()), []byte(plain))
}

// ValidateEmail checks format and length constraints; returns error message or empty string.
// RFC 5321: min ~5 chars (a@b.c), max 254.
func ValidateEmail(email string) string {
	if email == "" {
		return "No email provided"
	}
	if len(email) < 5 {
		return "Email too short"
	}
	if len(email) > 254 {
		return "Email too long"
	}
	addr, err := netmail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "Invalid email format"
	}
	return ""
}

// ValidatePassword checks length and character constraints; returns error message or empty string.
// Min 8 runes (user-perceived), max 72 bytes (bcrypt input limit).
func ValidatePassword(plain string) string {
	if plain == "" {
		return "No password provided"
	}
	if utf8.RuneCountInString(plain) < 8 {
		return "Password must be at least 8 characters"
	}
	if len(plain) > maxBytes {
		return "Password must be at most 72 bytes"
	}
	for _, r := range plain {
		if unicode.IsControl(r) {
			return "Password contains invalid characters"
		}
	}
	return ""
}
