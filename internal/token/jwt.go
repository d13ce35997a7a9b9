// Package token issues and verifies HS256 access tokens.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalid is returned for any token that fails parsing, signature or expiry checks.
var ErrInvalid = errors.New("invalid token")

// iat and exp carry microseconds. Revocation cutoffs are compared against iat,
// and whole seconds would put a token minted right after a revocation under it.
func init() {
	jwt.TimePrecision = time.Microsecond
}

// Claims is the access-token payload: {sub, email, role, sid, iat, exp}.
type Claims struct {
	Email     string `json:"email"`
	Role      string `json:"role"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *Claims) UserID() (uuid.UUID, error) {
	id, err := uuid.FromString(c.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad subject", ErrInvalid)
	}
	return id, nil
}

// IssuedAtTime returns the iat claim, or nil when the token carries none.
// iat has whole-second precision (JWT NumericDate).
func (c *Claims) IssuedAtTime() *time.Time {
	if c.IssuedAt == nil {
		return nil
	}
	t := c.IssuedAt.Time
	return &t
}

// Signer signs and verifies tokens with a shared HMAC secret.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner returns a Signer issuing tokens valid for ttl.
func NewSigner(secret string, ttl time.Duration) *Signer {
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL returns the configured access-token lifetime.
func (s *Signer) TTL() time.Duration { return s.ttl }

// Sign issues a token for the user with iat = now and exp = now + ttl.
// Returns the signed string and the claims it carries.
func (s *Signer) Sign(userID uuid.UUID, email, role, sessionID string) (string, *Claims, error) {
	now := s.now()
	c := &Claims{
		Email:     email,
		Role:      role,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("signing token: %w", err)
	}
	return signed, c, nil
}

// Verify checks signature, algorithm and expiry and returns the claims.
func (s *Signer) Verify(tokenStr string) (*Claims, error) {
	var c Claims
	_, err := jwt.ParseWithClaims(tokenStr, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return &c, nil
}

// Decode parses the payload without checking the signature or expiry.
// Used only to recover exp for blacklisting; never for authentication.
func (s *Signer) Decode(tokenStr string) (*Claims, error) {
	var c Claims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return &c, nil
}
