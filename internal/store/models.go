// models.go -- Shared domain types for the store package.
// Used by both Postgres (durable store) and Redis (cache layer).
package store

import (
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
)

// ErrNotFound is returned when a lookup or targeted update matches no row.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert or update violates a unique constraint.
// Wrapped with the constraint name; callers use errors.Is.
var ErrDuplicate = errors.New("duplicate")

// ErrCacheMiss is returned by RedisStore reads when the key is absent.
// Callers use errors.Is to distinguish a true miss from a Redis infrastructure failure.
var ErrCacheMiss = errors.New("cache miss")

// Role is the privilege level stored in users.role.
type Role string

const (
	RoleUser       Role = "USER"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// User represents a row in the users table.
// Nullable columns are pointers, nil means SQL NULL.
// PasswordHash and RefreshToken never leave the process (json:"-").
type User struct {
	ID              uuid.UUID `db:"id" json:"id"`
	Email           string    `db:"email" json:"email"`
	FirstName       string    `db:"first_name" json:"firstName"`
	LastName        string    `db:"last_name" json:"lastName"`
	PasswordHash    *string   `db:"password" json:"-"`
	GoogleID        *string   `db:"google_id" json:"googleId,omitempty"`
	Picture         *string   `db:"picture" json:"picture,omitempty"`
	IsEmailVerified bool      `db:"is_email_verified" json:"isEmailVerified"`
	Role            Role      `db:"role" json:"role"`
	RefreshToken    *string   `db:"refresh_token" json:"-"` // sha256 hex of the opaque token
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `db:"updated_at" json:"updatedAt"`
}

// UserUpdate is a partial update; nil fields are left untouched.
type UserUpdate struct {
	Email           *string
	FirstName       *string
	LastName        *string
	GoogleID        *string
	Picture         *string
	IsEmailVerified *bool
}

// BlacklistEntry represents a row in the token_blacklist table.
// Token is either a literal access token or an ALL_TOKENS_FOR_USER:<id> sentinel.
type BlacklistEntry struct {
	ID        uuid.UUID `db:"id"`
	Token     string    `db:"token"`
	UserID    uuid.UUID `db:"user_id"`
	ExpiresAt time.Time `db:"expires_at"`
	Reason    string    `db:"reason"`
	CreatedAt time.Time `db:"created_at"`
}

// PasswordReset represents a row in the password_resets table.
// Email is only populated by queries that join users.
type PasswordReset struct {
	ID        uuid.UUID `db:"id"`
	UserID    uuid.UUID `db:"user_id"`
	Token     string    `db:"token"`
	ExpiresAt time.Time `db:"expires_at"`
	IsUsed    bool      `db:"is_used"`
	CreatedAt time.Time `db:"created_at"`
	Email     string    `db:"email"`
}

// SessionRecord is the JSON shape stored in Redis for a live session.
type SessionRecord struct {
	UserID       uuid.UUID `json:"user_id"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}
