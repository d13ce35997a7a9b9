// Package store handles all database and cache interactions.
//
// postgres.go -- pgxpool connection setup and user queries.
// Creates a connection pool at startup, shared across all services.
// All queries use parameterized statements (no string concatenation).
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// queryTimeout bounds every statement so a hung connection can't pin a request.
const queryTimeout = 5 * time.Second

const userColumns = `id, email, first_name, last_name, password, google_id, picture,
	is_email_verified, role, refresh_token, created_at, updated_at`

// PostgresStore is the durable store: users, token blacklist, password resets.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a verified connection pool to PostgreSQL.
// Call once at startup from main.go; the returned store is safe for concurrent use.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close shuts down the connection pool and releases all resources.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// CheckHealth pings Postgres.
func (s *PostgresStore) CheckHealth(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return s.pool.Ping(ctx)
}

// mapErr translates pgx errors into store sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) || pgxscan.NotFound(err) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

// getUser runs a single-row user query.
func (s *PostgresStore) getUser(ctx context.Context, query string, args ...any) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var u User
	if err := pgxscan.Get(ctx, s.pool, &u, query, args...); err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

// exec runs a statement and reports ErrNotFound when nothing was touched.
func (s *PostgresStore) exec(ctx context.Context, query string, args ...any) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateUser inserts a new user. Caller generates the id and hashes the password.
// Returns ErrDuplicate when the email already exists.
func (s *PostgresStore) CreateUser(ctx context.Context, u *User) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	role := u.Role
	if role == "" {
		role = RoleUser
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (id, email, first_name, last_name, password, google_id, picture, is_email_verified, role)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING created_at, updated_at`,
		u.ID, u.Email, u.FirstName, u.LastName, u.PasswordHash, u.GoogleID, u.Picture, u.IsEmailVerified, role,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return mapErr(err)
	}
	u.Role = role
	return nil
}

// GetUserByEmail fetches a user by exact email.
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.getUser(ctx, "SELECT "+userColumns+" FROM users WHERE email = $1", email)
}

// GetUserByID fetches a user by id.
func (s *PostgresStore) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.getUser(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
}

// GetUserByRefreshToken fetches the user currently holding the given refresh token hash.
func (s *PostgresStore) GetUserByRefreshToken(ctx context.Context, tokenHash string) (*User, error) {
	return s.getUser(ctx, "SELECT "+userColumns+" FROM users WHERE refresh_token = $1", tokenHash)
}

// ListUsers returns every user, oldest first.
func (s *PostgresStore) ListUsers(ctx context.Context) ([]*User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var users []*User
	if err := pgxscan.Select(ctx, s.pool, &users, "SELECT "+userColumns+" FROM users ORDER BY created_at"); err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// UpdateUser applies a partial update and returns the updated row.
// Returns ErrNotFound for an unknown id, ErrDuplicate if the new email is taken.
func (s *PostgresStore) UpdateUser(ctx context.Context, id uuid.UUID, upd UserUpdate) (*User, error) {
	return s.getUser(ctx,
		`UPDATE users SET
			email             = COALESCE($2, email),
			first_name        = COALESCE($3, first_name),
			last_name         = COALESCE($4, last_name),
			google_id         = COALESCE($5, google_id),
			picture           = COALESCE($6, picture),
			is_email_verified = COALESCE($7, is_email_verified),
			updated_at        = now()
		 WHERE id = $1
		 RETURNING `+userColumns,
		id, upd.Email, upd.FirstName, upd.LastName, upd.GoogleID, upd.Picture, upd.IsEmailVerified)
}

// UpdateUserPassword replaces the stored password hash.
func (s *PostgresStore) UpdateUserPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return s.exec(ctx, "UPDATE users SET password = $2, updated_at = now() WHERE id = $1", id, passwordHash)
}

// UpdateRefreshToken overwrites the single refresh-token slot; nil clears it.
func (s *PostgresStore) UpdateRefreshToken(ctx context.Context, id uuid.UUID, tokenHash *string) error {
	return s.exec(ctx, "UPDATE users SET refresh_token = $2, updated_at = now() WHERE id = $1", id, tokenHash)
}

// RotateRefreshToken swaps oldHash for newHash only if oldHash is still the stored value.
// Returns ErrNotFound when the slot moved on, so a replayed token loses the race.
func (s *PostgresStore) RotateRefreshToken(ctx context.Context, id uuid.UUID, oldHash, newHash string) error {
	return s.exec(ctx,
		"UPDATE users SET refresh_token = $3, updated_at = now() WHERE id = $1 AND refresh_token = $2",
		id, oldHash, newHash)
}

// UpdateUserRole sets the role of the given user and returns the updated row.
func (s *PostgresStore) UpdateUserRole(ctx context.Context, id uuid.UUID, role Role) (*User, error) {
	return s.getUser(ctx,
		"UPDATE users SET role = $2, updated_at = now() WHERE id = $1 RETURNING "+userColumns,
		id, role)
}

// DeleteUser removes the user row; password_resets cascade.
func (s *PostgresStore) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return s.exec(ctx, "DELETE FROM users WHERE id = $1", id)
}

// FindUsersWithPendingReset returns users holding an unused, unexpired reset record.
func (s *PostgresStore) FindUsersWithPendingReset(ctx context.Context, now time.Time) ([]*User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var users []*User
	err := pgxscan.Select(ctx, s.pool, &users,
		`SELECT `+userColumns+` FROM users u
		 WHERE EXISTS (
			SELECT 1 FROM password_resets pr
			WHERE pr.user_id = u.id AND NOT pr.is_used AND pr.expires_at > $1
		 )
		 ORDER BY u.created_at`, now)
	if err != nil {
		return nil, fmt.Errorf("finding users with pending reset: %w", err)
	}
	return users, nil
}
