// resets.go -- password_resets queries.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/gofrs/uuid/v5"
)

const resetColumns = "pr.id, pr.user_id, pr.token, pr.expires_at, pr.is_used, pr.created_at"

// CreatePasswordReset inserts a new reset record.
func (s *PostgresStore) CreatePasswordReset(ctx context.Context, r PasswordReset) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO password_resets (id, user_id, token, expires_at, is_used, created_at)
		 VALUES ($1, $2, $3, $4, false, $5)`,
		r.ID, r.UserID, r.Token, r.ExpiresAt, r.CreatedAt)
	if err != nil {
		return mapErr(err)
	}
	return nil
}

// GetLatestActiveReset returns the newest unused, unexpired record for the user.
func (s *PostgresStore) GetLatestActiveReset(ctx context.Context, userID uuid.UUID, now time.Time) (*PasswordReset, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var r PasswordReset
	err := pgxscan.Get(ctx, s.pool, &r,
		`SELECT `+resetColumns+` FROM password_resets pr
		 WHERE pr.user_id = $1 AND NOT pr.is_used AND pr.expires_at > $2
		 ORDER BY pr.created_at DESC
		 LIMIT 1`, userID, now)
	if err != nil {
		return nil, mapErr(err)
	}
	return &r, nil
}

// GetPasswordReset fetches a record by token, joined with the owner's email.
// Used and expired records are returned too; the caller decides validity.
func (s *PostgresStore) GetPasswordReset(ctx context.Context, token string) (*PasswordReset, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var r PasswordReset
	err := pgxscan.Get(ctx, s.pool, &r,
		`SELECT `+resetColumns+`, u.email FROM password_resets pr
		 JOIN users u ON u.id = pr.user_id
		 WHERE pr.token = $1`, token)
	if err != nil {
		return nil, mapErr(err)
	}
	return &r, nil
}

// InvalidateUserResets marks every unused record of the user except keep as used.
func (s *PostgresStore) InvalidateUserResets(ctx context.Context, userID, keep uuid.UUID) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tag, err := s.pool.Exec(ctx,
		"UPDATE password_resets SET is_used = true WHERE user_id = $1 AND id <> $2 AND NOT is_used", userID, keep)
	if err != nil {
		return 0, fmt.Errorf("invalidating user resets: %w", err)
	}
	return tag.RowsAffected(), nil
}

// MarkResetUsed flags an unused record as used.
// Returns ErrNotFound if it was already used, so two concurrent resets can't both win.
func (s *PostgresStore) MarkResetUsed(ctx context.Context, id uuid.UUID) error {
	return s.exec(ctx, "UPDATE password_resets SET is_used = true WHERE id = $1 AND NOT is_used", id)
}

// DeletePasswordReset removes a record (rollback after a failed dispatch).
func (s *PostgresStore) DeletePasswordReset(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if _, err := s.pool.Exec(ctx, "DELETE FROM password_resets WHERE id = $1", id); err != nil {
		return fmt.Errorf("deleting password reset: %w", err)
	}
	return nil
}

// DeleteExpiredResets purges records that expired before the given time.
func (s *PostgresStore) DeleteExpiredResets(ctx context.Context, before time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tag, err := s.pool.Exec(ctx, "DELETE FROM password_resets WHERE expires_at < $1", before)
	if err != nil {
		return 0, fmt.Errorf("deleting expired resets: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteUsedResetsBefore purges used records created before the given time.
func (s *PostgresStore) DeleteUsedResetsBefore(ctx context.Context, before time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tag, err := s.pool.Exec(ctx, "DELETE FROM password_resets WHERE is_used AND created_at < $1", before)
	if err != nil {
		return 0, fmt.Errorf("deleting used resets: %w", err)
	}
	return tag.RowsAffected(), nil
}
