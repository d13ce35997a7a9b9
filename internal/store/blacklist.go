// blacklist.go -- token_blacklist queries (the durable revocation ledger).
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// InsertBlacklistEntry upserts an entry keyed by token.
// A second insert for the same token replaces reason, expiry and created_at,
// which is how an "all tokens" sentinel gets a fresh cutoff.
func (s *PostgresStore) InsertBlacklistEntry(ctx context.Context, e BlacklistEntry) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO token_blacklist (id, token, user_id, expires_at, reason, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (token) DO UPDATE
		 SET user_id = EXCLUDED.user_id,
		     expires_at = EXCLUDED.expires_at,
		     reason = EXCLUDED.reason,
		     created_at = EXCLUDED.created_at`,
		e.ID, e.Token, e.UserID, e.ExpiresAt, e.Reason, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting blacklist entry: %w", err)
	}
	return nil
}

// GetBlacklistEntry fetches the entry for token. Returns ErrNotFound if absent.
func (s *PostgresStore) GetBlacklistEntry(ctx context.Context, token string) (*BlacklistEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var e BlacklistEntry
	err := pgxscan.Get(ctx, s.pool, &e,
		`SELECT id, token, user_id, expires_at, reason, created_at
		 FROM token_blacklist WHERE token = $1`, token)
	if err != nil {
		return nil, mapErr(err)
	}
	return &e, nil
}

// DeleteBlacklistEntry removes the entry for token. Deleting a missing entry is not an error.
func (s *PostgresStore) DeleteBlacklistEntry(ctx context.Context, token string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if _, err := s.pool.Exec(ctx, "DELETE FROM token_blacklist WHERE token = $1", token); err != nil {
		return fmt.Errorf("deleting blacklist entry: %w", err)
	}
	return nil
}

// DeleteUserBlacklistByReasons removes the user's entries whose reason is in reasons.
// Returns the deleted token keys so the caller can drop their cache entries.
func (s *PostgresStore) DeleteUserBlacklistByReasons(ctx context.Context, userID uuid.UUID, reasons []string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		"DELETE FROM token_blacklist WHERE user_id = $1 AND reason = ANY($2) RETURNING token",
		userID, reasons)
	if err != nil {
		return nil, fmt.Errorf("deleting user blacklist entries: %w", err)
	}
	tokens, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collecting deleted blacklist tokens: %w", err)
	}
	return tokens, nil
}

// DeleteExpiredBlacklist purges entries whose expiry is before the given time.
func (s *PostgresStore) DeleteExpiredBlacklist(ctx context.Context, before time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tag, err := s.pool.Exec(ctx, "DELETE FROM token_blacklist WHERE expires_at < $1", before)
	if err != nil {
		return 0, fmt.Errorf("deleting expired blacklist entries: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CountBlacklist returns the number of ledger rows.
func (s *PostgresStore) CountBlacklist(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var n int64
	if err := s.pool.QueryRow(ctx, "SELECT count(*) FROM token_blacklist").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting blacklist entries: %w", err)
	}
	return n, nil
}
