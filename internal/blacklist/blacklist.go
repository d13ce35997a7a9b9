// Package blacklist revokes access tokens before their natural expiry.
//
// blacklist.go -- durable ledger in Postgres, read-through cache and
// exemption leases in Redis.
//
// Two kinds of entries share the ledger: single-token rows keyed by the raw
// token, and one "all tokens" sentinel per user whose created_at is a cutoff.
// Any token issued at or before the cutoff is revoked; tokens issued after it
// stay valid. JWT iat has second precision, so a token minted in the same
// second as a revocation is treated as revoked.
package blacklist

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/cagatayturkan/blog-api/internal/metrics"
	"github.com/cagatayturkan/blog-api/internal/store"
	"github.com/cagatayturkan/blog-api/internal/token"
	"github.com/gofrs/uuid/v5"
)

// Revocation reasons, as stored in token_blacklist.reason.
const (
	ReasonLogout           = "logout"
	ReasonPasswordChange   = "password_change"
	ReasonPasswordReset    = "password_reset"
	ReasonLogoutAllDevices = "logout_all_devices"
	ReasonAdminRevoke      = "admin_revoke"
	ReasonSecurity         = "security"
)

// PasswordRelatedReasons are the reasons ClearUserBlacklist removes.
var PasswordRelatedReasons = []string{ReasonPasswordChange, ReasonPasswordReset}

// Store is the durable ledger.
// Satisfied by *store.PostgresStore, declared at the consumer.
type Store interface {
	InsertBlacklistEntry(ctx context.Context, e store.BlacklistEntry) error

	// GetBlacklistEntry returns store.ErrNotFound when no row exists.
	GetBlacklistEntry(ctx context.Context, token string) (*store.BlacklistEntry, error)

	DeleteBlacklistEntry(ctx context.Context, token string) error

	// DeleteUserBlacklistByReasons returns the tokens of the deleted rows.
	DeleteUserBlacklistByReasons(ctx context.Context, userID uuid.UUID, reasons []string) ([]string, error)

	DeleteExpiredBlacklist(ctx context.Context, before time.Time) (int64, error)
}

// Cache is the shared key/value cache.
// Satisfied by *store.RedisStore.
type Cache interface {
	// Get returns store.ErrCacheMiss for an absent key.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Decoder reads claims without verifying the signature.
// Satisfied by *token.Signer.
type Decoder interface {
	Decode(tokenStr string) (*token.Claims, error)
}

// Options tunes cache lifetimes. Zero values fall back to the defaults below.
type Options struct {
	CacheTTL     time.Duration
	ExemptWindow time.Duration
	SentinelTTL  time.Duration
}

const (
	DefaultCacheTTL     = 5 * time.Minute
	DefaultExemptWindow = 30 * time.Second
	DefaultSentinelTTL  = 24 * time.Hour
)

// Service answers "is this credential revoked?" for the auth middleware.
type Service struct {
	store   Store
	cache   Cache
	decoder Decoder
	opts    Options
	now     func() time.Time
}

// New builds a Service. Safe for concurrent use.
func New(st Store, cache Cache, decoder Decoder, opts Options) *Service {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.ExemptWindow <= 0 {
		opts.ExemptWindow = DefaultExemptWindow
	}
	if opts.SentinelTTL <= 0 {
		opts.SentinelTTL = DefaultSentinelTTL
	}
	return &Service{store: st, cache: cache, decoder: decoder, opts: opts, now: time.Now}
}

// SentinelToken is the ledger key of the user's "all tokens" entry.
func SentinelToken(userID uuid.UUID) string {
	return "ALL_TOKENS_FOR_USER:" + userID.String()
}

func hashToken(tok string) string {
	sum := sha256.Sum256([]byte(tok))
	return hex.EncodeToString(sum[:])
}

func tokenKey(tok string) string { return "blacklist:token:" + hashToken(tok) }

func userKey(userID uuid.UUID) string { return "blacklist:user:" + userID.String() }

func exemptKey(tok string) string { return "blacklist:exempt:" + hashToken(tok) }

func boolValue(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// Add revokes a single token until its own exp.
// Tokens that can't be decoded, or are already expired, are skipped with a log line.
func (s *Service) Add(ctx context.Context, tok string, userID uuid.UUID, reason string) error {
	claims, err := s.decoder.Decode(tok)
	if err != nil || claims.ExpiresAt == nil {
		slog.Warn("blacklist: skipping undecodable token", "user_id", userID, "error", err)
		return nil
	}
	now := s.now()
	if !claims.ExpiresAt.Time.After(now) {
		slog.Debug("blacklist: token already expired", "user_id", userID)
		return nil
	}

	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generating blacklist id: %w", err)
	}
	err = s.store.InsertBlacklistEntry(ctx, store.BlacklistEntry{
		ID:        id,
		Token:     tok,
		UserID:    userID,
		ExpiresAt: claims.ExpiresAt.Time,
		Reason:    reason,
		CreatedAt: now,
	})
	if err != nil {
		return fmt.Errorf("blacklisting token: %w", err)
	}

	s.cachePositive(ctx, tokenKey(tok))
	// an earlier exemption must not outlive an explicit revocation
	s.cacheDelete(ctx, exemptKey(tok))
	return nil
}

// IsTokenBlacklisted reports whether tok was revoked individually.
func (s *Service) IsTokenBlacklisted(ctx context.Context, tok string) (bool, error) {
	if s.isExempt(ctx, tok) {
		metrics.BlacklistChecks.WithLabelValues("token", metrics.ResultExempt).Inc()
		return false, nil
	}

	key := tokenKey(tok)
	if v, ok := s.cacheGet(ctx, key); ok {
		return s.record("token", v == "1"), nil
	}

	_, err := s.store.GetBlacklistEntry(ctx, tok)
	found := true
	switch {
	case errors.Is(err, store.ErrNotFound):
		found = false
	case err != nil:
		return false, fmt.Errorf("checking token blacklist: %w", err)
	}
	s.cacheSet(ctx, key, boolValue(found))
	return s.record("token", found), nil
}

// BlacklistAllUserTokens writes (or replaces) the user's sentinel with a cutoff of now.
// excludeToken, when set, stays usable for the exemption window.
func (s *Service) BlacklistAllUserTokens(ctx context.Context, userID uuid.UUID, reason, excludeToken string) error {
	now := s.now()
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generating blacklist id: %w", err)
	}
	err = s.store.InsertBlacklistEntry(ctx, store.BlacklistEntry{
		ID:        id,
		Token:     SentinelToken(userID),
		UserID:    userID,
		ExpiresAt: now.Add(s.opts.SentinelTTL),
		Reason:    reason,
		CreatedAt: now,
	})
	if err != nil {
		return fmt.Errorf("writing all-tokens sentinel: %w", err)
	}

	s.cachePositive(ctx, userKey(userID))

	if excludeToken != "" {
		until := now.Add(s.opts.ExemptWindow).UnixMilli()
		if err := s.cache.Set(ctx, exemptKey(excludeToken), strconv.FormatInt(until, 10), s.opts.ExemptWindow); err != nil {
			slog.Warn("blacklist: exemption lease not written", "user_id", userID, "error", err)
		}
	}

	slog.Info("blacklist: all tokens revoked", "user_id", userID, "reason", reason)
	return nil
}

// IsUserTokensBlacklisted reports whether a token issued at issuedAt falls under the
// user's sentinel. A nil issuedAt is treated as revoked whenever a sentinel exists.
func (s *Service) IsUserTokensBlacklisted(ctx context.Context, userID uuid.UUID, currentToken string, issuedAt *time.Time) (bool, error) {
	if currentToken != "" && s.isExempt(ctx, currentToken) {
		metrics.BlacklistChecks.WithLabelValues("user", metrics.ResultExempt).Inc()
		return false, nil
	}

	// "0" is authoritative: every new sentinel overwrites the key.
	// "1" still needs the row for its cutoff.
	key := userKey(userID)
	v, cached := s.cacheGet(ctx, key)
	if cached && v == "0" {
		return s.record("user", false), nil
	}

	entry, err := s.store.GetBlacklistEntry(ctx, SentinelToken(userID))
	if errors.Is(err, store.ErrNotFound) || (err == nil && !entry.ExpiresAt.After(s.now())) {
		s.cacheSet(ctx, key, "0")
		return s.record("user", false), nil
	}
	if err != nil {
		return false, fmt.Errorf("checking user sentinel: %w", err)
	}
	if !cached {
		s.cacheSet(ctx, key, "1")
	}

	if issuedAt == nil {
		return s.record("user", true), nil
	}
	return s.record("user", !issuedAt.After(entry.CreatedAt)), nil
}

// SentinelReason returns the reason of the user's live sentinel, if any.
func (s *Service) SentinelReason(ctx context.Context, userID uuid.UUID) (string, bool, error) {
	entry, err := s.store.GetBlacklistEntry(ctx, SentinelToken(userID))
	if errors.Is(err, store.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("fetching user sentinel: %w", err)
	}
	return entry.Reason, true, nil
}

// ClearUserBlacklist removes the user's password-related entries, the sentinel
// included when its reason is password-related.
func (s *Service) ClearUserBlacklist(ctx context.Context, userID uuid.UUID) error {
	tokens, err := s.store.DeleteUserBlacklistByReasons(ctx, userID, PasswordRelatedReasons)
	if err != nil {
		return fmt.Errorf("clearing user blacklist: %w", err)
	}

	keys := []string{userKey(userID)}
	for _, t := range tokens {
		if t != SentinelToken(userID) {
			keys = append(keys, tokenKey(t))
		}
	}
	s.cacheDelete(ctx, keys...)
	return nil
}

// ClearUserAllTokensBlacklist removes the sentinel whatever its reason.
func (s *Service) ClearUserAllTokensBlacklist(ctx context.Context, userID uuid.UUID) error {
	if err := s.store.DeleteBlacklistEntry(ctx, SentinelToken(userID)); err != nil {
		return fmt.Errorf("clearing user sentinel: %w", err)
	}
	s.cacheDelete(ctx, userKey(userID))
	return nil
}

// CleanupExpired purges ledger rows past their expiry. Cache entries expire on their own.
func (s *Service) CleanupExpired(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteExpiredBlacklist(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("purging expired blacklist: %w", err)
	}
	return n, nil
}

func (s *Service) record(kind string, revoked bool) bool {
	result := metrics.ResultAllowed
	if revoked {
		result = metrics.ResultRevoked
	}
	metrics.BlacklistChecks.WithLabelValues(kind, result).Inc()
	return revoked
}

// isExempt reports whether tok holds a live exemption lease.
// Cache errors count as "not exempt".
func (s *Service) isExempt(ctx context.Context, tok string) bool {
	v, ok := s.cacheGet(ctx, exemptKey(tok))
	if !ok {
		return false
	}
	until, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return false
	}
	return s.now().UnixMilli() < until
}

// cacheGet returns (value, true) on a hit. Misses and errors both return false;
// errors are logged so the caller falls through to Postgres.
func (s *Service) cacheGet(ctx context.Context, key string) (string, bool) {
	v, err := s.cache.Get(ctx, key)
	if err == nil {
		return v, true
	}
	if !errors.Is(err, store.ErrCacheMiss) {
		slog.Warn("blacklist: cache read failed", "key", key, "error", err)
	}
	return "", false
}

func (s *Service) cacheSet(ctx context.Context, key, value string) {
	if err := s.cache.Set(ctx, key, value, s.opts.CacheTTL); err != nil {
		slog.Warn("blacklist: cache write failed", "key", key, "error", err)
	}
}

// cachePositive marks key as revoked. If that write fails the key is dropped
// instead, so a stale "0" can't hide the new revocation.
func (s *Service) cachePositive(ctx context.Context, key string) {
	if err := s.cache.Set(ctx, key, "1", s.opts.CacheTTL); err != nil {
		slog.Warn("blacklist: cache write failed, dropping key", "key", key, "error", err)
		s.cacheDelete(ctx, key)
	}
}

func (s *Service) cacheDelete(ctx context.Context, keys ...string) {
	if err := s.cache.Delete(ctx, keys...); err != nil {
		slog.Warn("blacklist: cache delete failed", "keys", keys, "error", err)
	}
}
