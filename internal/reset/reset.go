// Package reset implements the forgot-password flow.
//
// A request mints a single-use token, stores it with a one hour expiry and
// mails a link to the frontend. Redeeming the token replaces the password and
// revokes every credential issued before it.
package reset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/cagatayturkan/blog-api/internal/blacklist"
	"github.com/cagatayturkan/blog-api/internal/metrics"
	"github.com/cagatayturkan/blog-api/internal/password"
	"github.com/cagatayturkan/blog-api/internal/store"
	"github.com/gofrs/uuid/v5"
)

// User-facing outcomes. MsgRequested is returned whether or not the email exists.
const (
	MsgRequested = "If the email exists, a password reset link has been sent."
	MsgReset     = "Password has been reset successfully. Please login with your new password."
)

var (
	// ErrInvalidToken covers unknown, used and expired tokens alike.
	ErrInvalidToken = errors.New("invalid or expired reset token")

	// ErrDispatch means the reset email could not be handed off; the record was rolled back.
	ErrDispatch = errors.New("failed to send password reset email")
)

// Store persists reset records.
// Satisfied by *store.PostgresStore, declared at the consumer.
type Store interface {
	CreatePasswordReset(ctx context.Context, r store.PasswordReset) error
	GetLatestActiveReset(ctx context.Context, userID uuid.UUID, now time.Time) (*store.PasswordReset, error)
	GetPasswordReset(ctx context.Context, token string) (*store.PasswordReset, error)
	InvalidateUserResets(ctx context.Context, userID, keep uuid.UUID) (int64, error)

	// MarkResetUsed returns store.ErrNotFound if the record was already used.
	MarkResetUsed(ctx context.Context, id uuid.UUID) error

	DeletePasswordReset(ctx context.Context, id uuid.UUID) error
	DeleteExpiredResets(ctx context.Context, before time.Time) (int64, error)
	DeleteUsedResetsBefore(ctx context.Context, before time.Time) (int64, error)
}

// Users is the slice of the credential store the flow touches.
type Users interface {
	GetUserByEmail(ctx context.Context, email string) (*store.User, error)
	UpdateUserPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdateRefreshToken(ctx context.Context, id uuid.UUID, tokenHash *string) error
}

// Mailer delivers the reset link. Satisfied by mail.Mailer implementations.
type Mailer interface {
	SendPasswordReset(ctx context.Context, toEmail, resetURL string, expiresIn time.Duration, vars map[string]string) error
}

// Revoker cuts off every access token issued before now. Satisfied by *blacklist.Service.
type Revoker interface {
	BlacklistAllUserTokens(ctx context.Context, userID uuid.UUID, reason, excludeToken string) error
}

// SessionDestroyer ends all sessions of a user. Satisfied by *session.Registry.
type SessionDestroyer interface {
	DestroyAll(ctx context.Context, userID uuid.UUID) error
}

// Options configures lifetimes and the link target.
type Options struct {
	TokenTTL      time.Duration
	Cooldown      time.Duration
	UsedRetention time.Duration
	FrontendURL   string
	BcryptCost    int

	// Sessions, when set, is cleared on reset alongside the blacklist cutoff.
	Sessions SessionDestroyer
}

// Validation is the result of ValidateToken.
type Validation struct {
	Valid bool   `json:"valid"`
	Email string `json:"email,omitempty"`
}

// Service runs the reset flow.
type Service struct {
	store   Store
	users   Users
	mailer  Mailer
	revoker Revoker
	opts    Options
	now     func() time.Time
}

// New builds a Service. Zero durations fall back to 1h TTL, 5m cooldown, 7d retention.
func New(st Store, users Users, mailer Mailer, revoker Revoker, opts Options) *Service {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = time.Hour
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = 5 * time.Minute
	}
	if opts.UsedRetention <= 0 {
		opts.UsedRetention = 7 * 24 * time.Hour
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = password.DefaultCost
	}
	return &Service{store: st, users: users, mailer: mailer, revoker: revoker, opts: opts, now: time.Now}
}

func (s *Service) resetURL(tok string) string {
	return strings.TrimRight(s.opts.FrontendURL, "/") + "/reset-password?token=" + url.QueryEscape(tok)
}

// Request starts a reset for email. Unknown emails and requests inside the
// cooldown get the same message as a real dispatch.
func (s *Service) Request(ctx context.Context, email string) (string, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		metrics.ResetRequests.WithLabelValues("unknown_email").Inc()
		return MsgRequested, nil
	}
	if err != nil {
		return "", fmt.Errorf("looking up user: %w", err)
	}

	now := s.now()
	recent, err := s.store.GetLatestActiveReset(ctx, user.ID, now)
	switch {
	case err == nil && now.Sub(recent.CreatedAt) < s.opts.Cooldown:
		metrics.ResetRequests.WithLabelValues("cooldown").Inc()
		slog.Info("password reset: request inside cooldown", "user_id", user.ID)
		return MsgRequested, nil
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return "", fmt.Errorf("checking recent reset: %w", err)
	}

	tok, err := generateToken(now)
	if err != nil {
		return "", err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generating reset id: %w", err)
	}
	rec := store.PasswordReset{
		ID:        id,
		UserID:    user.ID,
		Token:     tok,
		ExpiresAt: now.Add(s.opts.TokenTTL),
		CreatedAt: now,
	}
	if err := s.store.CreatePasswordReset(ctx, rec); err != nil {
		return "", fmt.Errorf("storing reset: %w", err)
	}

	vars := map[string]string{"firstName": user.FirstName}
	if err := s.mailer.SendPasswordReset(ctx, user.Email, s.resetURL(tok), s.opts.TokenTTL, vars); err != nil {
		metrics.ResetRequests.WithLabelValues("dispatch_failed").Inc()
		slog.Error("password reset: dispatch failed", "user_id", user.ID, "error", err)
		if delErr := s.store.DeletePasswordReset(ctx, rec.ID); delErr != nil {
			slog.Error("password reset: rollback failed", "reset_id", rec.ID, "error", delErr)
		}
		return "", fmt.Errorf("%w: %v", ErrDispatch, err)
	}

	// older links die only once the new one is on its way
	if _, err := s.store.InvalidateUserResets(ctx, user.ID, rec.ID); err != nil {
		slog.Error("password reset: previous links not invalidated", "user_id", user.ID, "error", err)
	}

	metrics.ResetRequests.WithLabelValues("sent").Inc()
	slog.Info("password reset: link sent", "user_id", user.ID)
	return MsgRequested, nil
}

// active returns the record for tok if it is unused and unexpired.
func (s *Service) active(ctx context.Context, tok string) (*store.PasswordReset, error) {
	if tok == "" {
		return nil, ErrInvalidToken
	}
	rec, err := s.store.GetPasswordReset(ctx, tok)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("fetching reset: %w", err)
	}
	if rec.IsUsed || !rec.ExpiresAt.After(s.now()) {
		return nil, ErrInvalidToken
	}
	return rec, nil
}

// ValidateToken reports whether tok can still be redeemed, and for which email.
func (s *Service) ValidateToken(ctx context.Context, tok string) (Validation, error) {
	rec, err := s.active(ctx, tok)
	if errors.Is(err, ErrInvalidToken) {
		return Validation{}, nil
	}
	if err != nil {
		return Validation{}, err
	}
	return Validation{Valid: true, Email: rec.Email}, nil
}

// Reset redeems tok and sets newPassword. The caller validates password strength.
// Every access token issued before the reset stops working; the refresh slot is cleared.
func (s *Service) Reset(ctx context.Context, tok, newPassword string) (string, error) {
	rec, err := s.active(ctx, tok)
	if err != nil {
		return "", err
	}

	hash, err := password.Hash(newPassword, s.opts.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}

	// claim the record first so two concurrent redemptions can't both succeed
	if err := s.store.MarkResetUsed(ctx, rec.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrInvalidToken
		}
		return "", fmt.Errorf("marking reset used: %w", err)
	}

	if err := s.users.UpdateUserPassword(ctx, rec.UserID, hash); err != nil {
		return "", fmt.Errorf("updating password: %w", err)
	}

	// the new hash is committed; revoke before anything else can fail
	if err := s.revoker.BlacklistAllUserTokens(ctx, rec.UserID, blacklist.ReasonPasswordReset, ""); err != nil {
		slog.Error("password reset: token revocation failed", "user_id", rec.UserID, "error", err)
	}
	if s.opts.Sessions != nil {
		if err := s.opts.Sessions.DestroyAll(ctx, rec.UserID); err != nil {
			slog.Error("password reset: session cleanup failed", "user_id", rec.UserID, "error", err)
		}
	}
	if err := s.users.UpdateRefreshToken(ctx, rec.UserID, nil); err != nil {
		return "", fmt.Errorf("clearing refresh token: %w", err)
	}

	slog.Info("password reset: completed", "user_id", rec.UserID)
	return MsgReset, nil
}

// SweepExpired deletes records past their expiry.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteExpiredResets(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("purging expired resets: %w", err)
	}
	return n, nil
}

// SweepUsed deletes used records older than the retention window.
func (s *Service) SweepUsed(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteUsedResetsBefore(ctx, s.now().Add(-s.opts.UsedRetention))
	if err != nil {
		return 0, fmt.Errorf("purging used resets: %w", err)
	}
	return n, nil
}
