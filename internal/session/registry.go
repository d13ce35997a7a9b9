// Package session is the sliding-TTL session registry.
//
// Each login under the session strategy gets a record in Redis. Every
// authenticated request refreshes it; a session idle for longer than the TTL
// is gone and its access token stops working.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cagatayturkan/blog-api/internal/store"
	"github.com/gofrs/uuid/v5"
)

// DefaultTTL is the idle window applied when none is configured.
const DefaultTTL = 60 * time.Second

// Store persists session records.
// Satisfied by *store.RedisStore, declared at the consumer.
type Store interface {
	SaveSession(ctx context.Context, id string, rec store.SessionRecord, ttl time.Duration) error

	// RefreshSession only writes when the session still exists and reports whether it did.
	RefreshSession(ctx context.Context, id string, rec store.SessionRecord, ttl time.Duration) (bool, error)

	// GetSession and SessionTTL return store.ErrCacheMiss once the session is gone.
	GetSession(ctx context.Context, id string) (*store.SessionRecord, error)
	SessionTTL(ctx context.Context, id string) (time.Duration, error)

	DeleteSession(ctx context.Context, id string, userID uuid.UUID) error
	DeleteUserSessions(ctx context.Context, userID uuid.UUID) error
}

// Result is the outcome of ValidateAndRefresh.
type Result struct {
	Valid  bool
	UserID uuid.UUID
}

// Info describes a live session.
type Info struct {
	UserID       uuid.UUID     `json:"userId"`
	CreatedAt    time.Time     `json:"createdAt"`
	LastActivity time.Time     `json:"lastActivity"`
	ExpiresIn    time.Duration `json:"expiresIn"`
}

// Registry creates, refreshes and destroys sessions.
type Registry struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// NewRegistry returns a Registry with the given idle TTL (DefaultTTL if <= 0).
func NewRegistry(st Store, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Registry{store: st, ttl: ttl, now: time.Now}
}

// TTL returns the configured idle window.
func (r *Registry) TTL() time.Duration { return r.ttl }

// Create starts a session for userID and returns its id.
func (r *Registry) Create(ctx context.Context, userID uuid.UUID) (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", fmt.Errorf("generating session id: %w", err)
	}
	now := r.now()
	rec := store.SessionRecord{UserID: userID, CreatedAt: now, LastActivity: now}
	if err := r.store.SaveSession(ctx, id.String(), rec, r.ttl); err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}
	return id.String(), nil
}

// ValidateAndRefresh reports whether the session is live. A live session has its
// last activity bumped and its TTL pushed out by a full window.
func (r *Registry) ValidateAndRefresh(ctx context.Context, id string) (Result, error) {
	if id == "" {
		return Result{}, nil
	}
	rec, err := r.store.GetSession(ctx, id)
	if errors.Is(err, store.ErrCacheMiss) {
		return Result{}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("validating session: %w", err)
	}

	rec.LastActivity = r.now()
	live, err := r.store.RefreshSession(ctx, id, *rec, r.ttl)
	if err != nil {
		return Result{}, fmt.Errorf("refreshing session: %w", err)
	}
	if !live {
		// destroyed between the read and the refresh
		return Result{}, nil
	}
	return Result{Valid: true, UserID: rec.UserID}, nil
}

// Destroy ends one session. Unknown or expired ids are a no-op.
func (r *Registry) Destroy(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	userID := uuid.Nil
	rec, err := r.store.GetSession(ctx, id)
	switch {
	case err == nil:
		userID = rec.UserID
	case !errors.Is(err, store.ErrCacheMiss):
		return fmt.Errorf("looking up session: %w", err)
	}
	if err := r.store.DeleteSession(ctx, id, userID); err != nil {
		return fmt.Errorf("destroying session: %w", err)
	}
	return nil
}

// DestroyAll ends every session of the user.
func (r *Registry) DestroyAll(ctx context.Context, userID uuid.UUID) error {
	if err := r.store.DeleteUserSessions(ctx, userID); err != nil {
		return fmt.Errorf("destroying user sessions: %w", err)
	}
	return nil
}

// Info returns the live session's details. The bool is false for an unknown id.
func (r *Registry) Info(ctx context.Context, id string) (*Info, bool, error) {
	rec, err := r.store.GetSession(ctx, id)
	if errors.Is(err, store.ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("fetching session: %w", err)
	}
	ttl, err := r.store.SessionTTL(ctx, id)
	if errors.Is(err, store.ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("fetching session ttl: %w", err)
	}
	return &Info{
		UserID:       rec.UserID,
		CreatedAt:    rec.CreatedAt,
		LastActivity: rec.LastActivity,
		ExpiresIn:    ttl,
	}, true, nil
}
