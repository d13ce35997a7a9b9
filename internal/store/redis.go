// redis.go -- go-redis client for the shared cache.
//
// Backs the blacklist read-through cache, exemption leases and the session registry.
// Everything here is volatile; Postgres remains the source of truth for revocations.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient parses redisURL, connects, and pings to verify connectivity.
// The returned client is shared by RedisStore and the mail queue (one connection pool).
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}

// RedisStore wraps a Redis client for cache and session operations.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore wraps an existing client. Safe for concurrent use.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// CheckHealth pings Redis.
func (s *RedisStore) CheckHealth(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Get returns the string stored at key, or ErrCacheMiss.
func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", key, err)
	}
	return v, nil
}

// Set stores value at key with the given TTL. ttl must be positive;
// Redis treats 0 as "no expiry", which nothing in the cache should have.
func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("setting %s: non-positive ttl %s", key, ttl)
	}
	if err := s.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}
	return nil
}

// Delete removes the given keys. Missing keys are ignored.
func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("deleting keys: %w", err)
	}
	return nil
}

func sessionKey(id string) string { return "session:" + id }

func userSessionsKey(userID uuid.UUID) string { return "user_sessions:" + userID.String() }

// SaveSession writes the session record with the given TTL and adds its id to the
// user's index set. The set's TTL is pushed out with every save so it never
// expires before a session it tracks.
func (s *RedisStore) SaveSession(ctx context.Context, id string, rec SessionRecord, ttl time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, sessionKey(id), data, ttl)
	pipe.SAdd(ctx, userSessionsKey(rec.UserID), id)
	pipe.Expire(ctx, userSessionsKey(rec.UserID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// RefreshSession overwrites a live session and resets its TTL. It reports false,
// writing nothing, when the key is already gone, so a refresh racing a destroy
// cannot bring the session back.
func (s *RedisStore) RefreshSession(ctx context.Context, id string, rec SessionRecord, ttl time.Duration) (bool, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("marshaling session: %w", err)
	}

	ok, err := s.rdb.SetXX(ctx, sessionKey(id), data, ttl).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("refreshing session: %w", err)
	}
	if !ok {
		return false, nil
	}
	// a missing index set stays missing: EXPIRE does not create keys
	if err := s.rdb.Expire(ctx, userSessionsKey(rec.UserID), ttl).Err(); err != nil {
		return true, fmt.Errorf("refreshing session index: %w", err)
	}
	return true, nil
}

// GetSession returns the live session record, or ErrCacheMiss if expired or unknown.
func (s *RedisStore) GetSession(ctx context.Context, id string) (*SessionRecord, error) {
	raw, err := s.rdb.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("fetching session: %w", err)
	}

	var rec SessionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("parsing session: %w", err)
	}
	return &rec, nil
}

// SessionTTL returns the remaining lifetime of the session key, or ErrCacheMiss.
func (s *RedisStore) SessionTTL(ctx context.Context, id string) (time.Duration, error) {
	ttl, err := s.rdb.PTTL(ctx, sessionKey(id)).Result()
	if err != nil {
		return 0, fmt.Errorf("fetching session ttl: %w", err)
	}
	// -2 means the key does not exist
	if ttl < 0 {
		return 0, ErrCacheMiss
	}
	return ttl, nil
}

// DeleteSession removes one session. userID may be uuid.Nil when unknown,
// in which case the index set is left to expire on its own.
func (s *RedisStore) DeleteSession(ctx context.Context, id string, userID uuid.UUID) error {
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, sessionKey(id))
	if userID != uuid.Nil {
		pipe.SRem(ctx, userSessionsKey(userID), id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// UserSessionIDs lists the session ids indexed for the user. Some may already have expired.
func (s *RedisStore) UserSessionIDs(ctx context.Context, userID uuid.UUID) ([]string, error) {
	ids, err := s.rdb.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("fetching user sessions: %w", err)
	}
	return ids, nil
}

// DeleteUserSessions removes every session of the user plus the index set.
func (s *RedisStore) DeleteUserSessions(ctx context.Context, userID uuid.UUID) error {
	ids, err := s.UserSessionIDs(ctx, userID)
	if err != nil {
		return err
	}

	pipe := s.rdb.TxPipeline()
	for _, id := range ids {
		pipe.Del(ctx, sessionKey(id))
	}
	pipe.Del(ctx, userSessionsKey(userID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("deleting user sessions: %w", err)
	}
	return nil
}
