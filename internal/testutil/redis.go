// redis.go
//
// In-process Redis for tests that exercise the real store.RedisStore.
package testutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cagatayturkan/blog-api/internal/store"
	"github.com/redis/go-redis/v9"
)

// NewRedis starts a miniredis server for the test and returns a RedisStore on it.
// Both are closed on test cleanup. Use mr.FastForward to expire keys.
func NewRedis(t *testing.T) (*store.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	rs, _, mr := NewRedisClient(t)
	return rs, mr
}

// NewRedisClient is NewRedis plus the raw client, for components that take *redis.Client.
func NewRedisClient(t *testing.T) (*store.RedisStore, *redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb, err := store.NewRedisClient(context.Background(), "redis://"+mr.Addr())
	if err != nil {
		t.Fatalf("connecting to miniredis: %v", err)
	}
	t.Cleanup(func() { rdb.Close() })
	return store.NewRedisStore(rdb), rdb, mr
}

// ErrCacheDown is what BrokenCache returns from every call.
var ErrCacheDown = errors.New("cache unavailable")

// BrokenCache fails every operation, standing in for an unreachable Redis.
type BrokenCache struct{}

func (BrokenCache) Get(context.Context, string) (string, error) { return "", ErrCacheDown }

func (BrokenCache) Set(context.Context, string, string, time.Duration) error { return ErrCacheDown }

func (BrokenCache) Delete(context.Context, ...string) error { return ErrCacheDown }
