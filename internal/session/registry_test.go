package session

import (
	"context"
	"testing"
	"time"

	"github.com/cagatayturkan/blog-api/internal/store"
	"github.com/cagatayturkan/blog-api/internal/testutil"
	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserID(t *testing.T) uuid.UUID {
	t.Helper()
	id, err := uuid.NewV7()
	require.NoError(t, err)
	return id
}

func TestCreateAndValidate(t *testing.T) {
	ctx := context.Background()
	rs, _ := testutil.NewRedis(t)
	reg := NewRegistry(rs, 0)
	userID := newUserID(t)

	id, err := reg.Create(ctx, userID)
	require.NoError(t, err)
	_, err = uuid.FromString(id)
	require.NoError(t, err, "session id is a uuid")

	res, err := reg.ValidateAndRefresh(ctx, id)
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, userID, res.UserID)

	t.Run("unknown id is invalid", func(t *testing.T) {
		res, err := reg.ValidateAndRefresh(ctx, "does-not-exist")
		require.NoError(t, err)
		assert.False(t, res.Valid)
	})

	t.Run("empty id is invalid", func(t *testing.T) {
		res, err := reg.ValidateAndRefresh(ctx, "")
		require.NoError(t, err)
		assert.False(t, res.Valid)
	})
}

func TestSessionExpiresWhenIdle(t *testing.T) {
	ctx := context.Background()
	rs, mr := testutil.NewRedis(t)
	reg := NewRegistry(rs, 60*time.Second)

	id, err := reg.Create(ctx, newUserID(t))
	require.NoError(t, err)

	mr.FastForward(61 * time.Second)

	res, err := reg.ValidateAndRefresh(ctx, id)
	require.NoError(t, err)
	assert.False(t, res.Valid)
}

func TestRefreshSlidesTTL(t *testing.T) {
	ctx := context.Background()
	rs, mr := testutil.NewRedis(t)
	reg := NewRegistry(rs, 60*time.Second)
	created := time.Now()
	reg.now = func() time.Time { return created }

	id, err := reg.Create(ctx, newUserID(t))
	require.NoError(t, err)

	// three requests 40s apart: each lands inside the window opened by the previous one
	for i := 1; i <= 3; i++ {
		mr.FastForward(40 * time.Second)
		step := created.Add(time.Duration(i) * 40 * time.Second)
		reg.now = func() time.Time { return step }

		res, err := reg.ValidateAndRefresh(ctx, id)
		require.NoError(t, err)
		require.True(t, res.Valid, "request %d", i)
	}

	info, ok, err := reg.Info(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, info.CreatedAt.Equal(created), "createdAt unchanged")
	assert.True(t, info.LastActivity.Equal(created.Add(120*time.Second)), "lastActivity bumped")
	assert.InDelta(t, float64(60*time.Second), float64(info.ExpiresIn), float64(time.Second))
}

func TestDestroy(t *testing.T) {
	ctx := context.Background()
	rs, _ := testutil.NewRedis(t)
	reg := NewRegistry(rs, 0)
	userID := newUserID(t)

	id, err := reg.Create(ctx, userID)
	require.NoError(t, err)
	keep, err := reg.Create(ctx, userID)
	require.NoError(t, err)

	require.NoError(t, reg.Destroy(ctx, id))
	res, err := reg.ValidateAndRefresh(ctx, id)
	require.NoError(t, err)
	assert.False(t, res.Valid)

	t.Run("destroying twice is a no-op", func(t *testing.T) {
		require.NoError(t, reg.Destroy(ctx, id))
		require.NoError(t, reg.Destroy(ctx, "never-existed"))
		require.NoError(t, reg.Destroy(ctx, ""))
	})

	t.Run("other sessions survive", func(t *testing.T) {
		res, err := reg.ValidateAndRefresh(ctx, keep)
		require.NoError(t, err)
		assert.True(t, res.Valid)
	})
}

func TestDestroyAll(t *testing.T) {
	ctx := context.Background()
	rs, _ := testutil.NewRedis(t)
	reg := NewRegistry(rs, 0)
	alice, bob := newUserID(t), newUserID(t)

	a1, err := reg.Create(ctx, alice)
	require.NoError(t, err)
	a2, err := reg.Create(ctx, alice)
	require.NoError(t, err)
	b1, err := reg.Create(ctx, bob)
	require.NoError(t, err)

	require.NoError(t, reg.DestroyAll(ctx, alice))

	for _, id := range []string{a1, a2} {
		res, err := reg.ValidateAndRefresh(ctx, id)
		require.NoError(t, err)
		assert.False(t, res.Valid)
	}
	res, err := reg.ValidateAndRefresh(ctx, b1)
	require.NoError(t, err)
	assert.True(t, res.Valid)

	require.NoError(t, reg.DestroyAll(ctx, alice), "repeat is a no-op")
}

// destroyAfterRead ends the user's sessions right after a read, the way a
// concurrent logout-all lands between a request's lookup and its refresh.
type destroyAfterRead struct {
	*store.RedisStore
}

func (d destroyAfterRead) GetSession(ctx context.Context, id string) (*store.SessionRecord, error) {
	rec, err := d.RedisStore.GetSession(ctx, id)
	if err == nil {
		d.RedisStore.DeleteUserSessions(ctx, rec.UserID)
	}
	return rec, err
}

func TestRefreshRacingDestroy(t *testing.T) {
	ctx := context.Background()
	rs, _ := testutil.NewRedis(t)
	userID := newUserID(t)

	id, err := NewRegistry(rs, 0).Create(ctx, userID)
	require.NoError(t, err)

	res, err := NewRegistry(destroyAfterRead{rs}, 0).ValidateAndRefresh(ctx, id)
	require.NoError(t, err)
	assert.False(t, res.Valid, "refresh must not outlive the destroy")

	_, err = rs.GetSession(ctx, id)
	assert.ErrorIs(t, err, store.ErrCacheMiss, "session stays destroyed")
	ids, err := rs.UserSessionIDs(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestInfoUnknown(t *testing.T) {
	rs, _ := testutil.NewRedis(t)
	reg := NewRegistry(rs, 0)

	info, ok, err := reg.Info(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, info)
}
