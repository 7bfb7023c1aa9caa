package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStoreConfig(t *testing.T) {
	config := DefaultRedisConfig("localhost:6379")

	assert.Equal(t, "localhost:6379", config.Addr)
	assert.Equal(t, 20, config.PoolSize)
	assert.Equal(t, DefaultKeyPrefix, config.KeyPrefix)
}

func TestRedisStoreKey(t *testing.T) {
	store := NewRedisStore(DefaultRedisConfig("localhost:6379"))
	defer store.Close()

	assert.Equal(t, "dqrules:session:abc", store.key("abc"))
}

func newMiniredisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreFromClient(client, "test:")
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func TestRedisStore(t *testing.T) {
	store, mr := newMiniredisStore(t)
	ctx := context.Background()

	t.Run("Set and Get", func(t *testing.T) {
		sess := NewSession("s1", time.Hour)
		sess.Model = "people"
		sess.Columns = []string{"id"}
		sess.Rules = "expectations: []\n"
		require.NoError(t, store.Set(ctx, "s1", sess, time.Hour))

		assert.True(t, mr.Exists("test:s1"))
		assert.Equal(t, time.Hour, mr.TTL("test:s1"))
		assert.Equal(t, "expectations: []\n", mr.HGet("test:s1", "rules"))
		assert.Equal(t, `["id"]`, mr.HGet("test:s1", "columns"))

		got, err := store.Get(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, "people", got.Model)
		assert.Equal(t, []string{"id"}, got.Columns)
		assert.Equal(t, "expectations: []\n", got.Rules)
	})

	t.Run("Get missing", func(t *testing.T) {
		_, err := store.Get(ctx, "missing")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("Key expiry", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "short", NewSession("short", time.Minute), time.Minute))
		mr.FastForward(2 * time.Minute)

		_, err := store.Get(ctx, "short")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("Refresh", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "r", NewSession("r", time.Minute), time.Minute))
		require.NoError(t, store.Refresh(ctx, "r", 2*time.Hour))
		assert.Equal(t, 2*time.Hour, mr.TTL("test:r"))

		got, err := store.Get(ctx, "r")
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().Add(2*time.Hour), got.ExpiresAt, 5*time.Second)

		assert.ErrorIs(t, store.Refresh(ctx, "missing", time.Hour), ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "s1"))
		assert.False(t, mr.Exists("test:s1"))
	})

	t.Run("Corrupt payload", func(t *testing.T) {
		require.NoError(t, mr.Set("test:bad", "not a hash"))
		_, err := store.Get(ctx, "bad")
		assert.Error(t, err)

		mr.HSet("test:cols", "columns", "{", "created_at", "x")
		_, err = store.Get(ctx, "cols")
		assert.ErrorContains(t, err, "invalid columns field")
	})

	t.Run("Set replaces stale fields", func(t *testing.T) {
		mr.HSet("test:s2", "extra", "1")
		require.NoError(t, store.Set(ctx, "s2", NewSession("s2", time.Hour), time.Hour))
		assert.Empty(t, mr.HGet("test:s2", "extra"))
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, store.Ping(ctx))
	})
}

func TestRedisStoreUnavailable(t *testing.T) {
	store, mr := newMiniredisStore(t)
	mr.Close()

	_, err := store.Get(context.Background(), "s1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionNotFound)
}
