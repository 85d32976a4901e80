package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisSetGet(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)
	c := NewRedis(client)

	found, val, err := c.Get(ctx, "missing")
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, val)

	require.NoError(t, c.Set(ctx, "key", []byte("value"), 0))
	found, val, err = c.Get(ctx, "key")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("value"), val)
}

func TestRedisTTL(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	c := NewRedis(client)

	require.NoError(t, c.Set(ctx, "key", []byte("value"), time.Second))

	found, _, err := c.Get(ctx, "key")
	assert.NoError(t, err)
	assert.True(t, found)

	// miniredis expires keys on FastForward rather than wall time.
	mr.FastForward(2 * time.Second)

	found, _, err = c.Get(ctx, "key")
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestRedisPrefix(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	c := NewRedis(client, WithPrefix("app"))

	require.NoError(t, c.Set(ctx, "key", []byte("value"), 0))
	assert.True(t, mr.Exists("app:key"))

	found, val, err := c.Get(ctx, "key")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("value"), val)
}

func TestRedisClearRespectsPrefix(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	c := NewRedis(client, WithPrefix("app"))

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))
	require.NoError(t, mr.Set("other:key", "untouched"))

	require.NoError(t, c.Clear(ctx))

	hasA, _ := c.Contains(ctx, "a")
	hasB, _ := c.Contains(ctx, "b")
	assert.False(t, hasA)
	assert.False(t, hasB)
	assert.True(t, mr.Exists("other:key"))
}

func TestRedisRemoveAndContains(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)
	c := NewRedis(client)

	assert.NoError(t, c.Remove(ctx, "ghost"))

	require.NoError(t, c.Set(ctx, "key", []byte("value"), 0))
	has, err := c.Contains(ctx, "key")
	assert.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, c.Remove(ctx, "key"))
	has, err = c.Contains(ctx, "key")
	assert.NoError(t, err)
	assert.False(t, has)
}

func TestRedisBackendErrorIsMarked(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	c := NewRedis(client)

	mr.Close()
	_, _, err := c.Get(ctx, "key")
	require.Error(t, err)
	assert.True(t, IsBackend(err))
}
