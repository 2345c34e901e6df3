package rankcache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBackend_SetGet(t *testing.T) {
	m := NewMemoryBackend(16)
	ctx := context.Background()

	value, found, err := m.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, value)

	require.NoError(t, m.Set(ctx, "k1", []byte("v1"), time.Hour))
	value, found, err = m.Get(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("v1"), value)
}

func TestMemoryBackend_Expiry(t *testing.T) {
	m := NewMemoryBackend(16)
	ctx := context.Background()

	now := time.Now()
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "k1", []byte("v1"), time.Hour))

	now = now.Add(2 * time.Hour)
	_, found, err := m.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, found)
	// The expired entry was removed on read.
	assert.Equal(t, 0, m.Len())
}

func TestMemoryBackend_EvictsAtCapacity(t *testing.T) {
	m := NewMemoryBackend(3)
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c", "d"} {
		require.NoError(t, m.Set(ctx, key, []byte(key), time.Hour))
	}
	assert.Equal(t, 3, m.Len())
}

func TestMemoryBackend_EvictionPrefersExpired(t *testing.T) {
	m := NewMemoryBackend(2)
	ctx := context.Background()

	now := time.Now()
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "stale", []byte("x"), time.Minute))
	require.NoError(t, m.Set(ctx, "fresh", []byte("y"), time.Hour))

	now = now.Add(10 * time.Minute)
	require.NoError(t, m.Set(ctx, "new", []byte("z"), time.Hour))

	_, found, _ := m.Get(ctx, "fresh")
	assert.True(t, found, "live entry must survive eviction while an expired one exists")
	_, found, _ = m.Get(ctx, "new")
	assert.True(t, found)
}

func TestMemoryBackend_DeletePrefix(t *testing.T) {
	m := NewMemoryBackend(16)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "rank:v1:aaa", []byte("1"), time.Hour))
	require.NoError(t, m.Set(ctx, "rank:v1:bbb", []byte("2"), time.Hour))
	require.NoError(t, m.Set(ctx, "other:ccc", []byte("3"), time.Hour))

	removed, err := m.DeletePrefix(ctx, "rank:")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, m.Len())
}

func newMiniredisBackend(t *testing.T) (*RedisBackend, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisBackend(client, 200*time.Millisecond), mr
}

func TestRedisBackend_SetGet(t *testing.T) {
	backend, mr := newMiniredisBackend(t)
	ctx := context.Background()

	_, found, err := backend.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, backend.Set(ctx, "k1", []byte("v1"), time.Hour))
	value, found, err := backend.Get(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("v1"), value)

	// TTL was applied.
	ttl := mr.TTL("k1")
	assert.Greater(t, ttl, time.Duration(0))
}

func TestRedisBackend_Expiry(t *testing.T) {
	backend, mr := newMiniredisBackend(t)
	ctx := context.Background()

	require.NoError(t, backend.Set(ctx, "k1", []byte("v1"), time.Minute))
	mr.FastForward(2 * time.Minute)

	_, found, err := backend.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisBackend_DeletePrefix(t *testing.T) {
	backend, _ := newMiniredisBackend(t)
	ctx := context.Background()

	require.NoError(t, backend.Set(ctx, "rank:v1:aaa", []byte("1"), time.Hour))
	require.NoError(t, backend.Set(ctx, "rank:v1:bbb", []byte("2"), time.Hour))
	require.NoError(t, backend.Set(ctx, "other:ccc", []byte("3"), time.Hour))

	removed, err := backend.DeletePrefix(ctx, "rank:")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	_, found, err := backend.Get(ctx, "other:ccc")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestRedisBackend_DeletePrefixIsBounded(t *testing.T) {
	backend, _ := newMiniredisBackend(t)

	// The scan loop runs under a deadline like every other operation; an
	// expired context stops it instead of iterating on.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := backend.DeletePrefix(ctx, "rank:")
	assert.Error(t, err)
}

func TestRedisBackend_GetErrorWhenDown(t *testing.T) {
	backend, mr := newMiniredisBackend(t)
	mr.Close()

	_, _, err := backend.Get(context.Background(), "k1")
	assert.Error(t, err)
}
