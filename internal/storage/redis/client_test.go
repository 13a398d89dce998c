package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, now *time.Time) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), 10*time.Second, 5)
	c.now = func() time.Time { return *now }
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestAllow_SlidingWindow(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c, _ := newTestClient(t, &now)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		ok, err := c.Allow(ctx, "sess")
		require.NoError(t, err)
		require.True(t, ok, "send %d", i+1)
	}
	ok, err := c.Allow(ctx, "sess")
	require.NoError(t, err)
	require.False(t, ok)

	now = now.Add(10*time.Second + time.Millisecond)
	ok, err = c.Allow(ctx, "sess")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestAllow_KeyExpiresWithWindow(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c, mr := newTestClient(t, &now)
	ctx := context.Background()

	ok, err := c.Allow(ctx, "sess")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, mr.Exists(keyPrefix+"sess"))
	require.Equal(t, 10*time.Second, mr.TTL(keyPrefix+"sess"))
}

func TestReset(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c, mr := newTestClient(t, &now)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := c.Allow(ctx, "sess")
		require.NoError(t, err)
	}
	require.NoError(t, c.Reset(ctx, "sess"))
	require.False(t, mr.Exists(keyPrefix+"sess"))

	ok, err := c.Allow(ctx, "sess")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestAllow_RedisDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	c := NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}), 10*time.Second, 5)
	t.Cleanup(func() { _ = c.Close() })
	mr.Close()

	_, err = c.Allow(context.Background(), "sess")
	require.Error(t, err)
}
