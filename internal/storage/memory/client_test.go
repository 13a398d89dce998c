package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

func TestAllow_FiveInWindowThenReject(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	c := New(10*time.Second, 5, WithClock(clk.Now))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		ok, err := c.Allow(ctx, "s1")
		require.NoError(t, err)
		require.True(t, ok, "send %d", i+1)
		clk.Advance(time.Second)
	}
	ok, err := c.Allow(ctx, "s1")
	require.NoError(t, err)
	require.False(t, ok)

	// Другая сессия не затронута.
	ok, err = c.Allow(ctx, "s2")
	require.NoError(t, err)
	require.True(t, ok)

	// Первая отметка (t0) выпадает из окна через 10с после неё.
	clk.Advance(5 * time.Second)
	ok, err = c.Allow(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestAllow_RejectedAttemptsAreNotRecorded(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	c := New(10*time.Second, 5, WithClock(clk.Now))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		ok, _ := c.Allow(ctx, "s")
		require.True(t, ok)
	}
	for i := 0; i < 20; i++ {
		ok, _ := c.Allow(ctx, "s")
		require.False(t, ok)
	}
	clk.Advance(10*time.Second + time.Millisecond)
	for i := 0; i < 5; i++ {
		ok, _ := c.Allow(ctx, "s")
		require.True(t, ok)
	}
}

func TestReset_ClearsSession(t *testing.T) {
	c := New(0, 0)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		ok, _ := c.Allow(ctx, "s")
		require.True(t, ok)
	}
	ok, _ := c.Allow(ctx, "s")
	require.False(t, ok)
	require.Equal(t, 1, c.Sessions())

	require.NoError(t, c.Reset(ctx, "s"))
	require.Equal(t, 0, c.Sessions())
	ok, _ = c.Allow(ctx, "s")
	require.True(t, ok)
}

func TestAllow_ConcurrentSameSession(t *testing.T) {
	c := New(time.Minute, 5)
	ctx := context.Background()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := c.Allow(ctx, "s"); ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 5, allowed)
}

func TestPrune_DropsIdleSessions(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	c := New(10*time.Second, 5, WithClock(clk.Now))
	ctx := context.Background()

	_, _ = c.Allow(ctx, "old")
	clk.Advance(6 * time.Second)
	_, _ = c.Allow(ctx, "fresh")
	clk.Advance(5 * time.Second)

	require.Equal(t, 1, c.Prune())
	require.Equal(t, 1, c.Sessions())

	clk.Advance(10 * time.Second)
	require.Equal(t, 1, c.Prune())
	require.Zero(t, c.Sessions())
}
