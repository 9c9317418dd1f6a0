package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, limit int, window time.Duration) *SlidingRedis {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewSlidingRedis(rdb, limit, window)
}

func TestSlidingRedisAllowsUpToLimit(t *testing.T) {
	l := newTestLimiter(t, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, remaining, _, err := l.Allow(ctx, "ip:1.2.3.4")
		require.NoError(t, err)
		require.True(t, allowed, "request %d", i+1)
		require.Equal(t, 3-(i+1), remaining)
	}

	allowed, remaining, _, err := l.Allow(ctx, "ip:1.2.3.4")
	require.NoError(t, err)
	require.False(t, allowed)
	require.Equal(t, 0, remaining)
}

func TestSlidingRedisIsolatesKeys(t *testing.T) {
	l := newTestLimiter(t, 1, time.Minute)
	ctx := context.Background()

	allowed, _, _, err := l.Allow(ctx, "ip:1.1.1.1")
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, _, _, err = l.Allow(ctx, "ip:2.2.2.2")
	require.NoError(t, err)
	require.True(t, allowed, "a second client has its own window")
}

func TestSlidingRedisCountsSameInstantRequests(t *testing.T) {
	l := newTestLimiter(t, 2, time.Minute)
	frozen := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return frozen }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, remaining, _, err := l.Allow(ctx, "ip:9.9.9.9")
		require.NoError(t, err)
		require.True(t, allowed, "request %d at the same instant", i+1)
		require.Equal(t, 2-(i+1), remaining)
	}

	allowed, _, _, err := l.Allow(ctx, "ip:9.9.9.9")
	require.NoError(t, err)
	require.False(t, allowed, "identical timestamps must not collapse into one member")
}

func TestSlidingRedisRejectedEventNotCounted(t *testing.T) {
	l := newTestLimiter(t, 1, time.Minute)
	ctx := context.Background()

	allowed, _, _, err := l.Allow(ctx, "ip:1.2.3.4")
	require.NoError(t, err)
	require.True(t, allowed)

	for i := 0; i < 3; i++ {
		allowed, _, _, err = l.Allow(ctx, "ip:1.2.3.4")
		require.NoError(t, err)
		require.False(t, allowed)
	}
}
