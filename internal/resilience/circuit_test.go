package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBreakerOpensOnFailureRatio(t *testing.T) {
	b := NewBreaker(BreakerConfig{MinRequests: 4, FailureRatio: 0.5, OpenFor: time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.True(t, b.Allow(ctx))
		b.Report(ctx, true)
	}
	for i := 0; i < 2; i++ {
		require.True(t, b.Allow(ctx))
		b.Report(ctx, false)
	}

	require.False(t, b.Allow(ctx), "breaker open after 50% failures over min requests")
}

func TestBreakerSlidingWindowForgetsOldOutcomes(t *testing.T) {
	b := NewBreaker(BreakerConfig{MinRequests: 3, FailureRatio: 0.9, OpenFor: time.Minute})
	ctx := context.Background()

	b.Report(ctx, false)
	b.Report(ctx, false)
	for i := 0; i < 6; i++ {
		b.Report(ctx, true)
	}
	require.True(t, b.Allow(ctx), "early failures aged out of the window")

	// a fresh burst of failures still trips it
	for i := 0; i < 6; i++ {
		b.Report(ctx, false)
	}
	require.False(t, b.Allow(ctx))
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	b := NewBreaker(BreakerConfig{MinRequests: 1, FailureRatio: 0.5, OpenFor: 10 * time.Millisecond})
	ctx := context.Background()

	require.True(t, b.Allow(ctx))
	b.Report(ctx, false)
	require.False(t, b.Allow(ctx))

	time.Sleep(15 * time.Millisecond)
	require.True(t, b.Allow(ctx), "cool-off expired, probe allowed")

	b.Report(ctx, true)
	require.True(t, b.Allow(ctx), "successful probe closes the breaker")
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b := NewBreaker(BreakerConfig{MinRequests: 1, FailureRatio: 0.5, OpenFor: 10 * time.Millisecond})
	ctx := context.Background()

	require.True(t, b.Allow(ctx))
	b.Report(ctx, false)

	time.Sleep(15 * time.Millisecond)
	require.True(t, b.Allow(ctx))
	b.Report(ctx, false)
	require.False(t, b.Allow(ctx), "failed probe reopens the breaker")
}

func TestBreakerHalfOpenProbeBudget(t *testing.T) {
	b := NewBreaker(BreakerConfig{MinRequests: 1, FailureRatio: 0.5, OpenFor: 5 * time.Millisecond, Probes: 2})
	ctx := context.Background()

	require.True(t, b.Allow(ctx))
	b.Report(ctx, false)
	time.Sleep(10 * time.Millisecond)

	require.True(t, b.Allow(ctx))
	require.True(t, b.Allow(ctx))
	require.False(t, b.Allow(ctx), "only the configured probes pass while half-open")

	b.Report(ctx, true)
	require.False(t, b.Allow(ctx), "still half-open until every probe succeeded")
	b.Report(ctx, true)
	require.True(t, b.Allow(ctx), "all probes succeeded, breaker closed")
}

func TestBackoffGrowsExponentially(t *testing.T) {
	base := 100 * time.Millisecond
	require.Equal(t, base, Backoff(base, 1, 0))
	require.Equal(t, 2*base, Backoff(base, 2, 0))
	require.Equal(t, 4*base, Backoff(base, 3, 0))
}

func TestBackoffJitterStaysBounded(t *testing.T) {
	base := 100 * time.Millisecond
	for i := 0; i < 50; i++ {
		d := Backoff(base, 2, 0.2)
		require.GreaterOrEqual(t, d, time.Duration(float64(2*base)*0.8))
		require.LessOrEqual(t, d, time.Duration(float64(2*base)*1.2))
	}
}
