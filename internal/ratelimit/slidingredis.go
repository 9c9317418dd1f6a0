package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SlidingRedis implements a sliding window rate limiter on a Redis sorted
// set per key. Entries are scored by timestamp and trimmed on every check.
type SlidingRedis struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
}

// NewSlidingRedis constructs a limiter allowing `limit` events per window.
func NewSlidingRedis(rdb *redis.Client, limit int, window time.Duration) *SlidingRedis {
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	return &SlidingRedis{rdb: rdb, limit: limit, window: window, prefix: "rl:"}
}

// Allow records one event for key and reports whether it fits the window.
// remaining is the number of events still available; reset is when the
// oldest counted event leaves the window.
func (s *SlidingRedis) Allow(ctx context.Context, key string) (allowed bool, remaining int, reset time.Time, err error) {
	now := time.Now()
	if s.now != nil {
		now = s.now()
	}
	windowStart := now.Add(-s.window)
	redisKey := s.prefix + key
	// members must be unique; same-instant requests still count separately
	member := uuid.NewString()

	pipe := s.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", fmt.Sprintf("%d", windowStart.UnixNano()))
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: member})
	countCmd := pipe.ZCard(ctx, redisKey)
	pipe.Expire(ctx, redisKey, s.window)
	if _, err = pipe.Exec(ctx); err != nil {
		return false, 0, now, err
	}

	count := int(countCmd.Val())
	allowed = count <= s.limit
	remaining = s.limit - count
	if remaining < 0 {
		remaining = 0
	}
	reset = now.Add(s.window)
	if !allowed {
		// the over-limit event should not count against future windows
		_ = s.rdb.ZRem(ctx, redisKey, member).Err()
	}
	return allowed, remaining, reset, nil
}

// Limit exposes the configured maximum for response headers.
func (s *SlidingRedis) Limit() int { return s.limit }
