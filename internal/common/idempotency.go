package common

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Idem provides first-writer-wins deduplication backed by Redis SET NX.
// Replayed webhook deliveries and duplicate form submissions share it.
type Idem struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewIdem constructs an Idem helper; ttl bounds how long a key blocks repeats.
func NewIdem(rdb *redis.Client, ttl time.Duration) *Idem {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Idem{rdb: rdb, ttl: ttl}
}

// Claim returns true when the caller is the first to present key. Redis
// errors are returned so callers can decide whether to fail open.
func (i *Idem) Claim(ctx context.Context, key string) (bool, error) {
	if i == nil || i.rdb == nil {
		return true, nil
	}
	return i.rdb.SetNX(ctx, "idem:"+key, "1", i.ttl).Result()
}
