package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`

// Locker acquires best-effort distributed locks via Redis SET NX. It guards
// the periodic refresh sweep against concurrent workers.
type Locker struct {
	rdb *redis.Client
}

// New constructs a Locker.
func New(rdb *redis.Client) *Locker {
	return &Locker{rdb: rdb}
}

// Acquire attempts to take the named lock for ttl. On success it returns a
// release function that only deletes the lock if still held by this owner.
func (l *Locker) Acquire(ctx context.Context, name string, ttl time.Duration) (release func(context.Context), ok bool, err error) {
	if l == nil || l.rdb == nil {
		return func(context.Context) {}, true, nil
	}
	token := uuid.NewString()
	key := "lock:" + name
	ok, err = l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil || !ok {
		return nil, false, err
	}
	release = func(ctx context.Context) {
		_ = l.rdb.Eval(ctx, releaseScript, []string{key}, token).Err()
	}
	return release, true, nil
}
