package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "farmgate:lock:"

// ErrNotAcquired is returned when the lock could not be taken before the
// wait budget ran out.
var ErrNotAcquired = errors.New("lock: not acquired")

// releaseScript deletes the key only when it still holds our token, so an
// expired lock re-acquired by someone else is never released by us.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`

// Locker is a Redis-backed mutual exclusion helper. It is advisory: callers
// use it to reduce contention, not as the source of correctness.
type Locker struct {
	R       *redis.Client
	Retry   time.Duration // poll interval while waiting, default 50ms
	MaxWait time.Duration // total acquisition budget, default 2s
}

// WithLock runs fn while holding key. The lock expires after ttl even if
// the holder dies; release is best effort. Returns ErrNotAcquired when the
// wait budget elapses first.
func (l Locker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if l.R == nil {
		return errors.New("lock: redis client not configured")
	}
	if fn == nil {
		return errors.New("lock: nil callback")
	}
	if ttl <= 0 {
		ttl = 10 * time.Second
	}

	token, err := l.acquire(ctx, keyPrefix+key, ttl)
	if err != nil {
		return err
	}
	defer l.release(keyPrefix+key, token)
	return fn(ctx)
}

func (l Locker) acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	retry := l.Retry
	if retry <= 0 {
		retry = 50 * time.Millisecond
	}
	maxWait := l.MaxWait
	if maxWait <= 0 {
		maxWait = 2 * time.Second
	}
	deadline := time.Now().Add(maxWait)
	token := uuid.NewString()

	for {
		ok, err := l.R.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return "", fmt.Errorf("lock: acquire %s: %w", key, err)
		}
		if ok {
			return token, nil
		}
		if time.Now().After(deadline) {
			return "", ErrNotAcquired
		}
		timer := time.NewTimer(retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}
}

// release uses a fresh context so the unlock still happens when the
// caller's context is already cancelled.
func (l Locker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = l.R.Eval(ctx, releaseScript, []string{key}, token).Err()
}
