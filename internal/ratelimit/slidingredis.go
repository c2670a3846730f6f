package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "farmgate:rl:"

// Decision is the outcome of one limiter check.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter is a sliding-window rate limiter on Redis sorted sets. Each
// request is a timestamped member; the window is trimmed and counted in
// one pipeline so concurrent checks stay consistent.
type Limiter struct {
	Client *redis.Client
	Prefix string
}

// Allow records an event under key and reports whether it fits the
// window. A nil client or non-positive limits disable limiting.
func (l Limiter) Allow(ctx context.Context, key string, window time.Duration, max int) (Decision, error) {
	if l.Client == nil || max <= 0 || window <= 0 {
		return Decision{Allowed: true, Remaining: max, ResetAt: time.Now().Add(window)}, nil
	}

	prefix := l.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	now := time.Now()
	resetAt := now.Add(window)
	redisKey := prefix + key

	pipe := l.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", fmt.Sprintf("%f", float64(now.Add(-window).UnixNano())))
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: uuid.NewString()})
	countCmd := pipe.ZCard(ctx, redisKey)
	pipe.Expire(ctx, redisKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{ResetAt: resetAt}, err
	}

	current := int(countCmd.Val())
	remaining := max - current
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: current <= max, Remaining: remaining, ResetAt: resetAt}, nil
}
