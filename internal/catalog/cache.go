package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a JSON cache-aside helper for listing responses.
type Cache struct {
	R   *redis.Client
	TTL time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cache{R: client, TTL: ttl}
}

func (c *Cache) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if c == nil || c.R == nil {
		return false, nil
	}
	raw, err := c.R.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Cache) SetJSON(ctx context.Context, key string, value any) error {
	if c == nil || c.R == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.R.Set(ctx, key, raw, c.TTL).Err()
}
