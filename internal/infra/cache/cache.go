// Package cache memoizes short-lived reads (subscription lookups) behind a
// TTL. The implementation is injected: in-memory for single instances, Redis
// when several instances share state.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, keys ...string)
	Ping(ctx context.Context) error
}

// Remember returns the cached value for key, or calls load and caches its
// result for ttl. Load errors are returned and never cached.
func Remember[T any](ctx context.Context, c Cache, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	if c != nil {
		if raw, ok := c.Get(ctx, key); ok {
			var v T
			if err := json.Unmarshal(raw, &v); err == nil {
				return v, nil
			}
			zap.L().Debug("cache entry undecodable, reloading", zap.String("key", key))
		}
	}

	v, err := load()
	if err != nil {
		return v, err
	}

	if c != nil {
		if raw, err := json.Marshal(v); err == nil {
			c.Set(ctx, key, raw, ttl)
		}
	}
	return v, nil
}
