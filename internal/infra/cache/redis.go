package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis shares cache entries between instances. Failures degrade to cache misses.
type Redis struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedis connects using a redis:// URL and verifies the connection.
func NewRedis(rawURL string) (*Redis, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisWithClient(client, ""), nil
}

func NewRedisWithClient(client *redis.Client, keyPrefix string) *Redis {
	if keyPrefix == "" {
		keyPrefix = "tt:cache:"
	}
	return &Redis{client: client, keyPrefix: keyPrefix}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := r.client.Get(ctx, r.keyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			zap.L().Warn("redis get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return val, true
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := r.client.Set(ctx, r.keyPrefix+key, value, ttl).Err(); err != nil {
		zap.L().Warn("redis set failed", zap.String("key", key), zap.Error(err))
	}
}

func (r *Redis) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.keyPrefix + k
	}
	if err := r.client.Del(ctx, full...).Err(); err != nil {
		zap.L().Warn("redis delete failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
