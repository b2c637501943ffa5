package panel

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"
)

// RedisCache stores values as strings in Redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache wraps a connected client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Dial creates a Redis client and checks connectivity.
func Dial(ctx context.Context, address, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

// GetBool returns the boolean stored under key.
func (c *RedisCache) GetBool(ctx context.Context, key string) (bool, error) {
	raw, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, ErrNotFound
		}

		return false, fmt.Errorf("get %s: %w", key, err)
	}

	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q", errNotBool, key, raw)
	}

	return value, nil
}

// SetBool stores value under key without expiry.
func (c *RedisCache) SetBool(ctx context.Context, key string, value bool) error {
	if err := c.client.Set(ctx, key, strconv.FormatBool(value), 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}

	return nil
}
