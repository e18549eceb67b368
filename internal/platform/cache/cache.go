// Package cache provides a small Redis-backed JSON cache. It is optional:
// callers treat a nil *Cache as "no caching".
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// Config holds Redis connection settings.
type Config struct {
	URL string `yaml:"url" env:"REDIS_URL"`
	TTL int    `yaml:"ttl_seconds" env:"CACHE_TTL_SECONDS"`
}

// Cache wraps a Redis client with JSON marshalling and a fixed TTL.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// ErrMiss reports a key that is absent or expired.
var ErrMiss = errors.New("cache miss")

// New connects to Redis. An empty URL yields a nil cache and no error.
func New(ctx context.Context, cfg Config) (*Cache, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	ttl := time.Duration(cfg.TTL) * time.Second
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Cache{client: client, ttl: ttl}, nil
}

// Get unmarshals the cached value for key into dst.
func (c *Cache) Get(ctx context.Context, key string, dst interface{}) error {
	if c == nil {
		return ErrMiss
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrMiss
		}
		return err
	}
	return json.Unmarshal(raw, dst)
}

// Set stores value under key for the configured TTL.
func (c *Cache) Set(ctx context.Context, key string, value interface{}) error {
	if c == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}

// Close releases the underlying client.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
