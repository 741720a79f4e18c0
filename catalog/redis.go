// Package catalog provides a Redis-backed cache of the gateway tool catalog.
//
// The catalog changes rarely compared to how often it is read, so callers
// running many client instances can point them at one shared cache to
// de-duplicate catalog fetches. The cache stores the full descriptor list as
// one JSON value with a TTL; an expired or missing entry is a miss, never an
// error.
package catalog

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/manavgup/toolgate/tool"
)

// Defaults applied by NewRedisCache.
const (
	DefaultKey = "toolgate:catalog"
	DefaultTTL = 30 * time.Second
)

// RedisOptions configures the Redis connection and cache behavior.
type RedisOptions struct {
	// URL is the Redis connection string (e.g., "redis://localhost:6379").
	URL string

	// Key is the Redis key holding the catalog. Defaults to DefaultKey.
	Key string

	// TTL is how long a stored catalog stays fresh. Defaults to DefaultTTL.
	TTL time.Duration

	// TLS configuration for secure connections.
	TLS *tls.Config

	// ConnectTimeout is the maximum time to wait for connection establishment.
	ConnectTimeout time.Duration
}

// RedisCache implements the gateway's CatalogCache interface using go-redis/v9.
type RedisCache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisCache creates a catalog cache backed by the given Redis instance.
// The connection is verified with a ping before the cache is returned.
func NewRedisCache(opts RedisOptions) (*RedisCache, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}
	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 5 * time.Second
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	redisOpts.TLSConfig = opts.TLS
	redisOpts.DialTimeout = opts.ConnectTimeout

	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{
		client: client,
		key:    opts.Key,
		ttl:    opts.TTL,
	}, nil
}

// Get returns the cached catalog. A missing or expired key is a miss (ok
// false), not an error.
func (c *RedisCache) Get(ctx context.Context) ([]tool.Descriptor, bool, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read catalog from Redis: %w", err)
	}

	var descriptors []tool.Descriptor
	if err := json.Unmarshal(data, &descriptors); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached catalog: %w", err)
	}

	return descriptors, true, nil
}

// Put stores the catalog with the configured TTL.
func (c *RedisCache) Put(ctx context.Context, descriptors []tool.Descriptor) error {
	data, err := json.Marshal(descriptors)
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}

	if err := c.client.Set(ctx, c.key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write catalog to Redis: %w", err)
	}

	return nil
}

// Invalidate removes the cached catalog so the next ListTools refetches it.
func (c *RedisCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate catalog: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
