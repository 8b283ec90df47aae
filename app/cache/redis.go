package cache

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultTTL = 6 * time.Hour
	keyPrefix  = "steno:archive:"
)

// Cache stores raw archive responses in Redis. Lookup and store failures are
// logged and treated as misses.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(ctx context.Context, addr string, ttl time.Duration) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}

	slog.Debug("Connected to Redis", "addr", addr, "ttl", ttl.String())

	return &Cache{client: client, ttl: ttl}, nil
}

// Key maps an archive path to its cache key.
func Key(path string) string {
	hash := sha256.Sum256([]byte(path))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:8])
}

func (c *Cache) Get(ctx context.Context, path string) ([]byte, bool) {
	data, err := c.client.Get(ctx, Key(path)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		slog.Warn("Cache lookup failed", "path", path, "error", err)
		return nil, false
	}
	return data, true
}

func (c *Cache) Set(ctx context.Context, path string, data []byte) {
	if err := c.client.Set(ctx, Key(path), data, c.ttl).Err(); err != nil {
		slog.Warn("Cache store failed", "path", path, "error", err)
	}
}

func (c *Cache) Close() error {
	return c.client.Close()
}
