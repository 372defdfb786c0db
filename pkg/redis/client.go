package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/newyorkwoo/buyStock/pkg/config"
)

const defaultPingTimeout = 3 * time.Second

// ErrDisabled is returned by Ping when REDIS_ENABLED is off
var ErrDisabled = errors.New("redis disabled")

// Client owns the go-redis connection and the key namespace shared by the
// report cache and the fetch rate limiter.
// A disabled client is valid; every helper built on it degrades to a no-op.
// ⭐ SSOT: Redis 연결은 여기서만 관리
type Client struct {
	rdb    *redis.Client
	prefix string
}

// New connects to Redis when cfg.Redis.Enabled, otherwise returns a disabled client
func New(cfg *config.Config) (*Client, error) {
	prefix := cfg.Redis.Prefix
	if prefix == "" {
		prefix = "buystock"
	}
	if !cfg.Redis.Enabled {
		return &Client{prefix: prefix}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:       fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		ClientName: prefix,
	})

	timeout := cfg.Redis.PingTimeout
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis connection failed (%s:%s): %w", cfg.Redis.Host, cfg.Redis.Port, err)
	}

	return &Client{rdb: rdb, prefix: prefix}, nil
}

// Enabled reports whether a live connection backs the client
func (c *Client) Enabled() bool {
	return c != nil && c.rdb != nil
}

// Prefix returns the key namespace
func (c *Client) Prefix() string {
	return c.prefix
}

// Key joins parts under the client namespace, e.g. buystock:cache:cycles:...
func (c *Client) Key(parts ...string) string {
	return c.prefix + ":" + strings.Join(parts, ":")
}

// Ping measures a round trip
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	if !c.Enabled() {
		return 0, ErrDisabled
	}
	start := time.Now()
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return 0, fmt.Errorf("redis ping: %w", err)
	}
	return time.Since(start), nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	if c.Enabled() {
		return c.rdb.Close()
	}
	return nil
}
