// Package redis implements the Redis-backed key-value store and the shared
// leaderboard used by the ranking provider.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection configuration.
type Config struct {
	Addr     string
	Password string
	DB       int

	// Prefix namespaces every key, e.g. "dopamind:".
	Prefix string

	// OpTimeout bounds each store operation.
	OpTimeout time.Duration
}

// DefaultConfig returns a local-development configuration.
func DefaultConfig() Config {
	return Config{
		Addr:      "localhost:6379",
		Prefix:    "dopamind:",
		OpTimeout: 2 * time.Second,
	}
}

// ErrConnection is returned when the initial ping fails.
var ErrConnection = errors.New("redis: connection failed")

// Client wraps a go-redis client with the namespace and timeout policy.
type Client struct {
	rdb     *redis.Client
	prefix  string
	timeout time.Duration
}

// Open connects and pings the server.
func Open(cfg Config) (*Client, error) {
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = 2 * time.Second
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.OpTimeout,
		ReadTimeout:  cfg.OpTimeout,
		WriteTimeout: cfg.OpTimeout,
	})

	c := &Client{rdb: rdb, prefix: cfg.Prefix, timeout: cfg.OpTimeout}
	if err := c.Ping(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	return c, nil
}

// Ping checks connectivity.
func (c *Client) Ping() error {
	ctx, cancel := c.opContext(context.Background())
	defer cancel()
	return c.rdb.Ping(ctx).Err()
}

// Close releases the connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) key(k string) string {
	return c.prefix + k
}

func (c *Client) opContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, c.timeout)
}
