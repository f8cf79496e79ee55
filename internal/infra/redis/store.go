package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// Store adapts Client to domain.KVStore. Keys have no TTL.
type Store struct {
	c *Client
}

// NewStore returns a key-value store over c.
func NewStore(c *Client) *Store {
	return &Store{c: c}
}

// Get returns "" when the key is absent.
func (s *Store) Get(key string) (string, error) {
	ctx, cancel := s.c.opContext(context.Background())
	defer cancel()

	v, err := s.c.rdb.Get(ctx, s.c.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, err
}

// Set stores value under key.
func (s *Store) Set(key, value string) error {
	ctx, cancel := s.c.opContext(context.Background())
	defer cancel()
	return s.c.rdb.Set(ctx, s.c.key(key), value, 0).Err()
}

// Delete removes key.
func (s *Store) Delete(key string) error {
	ctx, cancel := s.c.opContext(context.Background())
	defer cancel()
	return s.c.rdb.Del(ctx, s.c.key(key)).Err()
}
