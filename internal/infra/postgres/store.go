// Package postgres implements the PostgreSQL key-value backend.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrConnectionClosed indicates the pool is closed.
	ErrConnectionClosed = errors.New("postgres: connection pool is closed")

	// ErrMigrationFailed indicates the schema could not be created.
	ErrMigrationFailed = errors.New("postgres: migration failed")
)

// Config holds PostgreSQL connection configuration.
type Config struct {
	// DSN is a libpq connection string or postgres:// URL.
	DSN string

	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration

	// OpTimeout bounds each store operation.
	OpTimeout time.Duration
}

// DefaultConfig returns pool defaults; DSN must still be set.
func DefaultConfig() Config {
	return Config{
		MaxConns:        4,
		MinConns:        1,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
		OpTimeout:       5 * time.Second,
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS kv_store (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Store is a domain.KVStore backed by a pgx pool.
type Store struct {
	pool    *pgxpool.Pool
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
}

// Open creates the pool, pings it and ensures the kv_store table exists.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = 5 * time.Second
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %v", ErrMigrationFailed, err)
	}

	return &Store{pool: pool, timeout: cfg.OpTimeout}, nil
}

func (s *Store) acquire() (context.Context, context.CancelFunc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, nil, ErrConnectionClosed
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	return ctx, cancel, nil
}

// Get returns "" when the key is absent.
func (s *Store) Get(key string) (string, error) {
	ctx, cancel, err := s.acquire()
	if err != nil {
		return "", err
	}
	defer cancel()

	var v string
	err = s.pool.QueryRow(ctx, `SELECT value FROM kv_store WHERE key = $1`, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return v, err
}

// Set upserts value under key.
func (s *Store) Set(key, value string) error {
	ctx, cancel, err := s.acquire()
	if err != nil {
		return err
	}
	defer cancel()

	_, err = s.pool.Exec(ctx, `
		INSERT INTO kv_store (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		key, value)
	return err
}

// Delete removes key.
func (s *Store) Delete(key string) error {
	ctx, cancel, err := s.acquire()
	if err != nil {
		return err
	}
	defer cancel()

	_, err = s.pool.Exec(ctx, `DELETE FROM kv_store WHERE key = $1`, key)
	return err
}

// Ping checks connectivity.
func (s *Store) Ping() error {
	ctx, cancel, err := s.acquire()
	if err != nil {
		return err
	}
	defer cancel()
	return s.pool.Ping(ctx)
}

// Close closes the pool. Further calls return ErrConnectionClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.pool.Close()
	return nil
}
