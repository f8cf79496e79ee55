// Package memstore is an in-memory domain.KVStore for tests and ephemeral runs.
package memstore

import (
	"errors"
	"sync"
)

// ErrUnavailable is returned by every operation while the store is failing.
var ErrUnavailable = errors.New("memstore: unavailable")

// Store is a map-backed key-value store.
type Store struct {
	mu      sync.RWMutex
	data    map[string]string
	failing bool
}

// New creates an empty store.
func New() *Store {
	return &Store{data: make(map[string]string)}
}

// Get returns "" for absent keys.
func (s *Store) Get(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failing {
		return "", ErrUnavailable
	}
	return s.data[key], nil
}

// Set stores value under key.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return ErrUnavailable
	}
	s.data[key] = value
	return nil
}

// Delete removes key.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return ErrUnavailable
	}
	delete(s.data, key)
	return nil
}

// SetFailing makes every operation fail until cleared. Used to simulate an
// unavailable backend.
func (s *Store) SetFailing(failing bool) {
	s.mu.Lock()
	s.failing = failing
	s.mu.Unlock()
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
