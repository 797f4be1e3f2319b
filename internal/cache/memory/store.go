// Package memory provides an in-process cache store. It is the default
// backend for single-instance deployments; shared deployments use the Redis
// store so all replicas see the same entries.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/assetlink-cloud/assetlink/internal/cache"
)

// Compile-time check: Store implements cache.Store.
var _ cache.Store = (*Store)(nil)

type entry struct {
	data      []byte
	expiresAt time.Time
}

// Store is a mutex-guarded map with per-entry expiry. Expired entries are
// removed lazily on read; there is no background sweep. The key space is
// bounded by inventory size times configuration, so no capacity bound is kept.
type Store struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// NewStore creates an empty in-process store.
func NewStore() *Store {
	return &Store{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get retrieves a value by key. Expired entries count as absent.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, cache.ErrKeyNotFound
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return nil, cache.ErrKeyNotFound
	}
	return e.data, nil
}

// SetWithTTL stores a value with an expiration.
func (s *Store) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = entry{data: value, expiresAt: s.now().Add(ttl)}
	return nil
}

// Ping reports store availability; an in-process map is always available.
func (s *Store) Ping(_ context.Context) error { return nil }
