package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// DefaultMemoryBytes bounds a MemoryStore when no size is given.
const DefaultMemoryBytes = 64 << 20

// MemoryStore is an in-process Store bounded by total artifact size.
type MemoryStore struct {
	cache *ristretto.Cache[string, []byte]
	ttl   time.Duration
}

// NewMemoryStore creates a store holding up to maxBytes of artifacts.
func NewMemoryStore(maxBytes int64, ttl time.Duration) (*MemoryStore, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMemoryBytes
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		// Roughly ten counters per entry of a few kilobytes.
		NumCounters:        maxBytes / 256,
		MaxCost:            maxBytes,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}
	return &MemoryStore{cache: c, ttl: ttl}, nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.cache.Get(key)
	return v, ok, nil
}

// Set implements Store. The write is flushed before returning so that an
// immediate Get observes it.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	if s.ttl > 0 {
		s.cache.SetWithTTL(key, value, int64(len(value)), s.ttl)
	} else {
		s.cache.Set(key, value, int64(len(value)))
	}
	s.cache.Wait()
	return nil
}

// Purge drops every entry.
func (s *MemoryStore) Purge(context.Context) error {
	s.cache.Clear()
	return nil
}

// Close releases the cache.
func (s *MemoryStore) Close() error {
	s.cache.Close()
	return nil
}
