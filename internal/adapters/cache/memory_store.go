package cache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// MemoryResultStore is a bounded in-process result store. It is used when
// Redis is disabled; the least recently used entries are evicted first.
type MemoryResultStore struct {
	entries *lru.Cache[string, []byte]
}

// NewMemoryResultStore creates a store holding at most size entries
func NewMemoryResultStore(size int) (*MemoryResultStore, error) {
	entries, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory result store: %w", err)
	}
	return &MemoryResultStore{entries: entries}, nil
}

// Get retrieves a value
func (s *MemoryResultStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, ok := s.entries.Get(key)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

// Set stores a copy of value
func (s *MemoryResultStore) Set(_ context.Context, key string, value []byte) error {
	s.entries.Add(key, append([]byte(nil), value...))
	return nil
}

// Remove deletes a value
func (s *MemoryResultStore) Remove(_ context.Context, key string) error {
	s.entries.Remove(key)
	return nil
}

// RemoveMatching deletes every key match accepts
func (s *MemoryResultStore) RemoveMatching(_ context.Context, match func(key string) bool) (int, error) {
	removed := 0
	for _, key := range s.entries.Keys() {
		if match(key) && s.entries.Remove(key) {
			removed++
		}
	}
	return removed, nil
}

// Keys lists every key, oldest first
func (s *MemoryResultStore) Keys(_ context.Context) ([]string, error) {
	return s.entries.Keys(), nil
}

// Len returns the number of entries held
func (s *MemoryResultStore) Len() int {
	return s.entries.Len()
}
