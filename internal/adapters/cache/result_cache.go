package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/entities"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/providers"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/infrastructure/observability"
	"github.com/ReOpAu/react-starter-kit-sub002/pkg/cachekey"
	apperrors "github.com/ReOpAu/react-starter-kit-sub002/pkg/errors"
)

// CacheLookup is the result of a suggestions read
type CacheLookup struct {
	Hit  bool
	Data []entities.Suggestion
}

// WriteOptions controls a suggestions write
type WriteOptions struct {
	// Overwrite bypasses the preservation check
	Overwrite bool
}

// WriteOutcome reports what a suggestions write did
type WriteOutcome struct {
	Written       bool
	Preserved     bool
	ExistingCount int
	StoredCount   int
}

// CacheMetrics is a point-in-time snapshot of cache counters
type CacheMetrics struct {
	Hits          int64     `json:"hits"`
	Misses        int64     `json:"misses"`
	HitRate       float64   `json:"hitRate"`
	Writes        int64     `json:"writes"`
	Preservations int64     `json:"preservations"`
	LastAccess    time.Time `json:"lastAccess"`
}

// Lookups returns the number of reads counted
func (m CacheMetrics) Lookups() int64 {
	return m.Hits + m.Misses
}

// ResultCache is the only component that reads and writes the search and
// detail namespaces of the shared result store.
type ResultCache struct {
	store   providers.ResultStore
	metrics *observability.Metrics
	now     func() time.Time

	mu            sync.Mutex
	hits          int64
	misses        int64
	writes        int64
	preservations int64
	lastAccess    time.Time
}

// NewResultCache creates a result cache over store. metrics may be nil.
func NewResultCache(store providers.ResultStore, metrics *observability.Metrics) *ResultCache {
	return &ResultCache{
		store:   store,
		metrics: metrics,
		now:     time.Now,
	}
}

// GetSuggestions reads the suggestions stored under key and counts a hit or miss
func (c *ResultCache) GetSuggestions(ctx context.Context, key cachekey.Key) (CacheLookup, error) {
	data, found, err := c.read(ctx, key)
	if err != nil {
		return CacheLookup{}, err
	}
	c.recordAccess(ctx, cachekey.NamespaceSearch, found)
	if !found {
		return CacheLookup{}, nil
	}
	return CacheLookup{Hit: true, Data: data}, nil
}

// SetSuggestions writes suggestions under key. Unless opts.Overwrite is set, a
// write that would shrink a larger existing entry is dropped.
func (c *ResultCache) SetSuggestions(ctx context.Context, key cachekey.Key, suggestions []entities.Suggestion, opts WriteOptions) (WriteOutcome, error) {
	outcome := WriteOutcome{StoredCount: len(suggestions)}

	if !opts.Overwrite {
		existing, found, err := c.read(ctx, key)
		if err != nil {
			return outcome, err
		}
		if found {
			outcome.ExistingCount = len(existing)
		}
		if found && len(existing) > len(suggestions) {
			c.mu.Lock()
			c.preservations++
			c.mu.Unlock()
			observability.RecordCacheWrite(ctx, c.metrics, string(cachekey.NamespaceSearch), true)

			outcome.Preserved = true
			outcome.StoredCount = len(existing)
			return outcome, nil
		}
	}

	if suggestions == nil {
		suggestions = []entities.Suggestion{}
	}
	payload, err := json.Marshal(suggestions)
	if err != nil {
		return outcome, apperrors.Wrap(apperrors.CodeCacheWriteFailed, apperrors.ErrorContext{CacheKey: key.String()}, err)
	}
	if err := c.store.Set(ctx, key.String(), payload); err != nil {
		return outcome, apperrors.Wrap(apperrors.CodeCacheWriteFailed, apperrors.ErrorContext{CacheKey: key.String()}, err)
	}

	c.mu.Lock()
	c.writes++
	c.mu.Unlock()
	observability.RecordCacheWrite(ctx, c.metrics, string(cachekey.NamespaceSearch), false)

	outcome.Written = true
	return outcome, nil
}

// RemoveSuggestions deletes the entry under key
func (c *ResultCache) RemoveSuggestions(ctx context.Context, key cachekey.Key) error {
	if err := c.store.Remove(ctx, key.String()); err != nil {
		return apperrors.Wrap(apperrors.CodeCacheWriteFailed, apperrors.ErrorContext{CacheKey: key.String()}, err)
	}
	return nil
}

// HasSuggestions reports whether a non-empty entry exists under key. It does
// not count as a lookup.
func (c *ResultCache) HasSuggestions(ctx context.Context, key cachekey.Key) (bool, error) {
	count, err := c.GetSuggestionCount(ctx, key)
	return count > 0, err
}

// GetSuggestionCount returns the number of suggestions under key, 0 on miss
func (c *ResultCache) GetSuggestionCount(ctx context.Context, key cachekey.Key) (int, error) {
	data, _, err := c.read(ctx, key)
	if err != nil {
		return 0, err
	}
	return len(data), nil
}

// GetDetail reads place details. A miss returns nil without error.
func (c *ResultCache) GetDetail(ctx context.Context, placeID string) (*entities.PlaceDetail, error) {
	key, err := cachekey.NormalizeDetailKey(placeID)
	if err != nil {
		return nil, err
	}

	raw, found, err := c.store.Get(ctx, key.String())
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeCacheReadFailed, apperrors.ErrorContext{CacheKey: key.String(), PlaceID: placeID}, err)
	}
	c.recordAccess(ctx, cachekey.NamespaceDetail, found)
	if !found {
		return nil, nil
	}

	var detail entities.PlaceDetail
	if err := json.Unmarshal(raw, &detail); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeCacheReadFailed, apperrors.ErrorContext{CacheKey: key.String(), PlaceID: placeID}, err)
	}
	return &detail, nil
}

// SetDetail writes place details; the last write wins
func (c *ResultCache) SetDetail(ctx context.Context, placeID string, detail *entities.PlaceDetail) error {
	key, err := cachekey.NormalizeDetailKey(placeID)
	if err != nil {
		return err
	}
	if detail == nil {
		return apperrors.Wrap(apperrors.CodeCacheWriteFailed, apperrors.ErrorContext{CacheKey: key.String(), PlaceID: placeID}, fmt.Errorf("detail is nil"))
	}

	payload, err := json.Marshal(detail)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeCacheWriteFailed, apperrors.ErrorContext{CacheKey: key.String(), PlaceID: placeID}, err)
	}
	if err := c.store.Set(ctx, key.String(), payload); err != nil {
		return apperrors.Wrap(apperrors.CodeCacheWriteFailed, apperrors.ErrorContext{CacheKey: key.String(), PlaceID: placeID}, err)
	}

	c.mu.Lock()
	c.writes++
	c.mu.Unlock()
	observability.RecordCacheWrite(ctx, c.metrics, string(cachekey.NamespaceDetail), false)
	return nil
}

// ActiveSearchKeyCount returns how many search entries the store holds
func (c *ResultCache) ActiveSearchKeyCount(ctx context.Context) (int, error) {
	keys, err := c.store.Keys(ctx)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeCacheReadFailed, apperrors.ErrorContext{}, err)
	}
	count := 0
	for _, k := range keys {
		if cachekey.IsSearchKey(k) {
			count++
		}
	}
	return count, nil
}

// ClearSearchNamespace removes every search entry and returns how many were removed
func (c *ResultCache) ClearSearchNamespace(ctx context.Context) (int, error) {
	removed, err := c.store.RemoveMatching(ctx, cachekey.IsSearchKey)
	if err != nil {
		return removed, apperrors.Wrap(apperrors.CodeCacheWriteFailed, apperrors.ErrorContext{}, err)
	}
	return removed, nil
}

// Metrics returns a snapshot of the cache counters
func (c *ResultCache) Metrics() CacheMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := CacheMetrics{
		Hits:          c.hits,
		Misses:        c.misses,
		Writes:        c.writes,
		Preservations: c.preservations,
		LastAccess:    c.lastAccess,
	}
	if total := c.hits + c.misses; total > 0 {
		m.HitRate = float64(c.hits) / float64(total)
	}
	return m
}

// ResetMetrics zeroes every counter
func (c *ResultCache) ResetMetrics() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.hits = 0
	c.misses = 0
	c.writes = 0
	c.preservations = 0
	c.lastAccess = time.Time{}
}

func (c *ResultCache) read(ctx context.Context, key cachekey.Key) ([]entities.Suggestion, bool, error) {
	raw, found, err := c.store.Get(ctx, key.String())
	if err != nil {
		return nil, false, apperrors.Wrap(apperrors.CodeCacheReadFailed, apperrors.ErrorContext{CacheKey: key.String()}, err)
	}
	if !found {
		return nil, false, nil
	}

	var suggestions []entities.Suggestion
	if err := json.Unmarshal(raw, &suggestions); err != nil {
		return nil, false, apperrors.Wrap(apperrors.CodeCacheReadFailed, apperrors.ErrorContext{CacheKey: key.String()}, err)
	}
	return suggestions, true, nil
}

func (c *ResultCache) recordAccess(ctx context.Context, ns cachekey.Namespace, hit bool) {
	c.mu.Lock()
	if hit {
		c.hits++
	} else {
		c.misses++
	}
	c.lastAccess = c.now()
	c.mu.Unlock()

	observability.RecordCacheAccess(ctx, c.metrics, string(ns), hit)
}
