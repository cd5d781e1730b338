package database

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/entities"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/repositories"
)

var errNilEntry = errors.New("history entry is nil")

// MemorySearchHistoryRepository keeps history in process when no database is
// configured
type MemorySearchHistoryRepository struct {
	mu      sync.RWMutex
	entries map[string]entities.HistoryEntry
}

// NewMemorySearchHistoryRepository creates an empty repository
func NewMemorySearchHistoryRepository() *MemorySearchHistoryRepository {
	return &MemorySearchHistoryRepository{entries: make(map[string]entities.HistoryEntry)}
}

// Create stores a copy of entry
func (r *MemorySearchHistoryRepository) Create(_ context.Context, entry *entities.HistoryEntry) error {
	if entry == nil {
		return errNilEntry
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entry.ID] = *entry
	return nil
}

// GetByID returns an entry or repositories.ErrHistoryNotFound
func (r *MemorySearchHistoryRepository) GetByID(_ context.Context, id string) (*entities.HistoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[id]
	if !ok {
		return nil, repositories.ErrHistoryNotFound
	}
	return &entry, nil
}

// ListRecent returns the newest entries for a session
func (r *MemorySearchHistoryRepository) ListRecent(_ context.Context, sessionID string, limit int) ([]*entities.HistoryEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	r.mu.RLock()
	out := make([]*entities.HistoryEntry, 0, len(r.entries))
	for _, entry := range r.entries {
		if entry.SessionID != sessionID {
			continue
		}
		e := entry
		out = append(out, &e)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
