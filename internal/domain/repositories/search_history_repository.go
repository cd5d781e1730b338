package repositories

import (
	"context"
	"errors"

	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/entities"
)

// SearchHistoryRepository persists confirmed selections for later recall.
type SearchHistoryRepository interface {
	Create(ctx context.Context, entry *entities.HistoryEntry) error
	GetByID(ctx context.Context, id string) (*entities.HistoryEntry, error)
	ListRecent(ctx context.Context, sessionID string, limit int) ([]*entities.HistoryEntry, error)
}

// SelectionIndex provides fuzzy lookup over confirmed selections.
type SelectionIndex interface {
	Index(ctx context.Context, entry *entities.HistoryEntry) error
	Search(ctx context.Context, sessionID, query string, limit int) ([]string, error)
}

// ErrHistoryNotFound is returned when a history entry does not exist
var ErrHistoryNotFound = errors.New("history entry not found")
