package providers

import (
	"context"

	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/entities"
)

// StateProvider is one of the browser-facing state stores. The service reads
// and writes only the fields of entities.UIState that the store owns.
type StateProvider interface {
	// GetState returns the store's current state
	GetState(ctx context.Context) (entities.UIState, error)

	// SetState applies a partial update
	SetState(ctx context.Context, patch entities.StatePatch) error
}

// Store names used in session updates
const (
	StoreSearch    = "search"
	StoreSelection = "selection"
	StoreUI        = "ui"
	StoreAgent     = "agent"
)

// StateProviders groups the independent state stores.
type StateProviders struct {
	// Search holds the active query, source and intent
	Search StateProvider
	// Selection holds the selected result and acknowledgement flag
	Selection StateProvider
	// UI holds the options replay and manual input flags
	UI StateProvider
	// Agent holds the last query issued by the voice agent
	Agent StateProvider
}

// Complete reports whether every store is set
func (p StateProviders) Complete() bool {
	return p.Search != nil && p.Selection != nil && p.UI != nil && p.Agent != nil
}
