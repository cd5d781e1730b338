package state

import (
	"context"
	"sync"

	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/entities"
)

// MemoryStateProvider keeps one store's UI state in process
type MemoryStateProvider struct {
	mu    sync.RWMutex
	state entities.UIState
}

// NewMemoryStateProvider creates an empty store
func NewMemoryStateProvider() *MemoryStateProvider {
	return &MemoryStateProvider{}
}

// GetState returns a copy of the current state
func (p *MemoryStateProvider) GetState(_ context.Context) (entities.UIState, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	state := p.state
	if state.SelectedResult != nil {
		selected := *state.SelectedResult
		state.SelectedResult = &selected
	}
	return state, nil
}

// SetState applies patch
func (p *MemoryStateProvider) SetState(_ context.Context, patch entities.StatePatch) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.state = patch.Apply(p.state)
	return nil
}
