package state

import (
	"context"
	"fmt"
	"time"

	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/entities"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/providers"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PublishingStateProvider wraps a store and publishes every applied patch to
// the session channel so browsers can follow along over SSE.
type PublishingStateProvider struct {
	inner     providers.StateProvider
	bus       providers.EventBus
	store     string
	sessionID string
	logger    zerolog.Logger
	now       func() time.Time
}

// NewPublishingStateProvider decorates inner. Publish failures are logged and
// never fail the write.
func NewPublishingStateProvider(inner providers.StateProvider, bus providers.EventBus, store, sessionID string, logger zerolog.Logger) *PublishingStateProvider {
	return &PublishingStateProvider{
		inner:     inner,
		bus:       bus,
		store:     store,
		sessionID: sessionID,
		logger:    logger,
		now:       time.Now,
	}
}

// GetState returns the wrapped store's state
func (p *PublishingStateProvider) GetState(ctx context.Context) (entities.UIState, error) {
	return p.inner.GetState(ctx)
}

// SetState applies patch to the wrapped store and publishes the result
func (p *PublishingStateProvider) SetState(ctx context.Context, patch entities.StatePatch) error {
	if err := p.inner.SetState(ctx, patch); err != nil {
		return fmt.Errorf("failed to update %s store: %w", p.store, err)
	}

	current, err := p.inner.GetState(ctx)
	if err != nil {
		p.logger.Warn().Err(err).Str("store", p.store).Msg("failed to read state for publish")
		return nil
	}

	update := &entities.SessionUpdate{
		ID:        uuid.New().String(),
		SessionID: p.sessionID,
		Store:     p.store,
		Patch:     patch,
		State:     current,
		Timestamp: p.now().UTC(),
	}
	if err := p.bus.Publish(ctx, providers.GetSessionChannel(p.sessionID), update); err != nil {
		p.logger.Warn().Err(err).Str("store", p.store).Str("session_id", p.sessionID).Msg("failed to publish session update")
	}
	return nil
}

// NewSessionProviders builds the four stores for a session. When bus is nil
// the stores are not published.
func NewSessionProviders(bus providers.EventBus, sessionID string, logger zerolog.Logger) providers.StateProviders {
	wrap := func(store string) providers.StateProvider {
		inner := NewMemoryStateProvider()
		if bus == nil {
			return inner
		}
		return NewPublishingStateProvider(inner, bus, store, sessionID, logger)
	}
	return providers.StateProviders{
		Search:    wrap(providers.StoreSearch),
		Selection: wrap(providers.StoreSelection),
		UI:        wrap(providers.StoreUI),
		Agent:     wrap(providers.StoreAgent),
	}
}
