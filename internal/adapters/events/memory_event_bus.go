package events

import (
	"context"
	"sync"

	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/entities"
	"github.com/rs/zerolog"
)

// MemoryEventBus delivers session updates inside one process. It backs the
// SSE stream when Redis is disabled.
type MemoryEventBus struct {
	logger      zerolog.Logger
	subscribers map[string]map[chan *entities.SessionUpdate]struct{}
	mu          sync.RWMutex
	closed      bool
}

// NewMemoryEventBus creates an in-process event bus
func NewMemoryEventBus(logger zerolog.Logger) *MemoryEventBus {
	return &MemoryEventBus{
		logger:      logger.With().Str("component", "memory_event_bus").Logger(),
		subscribers: make(map[string]map[chan *entities.SessionUpdate]struct{}),
	}
}

// Publish delivers update to every current subscriber of channel. Full
// subscribers miss the update.
func (b *MemoryEventBus) Publish(_ context.Context, channel string, update *entities.SessionUpdate) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for subscriber := range b.subscribers[channel] {
		select {
		case subscriber <- update:
		default:
			b.logger.Warn().Str("channel", channel).Str("update_id", update.ID).Msg("subscriber full, skipping update")
		}
	}
	return nil
}

// Subscribe registers a subscriber until ctx is done
func (b *MemoryEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.SessionUpdate, error) {
	updates := make(chan *entities.SessionUpdate, subscriberBuffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(updates)
		return updates, nil
	}
	if b.subscribers[channel] == nil {
		b.subscribers[channel] = make(map[chan *entities.SessionUpdate]struct{})
	}
	b.subscribers[channel][updates] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.remove(channel, updates)
	}()

	return updates, nil
}

// Unsubscribe closes every subscriber on a channel
func (b *MemoryEventBus) Unsubscribe(_ context.Context, channel string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for subscriber := range b.subscribers[channel] {
		close(subscriber)
	}
	delete(b.subscribers, channel)
	return nil
}

// Close closes every subscriber
func (b *MemoryEventBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for channel, subscribers := range b.subscribers {
		for subscriber := range subscribers {
			close(subscriber)
		}
		delete(b.subscribers, channel)
	}
	b.closed = true
	return nil
}

// SubscriberCount returns the number of subscribers on channel
func (b *MemoryEventBus) SubscriberCount(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[channel])
}

func (b *MemoryEventBus) remove(channel string, updates chan *entities.SessionUpdate) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subscribers, ok := b.subscribers[channel]
	if !ok {
		return
	}
	if _, ok := subscribers[updates]; !ok {
		return
	}
	delete(subscribers, updates)
	close(updates)
	if len(subscribers) == 0 {
		delete(b.subscribers, channel)
	}
}
