package providers

import (
	"context"

	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to session updates
type EventBus interface {
	// Publish publishes an update to all subscribers
	Publish(ctx context.Context, channel string, update *entities.SessionUpdate) error

	// Subscribe subscribes to updates on a channel
	Subscribe(ctx context.Context, channel string) (<-chan *entities.SessionUpdate, error)

	// Unsubscribe unsubscribes from a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

// EventChannelSessionPrefix is the prefix for per-session update channels
const EventChannelSessionPrefix = "session:"

// GetSessionChannel returns the channel name for a session
func GetSessionChannel(sessionID string) string {
	return EventChannelSessionPrefix + sessionID
}
