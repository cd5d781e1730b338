package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/entities"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/providers"
	redisclient "github.com/ReOpAu/react-starter-kit-sub002/internal/infrastructure/clients/redis"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const subscriberBuffer = 100

// RedisEventBus implements the EventBus interface using Redis Pub/Sub
type RedisEventBus struct {
	client        *redisclient.Client
	logger        zerolog.Logger
	subscriptions map[string]*redis.PubSub
	subscribers   map[string]map[chan *entities.SessionUpdate]struct{}
	mu            sync.RWMutex
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewRedisEventBus creates a new Redis-based event bus
func NewRedisEventBus(client *redisclient.Client, logger zerolog.Logger) providers.EventBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisEventBus{
		client:        client,
		logger:        logger.With().Str("component", "redis_event_bus").Logger(),
		subscriptions: make(map[string]*redis.PubSub),
		subscribers:   make(map[string]map[chan *entities.SessionUpdate]struct{}),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Publish publishes an update to all subscribers
func (b *RedisEventBus) Publish(ctx context.Context, channel string, update *entities.SessionUpdate) error {
	data, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to marshal session update: %w", err)
	}

	if err := b.client.Client().Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish session update: %w", err)
	}

	b.logger.Debug().Str("channel", channel).Str("update_id", update.ID).Str("store", update.Store).Msg("published session update")
	return nil
}

// Subscribe subscribes to updates on a channel. The returned channel closes
// when ctx is done.
func (b *RedisEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.SessionUpdate, error) {
	b.mu.Lock()

	if _, exists := b.subscriptions[channel]; !exists {
		pubsub := b.client.Client().Subscribe(b.ctx, channel)
		b.subscriptions[channel] = pubsub
		go b.receiveMessages(channel, pubsub)
	}

	if b.subscribers[channel] == nil {
		b.subscribers[channel] = make(map[chan *entities.SessionUpdate]struct{})
	}

	updates := make(chan *entities.SessionUpdate, subscriberBuffer)
	b.subscribers[channel][updates] = struct{}{}
	subscriberCount := len(b.subscribers[channel])
	b.mu.Unlock()

	b.logger.Info().Str("channel", channel).Int("subscribers", subscriberCount).Msg("subscribed")

	go func() {
		<-ctx.Done()
		b.removeSubscriber(channel, updates)
	}()

	return updates, nil
}

func (b *RedisEventBus) receiveMessages(channel string, pubsub *redis.PubSub) {
	defer func() {
		if err := b.cleanupChannel(channel); err != nil {
			b.logger.Error().Err(err).Str("channel", channel).Msg("failed to clean up channel")
		}
	}()

	ch := pubsub.Channel()
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var update entities.SessionUpdate
			if err := json.Unmarshal([]byte(msg.Payload), &update); err != nil {
				b.logger.Warn().Err(err).Str("channel", channel).Msg("dropping malformed session update")
				continue
			}

			b.mu.RLock()
			for subscriber := range b.subscribers[channel] {
				select {
				case subscriber <- &update:
				default:
					b.logger.Warn().Str("channel", channel).Str("update_id", update.ID).Msg("subscriber full, skipping update")
				}
			}
			b.mu.RUnlock()
		}
	}
}

func (b *RedisEventBus) removeSubscriber(channel string, updates chan *entities.SessionUpdate) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subscribers, exists := b.subscribers[channel]
	if !exists {
		return
	}
	if _, ok := subscribers[updates]; !ok {
		return
	}

	delete(subscribers, updates)
	close(updates)

	if len(subscribers) == 0 {
		delete(b.subscribers, channel)
		if pubsub, ok := b.subscriptions[channel]; ok {
			_ = pubsub.Close()
			delete(b.subscriptions, channel)
			b.logger.Info().Str("channel", channel).Msg("closed subscription")
		}
	}
}

func (b *RedisEventBus) cleanupChannel(channel string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subscribers, exists := b.subscribers[channel]; exists {
		for subscriber := range subscribers {
			close(subscriber)
		}
		delete(b.subscribers, channel)
	}

	if pubsub, ok := b.subscriptions[channel]; ok {
		if err := pubsub.Close(); err != nil {
			return fmt.Errorf("failed to close subscription %s: %w", channel, err)
		}
		delete(b.subscriptions, channel)
		b.logger.Info().Str("channel", channel).Msg("closed subscription")
	}

	return nil
}

// Unsubscribe closes every subscriber on a channel
func (b *RedisEventBus) Unsubscribe(ctx context.Context, channel string) error {
	return b.cleanupChannel(channel)
}

// Close closes the event bus and all subscriptions
func (b *RedisEventBus) Close() error {
	b.cancel()

	b.mu.RLock()
	channels := make([]string, 0, len(b.subscriptions))
	for channel := range b.subscriptions {
		channels = append(channels, channel)
	}
	b.mu.RUnlock()

	var errs []error
	for _, channel := range channels {
		if err := b.cleanupChannel(channel); err != nil {
			errs = append(errs, err)
		}
	}

	b.logger.Info().Msg("event bus closed")
	return errors.Join(errs...)
}
