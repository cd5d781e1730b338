package events

import (
	"context"
	"testing"
	"time"

	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/entities"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/providers"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ providers.EventBus = (*MemoryEventBus)(nil)

func TestMemoryEventBus_PublishSubscribe(t *testing.T) {
	bus := NewMemoryEventBus(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	channel := providers.GetSessionChannel("s1")
	updates, err := bus.Subscribe(ctx, channel)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, channel, &entities.SessionUpdate{ID: "u1", Store: providers.StoreSearch}))
	require.NoError(t, bus.Publish(ctx, providers.GetSessionChannel("other"), &entities.SessionUpdate{ID: "u2"}))

	select {
	case update := <-updates:
		assert.Equal(t, "u1", update.ID)
	case <-time.After(time.Second):
		t.Fatal("expected an update")
	}

	select {
	case update := <-updates:
		t.Fatalf("unexpected update %v", update)
	default:
	}
}

func TestMemoryEventBus_ContextCancelClosesSubscriber(t *testing.T) {
	bus := NewMemoryEventBus(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	channel := providers.GetSessionChannel("s1")
	updates, err := bus.Subscribe(ctx, channel)
	require.NoError(t, err)
	assert.Equal(t, 1, bus.SubscriberCount(channel))

	cancel()

	select {
	case _, ok := <-updates:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscriber was not closed")
	}
	assert.Eventually(t, func() bool { return bus.SubscriberCount(channel) == 0 }, time.Second, 10*time.Millisecond)
}

func TestMemoryEventBus_Close(t *testing.T) {
	bus := NewMemoryEventBus(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, err := bus.Subscribe(ctx, "session:s1")
	require.NoError(t, err)
	require.NoError(t, bus.Close())

	_, ok := <-updates
	assert.False(t, ok)

	late, err := bus.Subscribe(ctx, "session:s1")
	require.NoError(t, err)
	_, ok = <-late
	assert.False(t, ok)
}
