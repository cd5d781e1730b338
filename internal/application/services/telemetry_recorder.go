package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/entities"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/providers"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/repositories"
	"github.com/rs/zerolog"
)

const recorderWriteTimeout = 5 * time.Second

// TelemetryRecorder persists telemetry events and alerts off the request
// path. Items are dropped when the buffer is full.
type TelemetryRecorder struct {
	repo    repositories.TelemetryLogRepository
	queue   chan func(context.Context) error
	logger  zerolog.Logger
	dropped atomic.Int64

	wg        sync.WaitGroup
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewTelemetryRecorder starts a recorder with one writer goroutine
func NewTelemetryRecorder(repo repositories.TelemetryLogRepository, buffer int, logger zerolog.Logger) *TelemetryRecorder {
	if buffer <= 0 {
		buffer = 256
	}
	r := &TelemetryRecorder{
		repo:   repo,
		queue:  make(chan func(context.Context) error, buffer),
		logger: logger.With().Str("component", "telemetry_recorder").Logger(),
	}
	r.wg.Add(1)
	go r.run()
	return r
}

// TelemetrySink returns a sink that queues events for storage
func (r *TelemetryRecorder) TelemetrySink() providers.TelemetrySink {
	return func(event entities.TelemetryEvent) {
		r.enqueue(func(ctx context.Context) error {
			return r.repo.LogEvent(ctx, &event)
		})
	}
}

// AlertSink returns a sink that queues alerts for storage
func (r *TelemetryRecorder) AlertSink() providers.AlertSink {
	return func(alert entities.AlertEvent) {
		r.enqueue(func(ctx context.Context) error {
			return r.repo.LogAlert(ctx, &alert)
		})
	}
}

// Dropped returns how many items were discarded because the buffer was full
func (r *TelemetryRecorder) Dropped() int64 {
	return r.dropped.Load()
}

// Close stops accepting items and waits for the queue to drain
func (r *TelemetryRecorder) Close() {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		close(r.queue)
		r.mu.Unlock()
		r.wg.Wait()
	})
}

func (r *TelemetryRecorder) enqueue(write func(context.Context) error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.queue <- write:
	default:
		r.dropped.Add(1)
	}
}

func (r *TelemetryRecorder) run() {
	defer r.wg.Done()
	for write := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), recorderWriteTimeout)
		if err := write(ctx); err != nil {
			r.logger.Warn().Err(err).Msg("failed to persist telemetry")
		}
		cancel()
	}
}
