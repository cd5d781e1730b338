package repositories

import (
	"context"
	"time"

	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/entities"
)

// LoggedEvent is one row of the telemetry log
type LoggedEvent struct {
	ID         string         `json:"id"`
	Kind       string         `json:"kind"`
	Type       string         `json:"type"`
	Severity   string         `json:"severity,omitempty"`
	Operation  string         `json:"operation,omitempty"`
	DurationMs float64        `json:"durationMs,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// Telemetry log kinds
const (
	EventKindTelemetry = "telemetry"
	EventKindAlert     = "alert"
)

// TelemetryLogRepository keeps telemetry events and alerts for later analysis
type TelemetryLogRepository interface {
	LogEvent(ctx context.Context, event *entities.TelemetryEvent) error
	LogAlert(ctx context.Context, alert *entities.AlertEvent) error
	ListRecent(ctx context.Context, kind string, limit int) ([]*LoggedEvent, error)
}
