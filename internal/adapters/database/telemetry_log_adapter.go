package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/entities"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/repositories"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/infrastructure/clients/postgres"
	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
)

const telemetryTable = "address_search_events"

const telemetrySchema = `
CREATE TABLE IF NOT EXISTS address_search_events (
	id          UUID PRIMARY KEY,
	kind        TEXT NOT NULL,
	event_type  TEXT NOT NULL,
	severity    TEXT NOT NULL DEFAULT '',
	operation   TEXT NOT NULL DEFAULT '',
	duration_ms DOUBLE PRECISION NOT NULL DEFAULT 0,
	payload     JSONB,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_address_search_events_kind
	ON address_search_events (kind, created_at DESC);
`

type telemetryRow struct {
	ID         string    `db:"id"`
	Kind       string    `db:"kind"`
	EventType  string    `db:"event_type"`
	Severity   string    `db:"severity"`
	Operation  string    `db:"operation"`
	DurationMs float64   `db:"duration_ms"`
	Payload    []byte    `db:"payload"`
	CreatedAt  time.Time `db:"created_at"`
}

// TelemetryLogAdapter writes telemetry events and alerts to Postgres
type TelemetryLogAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewTelemetryLogAdapter creates a telemetry log adapter
func NewTelemetryLogAdapter(client *postgres.Client) *TelemetryLogAdapter {
	return &TelemetryLogAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// EnsureSchema creates the events table when missing
func (a *TelemetryLogAdapter) EnsureSchema(ctx context.Context) error {
	if _, err := a.client.DB().ExecContext(ctx, telemetrySchema); err != nil {
		return fmt.Errorf("failed to create telemetry schema: %w", err)
	}
	return nil
}

// LogEvent stores a telemetry event
func (a *TelemetryLogAdapter) LogEvent(ctx context.Context, event *entities.TelemetryEvent) error {
	if event == nil {
		return fmt.Errorf("telemetry event is nil")
	}
	return a.insert(ctx, telemetryRow{
		ID:         event.ID,
		Kind:       repositories.EventKindTelemetry,
		EventType:  string(event.Type),
		Operation:  event.Operation,
		DurationMs: event.DurationMs,
		CreatedAt:  event.Timestamp,
	}, event.Attributes)
}

// LogAlert stores an alert
func (a *TelemetryLogAdapter) LogAlert(ctx context.Context, alert *entities.AlertEvent) error {
	if alert == nil {
		return fmt.Errorf("alert is nil")
	}
	payload := map[string]any{
		"threshold": alert.Threshold,
		"actual":    alert.Actual,
	}
	for k, v := range alert.Context {
		payload[k] = v
	}
	return a.insert(ctx, telemetryRow{
		ID:        alert.ID,
		Kind:      repositories.EventKindAlert,
		EventType: string(alert.Type),
		Severity:  string(alert.Severity),
		Operation: alert.Operation,
		CreatedAt: alert.Timestamp,
	}, payload)
}

func (a *TelemetryLogAdapter) insert(ctx context.Context, row telemetryRow, payload map[string]any) error {
	if row.ID == "" {
		row.ID = uuid.New().String()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}

	var encoded interface{}
	if len(payload) > 0 {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode %s payload: %w", row.Kind, err)
		}
		encoded = string(raw)
	}

	query, args, err := a.db.Insert(telemetryTable).Rows(goqu.Record{
		"id":          row.ID,
		"kind":        row.Kind,
		"event_type":  row.EventType,
		"severity":    row.Severity,
		"operation":   row.Operation,
		"duration_ms": row.DurationMs,
		"payload":     encoded,
		"created_at":  row.CreatedAt,
	}).Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build %s insert query: %w", row.Kind, err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to log %s %s: %w", row.Kind, row.EventType, err)
	}
	return nil
}

// ListRecent returns the newest rows of a kind
func (a *TelemetryLogAdapter) ListRecent(ctx context.Context, kind string, limit int) ([]*repositories.LoggedEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	query, args, err := a.db.From(telemetryTable).
		Select("id", "kind", "event_type", "severity", "operation", "duration_ms", "payload", "created_at").
		Where(goqu.Ex{"kind": kind}).
		Order(goqu.I("created_at").Desc()).
		Limit(uint(limit)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build telemetry list query: %w", err)
	}

	var rows []telemetryRow
	if err := a.client.DB().SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list %s events: %w", kind, err)
	}

	events := make([]*repositories.LoggedEvent, 0, len(rows))
	for _, row := range rows {
		event := &repositories.LoggedEvent{
			ID:         row.ID,
			Kind:       row.Kind,
			Type:       row.EventType,
			Severity:   row.Severity,
			Operation:  row.Operation,
			DurationMs: row.DurationMs,
			CreatedAt:  row.CreatedAt,
		}
		if len(row.Payload) > 0 {
			if err := json.Unmarshal(row.Payload, &event.Payload); err != nil {
				return nil, fmt.Errorf("failed to decode payload of event %s: %w", row.ID, err)
			}
		}
		events = append(events, event)
	}
	return events, nil
}
