package entities

import (
	"time"
)

// TelemetryEventType names a telemetry event
type TelemetryEventType string

const (
	TelemetrySearchRecorded        TelemetryEventType = "search_recorded"
	TelemetrySelectionRecorded     TelemetryEventType = "selection_recorded"
	TelemetrySelectionAppended     TelemetryEventType = "selection_appended"
	TelemetryOptionsShown          TelemetryEventType = "options_shown"
	TelemetryOptionsHidden         TelemetryEventType = "options_hidden"
	TelemetryStateReconstructed    TelemetryEventType = "state_reconstructed"
	TelemetryStateValidationFailed TelemetryEventType = "state_validation_failed"
	TelemetryStateResynced         TelemetryEventType = "state_resynced"
	TelemetrySelectionCleared      TelemetryEventType = "selection_cleared"
	TelemetryOperationFailed       TelemetryEventType = "operation_failed"
)

// TelemetryEvent is delivered to the telemetry sink
type TelemetryEvent struct {
	ID         string             `json:"id"`
	Type       TelemetryEventType `json:"type"`
	Operation  string             `json:"operation,omitempty"`
	DurationMs float64            `json:"durationMs,omitempty"`
	Attributes map[string]any     `json:"attributes,omitempty"`
	Timestamp  time.Time          `json:"timestamp"`
}
