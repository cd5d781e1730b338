package providers

import (
	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/entities"
)

// TelemetrySink receives telemetry events. Fire-and-forget; callers recover
// panics raised by a sink.
type TelemetrySink func(event entities.TelemetryEvent)

// AlertSink receives alerts with the same contract as TelemetrySink.
type AlertSink func(event entities.AlertEvent)
