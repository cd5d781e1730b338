package services

import (
	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/entities"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/providers"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LoggingTelemetrySink writes telemetry events to logger at debug level
func LoggingTelemetrySink(logger zerolog.Logger) providers.TelemetrySink {
	return func(event entities.TelemetryEvent) {
		logger.Debug().
			Str("event_id", event.ID).
			Str("event_type", string(event.Type)).
			Str("operation", event.Operation).
			Float64("duration_ms", event.DurationMs).
			Fields(event.Attributes).
			Msg("telemetry")
	}
}

// LoggingAlertSink writes alerts to logger, picking the level from severity
func LoggingAlertSink(logger zerolog.Logger) providers.AlertSink {
	return func(alert entities.AlertEvent) {
		var e *zerolog.Event
		switch alert.Severity {
		case entities.SeverityCritical:
			e = logger.Error()
		case entities.SeverityWarning:
			e = logger.Warn()
		default:
			e = logger.Info()
		}
		e.Str("alert_id", alert.ID).
			Str("alert_type", string(alert.Type)).
			Str("severity", string(alert.Severity)).
			Float64("threshold", alert.Threshold).
			Float64("actual", alert.Actual).
			Str("operation", alert.Operation).
			Msg("alert")
	}
}

// FanOutTelemetry delivers each event to every non-nil sink. A sink that
// panics does not stop delivery to the others.
func FanOutTelemetry(sinks ...providers.TelemetrySink) providers.TelemetrySink {
	return func(event entities.TelemetryEvent) {
		for i, sink := range sinks {
			if sink != nil {
				deliverSafely("telemetry", i, func() { sink(event) })
			}
		}
	}
}

// FanOutAlerts delivers each alert to every non-nil sink. A sink that panics
// does not stop delivery to the others.
func FanOutAlerts(sinks ...providers.AlertSink) providers.AlertSink {
	return func(alert entities.AlertEvent) {
		for i, sink := range sinks {
			if sink != nil {
				deliverSafely("alert", i, func() { sink(alert) })
			}
		}
	}
}

func deliverSafely(kind string, index int, deliver func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("sink_kind", kind).
				Int("sink_index", index).
				Interface("panic", r).
				Msg("sink panicked")
		}
	}()
	deliver()
}
