package handlers

import (
	"net/http"

	"github.com/ReOpAu/react-starter-kit-sub002/internal/application/services"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/repositories"
)

// TelemetryHandler serves operation statistics and the persisted event log
type TelemetryHandler struct {
	orchestrator *services.AddressSearchService
	eventLog     repositories.TelemetryLogRepository
}

// NewTelemetryHandler creates a telemetry handler. eventLog may be nil when
// no database is configured.
func NewTelemetryHandler(orchestrator *services.AddressSearchService, eventLog repositories.TelemetryLogRepository) *TelemetryHandler {
	return &TelemetryHandler{
		orchestrator: orchestrator,
		eventLog:     eventLog,
	}
}

// GetTelemetry handles GET /api/address/telemetry
func (h *TelemetryHandler) GetTelemetry(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.orchestrator.Monitor().Snapshot())
}

// ResetMetrics handles POST /api/address/metrics/reset
func (h *TelemetryHandler) ResetMetrics(w http.ResponseWriter, r *http.Request) {
	h.orchestrator.ResetMetrics()
	w.WriteHeader(http.StatusNoContent)
}

// ListEvents handles GET /api/address/events?kind=alert&limit=50
func (h *TelemetryHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	if h.eventLog == nil {
		respondWithError(w, http.StatusServiceUnavailable, "event log is not enabled")
		return
	}

	kind := r.URL.Query().Get("kind")
	switch kind {
	case "", repositories.EventKindTelemetry, repositories.EventKindAlert:
	default:
		respondWithError(w, http.StatusBadRequest, "kind must be telemetry or alert")
		return
	}

	events, err := h.eventLog.ListRecent(r.Context(), kind, queryLimit(r, 50, 500))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}
