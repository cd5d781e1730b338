package routes

import (
	"net/http"

	"github.com/ReOpAu/react-starter-kit-sub002/internal/api/handlers"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/api/middleware"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/infrastructure/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	addressHandler   *handlers.AddressHandler
	historyHandler   *handlers.HistoryHandler
	telemetryHandler *handlers.TelemetryHandler
	sseHandler       *handlers.SSEHandler

	allowedOrigins []string
	metrics        *observability.Metrics
	exposeMetrics  bool
}

// NewRouter creates a new router. sseHandler may be nil when the stream is
// served by a separate process.
func NewRouter(
	addressHandler *handlers.AddressHandler,
	historyHandler *handlers.HistoryHandler,
	telemetryHandler *handlers.TelemetryHandler,
	sseHandler *handlers.SSEHandler,
	allowedOrigins []string,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:              http.NewServeMux(),
		addressHandler:   addressHandler,
		historyHandler:   historyHandler,
		telemetryHandler: telemetryHandler,
		sseHandler:       sseHandler,
		allowedOrigins:   allowedOrigins,
		metrics:          metrics,
		exposeMetrics:    metrics != nil,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	if r.exposeMetrics {
		r.mux.Handle("GET /metrics", promhttp.Handler())
	}

	// Search and selection
	r.mux.HandleFunc("POST /api/address/search", r.addressHandler.Search)
	r.mux.HandleFunc("GET /api/address/search", r.addressHandler.GetSearch)
	r.mux.HandleFunc("POST /api/address/results", r.addressHandler.RecordResults)
	r.mux.HandleFunc("POST /api/address/select", r.addressHandler.Select)
	r.mux.HandleFunc("GET /api/address/selection", r.addressHandler.GetSelection)
	r.mux.HandleFunc("DELETE /api/address/selection", r.addressHandler.ClearSelection)
	r.mux.HandleFunc("POST /api/address/selection/acknowledge", r.addressHandler.AcknowledgeSelection)
	r.mux.HandleFunc("POST /api/address/selection/validated", r.addressHandler.MarkValidated)

	// Options replay
	r.mux.HandleFunc("GET /api/address/options", r.addressHandler.GetOptionsConfig)
	r.mux.HandleFunc("POST /api/address/options/show", r.addressHandler.ShowOptions)
	r.mux.HandleFunc("POST /api/address/options/hide", r.addressHandler.HideOptions)

	// State maintenance
	r.mux.HandleFunc("POST /api/address/validate", r.addressHandler.Validate)
	r.mux.HandleFunc("POST /api/address/resync", r.addressHandler.Resync)
	r.mux.HandleFunc("POST /api/address/reset", r.addressHandler.Reset)
	r.mux.HandleFunc("POST /api/address/manual-input", r.addressHandler.RequestManualInput)
	r.mux.HandleFunc("GET /api/address/snapshot", r.addressHandler.GetSnapshot)

	// Telemetry
	r.mux.HandleFunc("GET /api/address/telemetry", r.telemetryHandler.GetTelemetry)
	r.mux.HandleFunc("POST /api/address/metrics/reset", r.telemetryHandler.ResetMetrics)
	r.mux.HandleFunc("GET /api/address/events", r.telemetryHandler.ListEvents)

	// History
	if r.historyHandler != nil {
		r.mux.HandleFunc("POST /api/address/history", r.historyHandler.Confirm)
		r.mux.HandleFunc("GET /api/address/history", r.historyHandler.List)
		r.mux.HandleFunc("POST /api/address/history/{id}/recall", r.historyHandler.Recall)
	}

	if r.sseHandler != nil {
		r.mux.HandleFunc("GET /api/stream/session", r.sseHandler.StreamSession)
		r.mux.HandleFunc("GET /api/stream/session/{id}", r.sseHandler.StreamSession)
	}

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)

	// CORS wraps everything so preflight requests never reach the handlers
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
