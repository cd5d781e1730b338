package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/entities"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/providers"
	"github.com/rs/zerolog"
)

const defaultHeartbeatInterval = 30 * time.Second

// SSEHandler streams session state updates to browsers over Server-Sent Events
type SSEHandler struct {
	eventBus       providers.EventBus
	defaultSession string
	heartbeat      time.Duration
	logger         zerolog.Logger

	clients map[string]map[chan *entities.SessionUpdate]bool // channel -> clients
	mu      sync.RWMutex
}

// NewSSEHandler creates a new SSE handler. Requests without a session id
// follow defaultSession.
func NewSSEHandler(eventBus providers.EventBus, defaultSession string, logger zerolog.Logger) *SSEHandler {
	return &SSEHandler{
		eventBus:       eventBus,
		defaultSession: defaultSession,
		heartbeat:      defaultHeartbeatInterval,
		logger:         logger.With().Str("component", "sse").Logger(),
		clients:        make(map[string]map[chan *entities.SessionUpdate]bool),
	}
}

// WithHeartbeat overrides the heartbeat interval
func (h *SSEHandler) WithHeartbeat(interval time.Duration) *SSEHandler {
	if interval > 0 {
		h.heartbeat = interval
	}
	return h
}

// StreamSession handles GET /api/stream/session and
// GET /api/stream/session/{id}
func (h *SSEHandler) StreamSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if sessionID == "" {
		sessionID = r.URL.Query().Get("session")
	}
	if sessionID == "" {
		sessionID = h.defaultSession
	}
	if sessionID == "" {
		respondWithError(w, http.StatusBadRequest, "session ID is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	channel := providers.GetSessionChannel(sessionID)
	eventChan, err := h.eventBus.Subscribe(r.Context(), channel)
	if err != nil {
		h.logger.Error().Err(err).Str("channel", channel).Msg("failed to subscribe")
		respondWithError(w, http.StatusServiceUnavailable, "session stream unavailable")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	clientChan := make(chan *entities.SessionUpdate, 10)
	h.registerClient(channel, clientChan)
	defer h.unregisterClient(channel, clientChan)

	h.sendEvent(w, "connected", map[string]interface{}{
		"session_id": sessionID,
		"timestamp":  time.Now().UTC(),
	})
	flusher.Flush()

	go h.forwardEvents(r.Context(), eventChan, clientChan)

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.logger.Debug().Str("session_id", sessionID).Msg("client disconnected")
			return
		case <-ticker.C:
			h.sendEvent(w, "heartbeat", map[string]interface{}{
				"timestamp": time.Now().UTC(),
			})
			flusher.Flush()
		case update := <-clientChan:
			if update == nil {
				continue
			}
			h.sendEvent(w, "session_update", update)
			flusher.Flush()
		}
	}
}

// forwardEvents copies bus updates to a client; a slow client misses updates
func (h *SSEHandler) forwardEvents(ctx context.Context, eventChan <-chan *entities.SessionUpdate, clientChan chan<- *entities.SessionUpdate) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-eventChan:
			if !ok {
				return
			}
			select {
			case clientChan <- update:
			default:
			}
		}
	}
}

func (h *SSEHandler) registerClient(channel string, clientChan chan *entities.SessionUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[channel] == nil {
		h.clients[channel] = make(map[chan *entities.SessionUpdate]bool)
	}
	h.clients[channel][clientChan] = true
	h.logger.Debug().Str("channel", channel).Int("clients", len(h.clients[channel])).Msg("client registered")
}

func (h *SSEHandler) unregisterClient(channel string, clientChan chan *entities.SessionUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, exists := h.clients[channel]; exists {
		delete(clients, clientChan)
		if len(clients) == 0 {
			delete(h.clients, channel)
		}
	}
}

func (h *SSEHandler) sendEvent(w http.ResponseWriter, eventType string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		h.logger.Error().Err(err).Str("event", eventType).Msg("failed to marshal event data")
		return
	}

	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
}

// GetClientCount returns the number of connected clients
func (h *SSEHandler) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, clients := range h.clients {
		count += len(clients)
	}
	return count
}
