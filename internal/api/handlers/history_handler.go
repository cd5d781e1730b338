package handlers

import (
	"net/http"

	"github.com/ReOpAu/react-starter-kit-sub002/internal/application/services"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/entities"
)

// HistoryHandler handles confirmed-selection history
type HistoryHandler struct {
	history *services.SearchHistoryService
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(history *services.SearchHistoryService) *HistoryHandler {
	return &HistoryHandler{history: history}
}

type recallRequest struct {
	Source entities.SearchSource `json:"source"`
}

// Confirm handles POST /api/address/history
func (h *HistoryHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	entry, err := h.history.ConfirmSelection(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, entry)
}

// List handles GET /api/address/history?q=richmond&limit=10
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 10, 100)

	var (
		entries []*entities.HistoryEntry
		err     error
	)
	if q := r.URL.Query().Get("q"); q != "" {
		entries, err = h.history.Find(r.Context(), q, limit)
	} else {
		entries, err = h.history.Recent(r.Context(), limit)
	}
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

// Recall handles POST /api/address/history/{id}/recall
func (h *HistoryHandler) Recall(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "history ID is required")
		return
	}

	var payload recallRequest
	if err := decodeJSON(r, &payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	selection, err := h.history.Recall(r.Context(), id, sourceOrDefault(payload.Source))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, selection)
}
