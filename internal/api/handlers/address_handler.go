package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ReOpAu/react-starter-kit-sub002/internal/application/services"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/entities"
)

// AddressHandler exposes the address search orchestration over HTTP
type AddressHandler struct {
	orchestrator *services.AddressSearchService
	lookup       *services.AddressLookupService
}

// NewAddressHandler creates a new address handler
func NewAddressHandler(orchestrator *services.AddressSearchService, lookup *services.AddressLookupService) *AddressHandler {
	return &AddressHandler{
		orchestrator: orchestrator,
		lookup:       lookup,
	}
}

type searchRequest struct {
	Query  string                `json:"query"`
	Source entities.SearchSource `json:"source"`
}

type recordResultsRequest struct {
	Query       string                `json:"query"`
	Suggestions []entities.Suggestion `json:"suggestions"`
	Source      entities.SearchSource `json:"source"`
	Intent      entities.Intent       `json:"intent"`
}

type selectRequest struct {
	PlaceID    string                `json:"placeId"`
	Ordinal    string                `json:"ordinal"`
	Suggestion *entities.Suggestion  `json:"suggestion"`
	Source     entities.SearchSource `json:"source"`
}

type acknowledgeRequest struct {
	Acknowledged *bool `json:"acknowledged"`
}

type manualInputRequest struct {
	Reason string `json:"reason"`
}

func sourceOrDefault(source entities.SearchSource) entities.SearchSource {
	switch source {
	case entities.SearchSourceVoice, entities.SearchSourceAgent:
		return source
	default:
		return entities.SearchSourceManual
	}
}

// Search handles POST /api/address/search
func (h *AddressHandler) Search(w http.ResponseWriter, r *http.Request) {
	var payload searchRequest
	if err := decodeJSON(r, &payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	result, err := h.lookup.Search(r.Context(), payload.Query, sourceOrDefault(payload.Source))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// RecordResults handles POST /api/address/results. Callers that ran their own
// lookup hand the results over here.
func (h *AddressHandler) RecordResults(w http.ResponseWriter, r *http.Request) {
	var payload recordResultsRequest
	if err := decodeJSON(r, &payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	search, err := h.orchestrator.RecordSearchResults(r.Context(), payload.Query, payload.Suggestions, services.SearchContext{
		Source: sourceOrDefault(payload.Source),
		Intent: payload.Intent,
	})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, search)
}

// GetSearch handles GET /api/address/search
func (h *AddressHandler) GetSearch(w http.ResponseWriter, r *http.Request) {
	search, err := h.orchestrator.CurrentSearch(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"search": search,
	})
}

// Select handles POST /api/address/select. A suggestion in the body wins over
// an ordinal, which wins over a place id.
func (h *AddressHandler) Select(w http.ResponseWriter, r *http.Request) {
	var payload selectRequest
	if err := decodeJSON(r, &payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	source := sourceOrDefault(payload.Source)

	var (
		selection *entities.SelectionState
		err       error
	)
	switch {
	case payload.Suggestion != nil:
		selection, err = h.lookup.SelectSuggestion(r.Context(), *payload.Suggestion, source)
	case strings.TrimSpace(payload.Ordinal) != "":
		selection, err = h.lookup.SelectByOrdinal(r.Context(), payload.Ordinal, source)
	case strings.TrimSpace(payload.PlaceID) != "":
		selection, err = h.lookup.Select(r.Context(), payload.PlaceID, source)
	default:
		respondWithError(w, http.StatusBadRequest, "placeId, ordinal or suggestion is required")
		return
	}
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, selection)
}

// GetSelection handles GET /api/address/selection
func (h *AddressHandler) GetSelection(w http.ResponseWriter, r *http.Request) {
	selection, err := h.orchestrator.CurrentSelection(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"selection": selection,
	})
}

// AcknowledgeSelection handles POST /api/address/selection/acknowledge
func (h *AddressHandler) AcknowledgeSelection(w http.ResponseWriter, r *http.Request) {
	var payload acknowledgeRequest
	if err := decodeJSON(r, &payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	acknowledged := true
	if payload.Acknowledged != nil {
		acknowledged = *payload.Acknowledged
	}

	if err := h.orchestrator.AcknowledgeSelection(r.Context(), acknowledged); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]bool{"acknowledged": acknowledged})
}

// MarkValidated handles POST /api/address/selection/validated
func (h *AddressHandler) MarkValidated(w http.ResponseWriter, r *http.Request) {
	if err := h.orchestrator.MarkSelectionValidated(r.Context()); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearSelection handles DELETE /api/address/selection
func (h *AddressHandler) ClearSelection(w http.ResponseWriter, r *http.Request) {
	if err := h.orchestrator.ClearSelection(r.Context()); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetOptionsConfig handles GET /api/address/options
func (h *AddressHandler) GetOptionsConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.orchestrator.ShowOptionsConfig(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, cfg)
}

// ShowOptions handles POST /api/address/options/show
func (h *AddressHandler) ShowOptions(w http.ResponseWriter, r *http.Request) {
	options, err := h.orchestrator.ShowOptionsAgain(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"suggestions": options,
		"count":       len(options),
	})
}

// HideOptions handles POST /api/address/options/hide
func (h *AddressHandler) HideOptions(w http.ResponseWriter, r *http.Request) {
	if err := h.orchestrator.HideOptions(r.Context()); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Validate handles POST /api/address/validate?force=true
func (h *AddressHandler) Validate(w http.ResponseWriter, r *http.Request) {
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))

	result, err := h.orchestrator.ValidateStateIntegrity(r.Context(), force)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// Resync handles POST /api/address/resync
func (h *AddressHandler) Resync(w http.ResponseWriter, r *http.Request) {
	if err := h.orchestrator.ResyncFromStores(r.Context()); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	h.GetSnapshot(w, r)
}

// Reset handles POST /api/address/reset
func (h *AddressHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.orchestrator.Reset(r.Context()); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RequestManualInput handles POST /api/address/manual-input
func (h *AddressHandler) RequestManualInput(w http.ResponseWriter, r *http.Request) {
	var payload manualInputRequest
	if err := decodeJSON(r, &payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := h.orchestrator.RequestManualInput(r.Context(), strings.TrimSpace(payload.Reason)); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// GetSnapshot handles GET /api/address/snapshot
func (h *AddressHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.orchestrator.Snapshot(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, snapshot)
}
