package services

import (
	"context"

	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/entities"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/providers"
	"github.com/ReOpAu/react-starter-kit-sub002/pkg/cachekey"
	apperrors "github.com/ReOpAu/react-starter-kit-sub002/pkg/errors"
)

// ValidationResult reports what ValidateStateIntegrity found
type ValidationResult struct {
	Checked  bool                `json:"checked"`
	Valid    bool                `json:"valid"`
	Resynced bool                `json:"resynced"`
	Mismatch *apperrors.AppError `json:"mismatch,omitempty"`
}

// ValidateStateIntegrity compares the in-process search and selection with
// the state stores. It is skipped unless force is set or validation is
// enabled. A mismatch triggers ResyncFromStores.
func (s *AddressSearchService) ValidateStateIntegrity(ctx context.Context, force bool) (result ValidationResult, err error) {
	defer s.finish(ctx, "validateState", s.now(), &err)

	if !force && !s.cfg.EnableStateValidation {
		return ValidationResult{Valid: true}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.validateLocked(ctx)
}

// ResyncFromStores discards in-process state and rebuilds it from the stores
func (s *AddressSearchService) ResyncFromStores(ctx context.Context) (err error) {
	defer s.finish(ctx, "resync", s.now(), &err)

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.resyncLocked(ctx)
}

func (s *AddressSearchService) validateLocked(ctx context.Context) (ValidationResult, error) {
	result := ValidationResult{Checked: true, Valid: true}

	if s.selection != nil {
		stored, err := s.states.Selection.GetState(ctx)
		if err != nil {
			return result, err
		}
		var storedID string
		if stored.SelectedResult != nil {
			storedID = stored.SelectedResult.PlaceID
		}
		if storedID != s.selection.Suggestion.PlaceID {
			result.Mismatch = apperrors.New(apperrors.CodeValidationStateMismatch, apperrors.ErrorContext{
				PlaceID:  s.selection.Suggestion.PlaceID,
				Expected: s.selection.Suggestion.PlaceID,
				Actual:   storedID,
				Missing:  "selection",
			})
		}
	}

	if result.Mismatch == nil && s.search != nil {
		stored, err := s.states.Search.GetState(ctx)
		if err != nil {
			return result, err
		}
		if stored.SearchQuery != s.search.Query {
			result.Mismatch = apperrors.New(apperrors.CodeValidationStateMismatch, apperrors.ErrorContext{
				Query:    s.search.Query,
				Expected: s.search.Query,
				Actual:   stored.SearchQuery,
				Missing:  "search",
			})
		}
	}

	if result.Mismatch == nil {
		return result, nil
	}

	result.Valid = false
	s.record(entities.TelemetryStateValidationFailed, "validateState", map[string]any{
		"field":    result.Mismatch.Context.Missing,
		"internal": result.Mismatch.Context.Expected,
		"external": result.Mismatch.Context.Actual,
	})
	s.logger.Warn().
		Str("field", result.Mismatch.Context.Missing).
		Str("internal", result.Mismatch.Context.Expected).
		Str("external", result.Mismatch.Context.Actual).
		Msg("state mismatch detected, resyncing from stores")

	if err := s.resyncLocked(ctx); err != nil {
		return result, err
	}
	result.Resynced = true
	return result, nil
}

func (s *AddressSearchService) resyncLocked(ctx context.Context) error {
	s.search = nil
	s.selection = nil

	search, err := s.currentSearchLocked(ctx)
	if err != nil {
		return err
	}
	selection, err := s.currentSelectionLocked(ctx)
	if err != nil {
		return err
	}

	s.record(entities.TelemetryStateResynced, "resync", map[string]any{
		"searchRestored":    search != nil,
		"selectionRestored": selection != nil,
	})
	return nil
}

// currentSearchLocked returns the in-process search or rebuilds it from the
// last known query, provided the cache still holds results for it.
func (s *AddressSearchService) currentSearchLocked(ctx context.Context) (*entities.SearchState, error) {
	if s.search != nil {
		return s.search, nil
	}

	stored := s.readState(ctx, s.states.Search, "search")
	query := stored.SearchQuery
	if query == "" {
		query = s.readState(ctx, s.states.Agent, "agent").LastAgentSearchQuery
	}
	if query == "" {
		return nil, nil
	}

	key, err := cachekey.NormalizeSearchKey(query)
	if err != nil {
		return nil, nil
	}
	lookup, err := s.cache.GetSuggestions(ctx, key)
	if err != nil {
		return nil, err
	}
	if !lookup.Hit {
		return nil, nil
	}

	source := stored.SearchSource
	if !source.Valid() {
		source = entities.SearchSourceManual
	}
	intent := stored.SearchIntent
	if intent == "" {
		intent = ClassifyIntent(query)
	}

	s.search = &entities.SearchState{
		Query:       cachekey.ExtractQuery(key),
		CacheKey:    key.String(),
		Suggestions: lookup.Data,
		Source:      source,
		Intent:      intent,
		CreatedAt:   s.now().UTC(),
		ResultCount: len(lookup.Data),
	}
	s.record(entities.TelemetryStateReconstructed, "reconstruct", map[string]any{
		"target":      "search",
		"cacheKey":    key.String(),
		"resultCount": len(lookup.Data),
	})
	return s.search, nil
}

// currentSelectionLocked returns the in-process selection or rebuilds it from
// the selection store. A selection is only restored alongside its search.
func (s *AddressSearchService) currentSelectionLocked(ctx context.Context) (*entities.SelectionState, error) {
	if s.selection != nil {
		return s.selection, nil
	}

	stored := s.readState(ctx, s.states.Selection, "selection")
	if stored.SelectedResult == nil {
		return nil, nil
	}
	search, err := s.currentSearchLocked(ctx)
	if err != nil || search == nil {
		return nil, err
	}

	s.selection = &entities.SelectionState{
		Suggestion:       *stored.SelectedResult,
		OriginalQuery:    search.Query,
		OriginalCacheKey: search.CacheKey,
		Source:           search.Source,
		Intent:           search.Intent,
		SelectedAt:       s.now().UTC(),
		IsAcknowledged:   stored.SelectionAcknowledged,
	}
	s.record(entities.TelemetryStateReconstructed, "reconstruct", map[string]any{
		"target":  "selection",
		"placeId": stored.SelectedResult.PlaceID,
	})
	return s.selection, nil
}

// lastSearchQueryLocked returns the query of the current search, or the last
// one the stores know about
func (s *AddressSearchService) lastSearchQueryLocked(ctx context.Context) string {
	if s.search != nil {
		return s.search.Query
	}
	if s.selection != nil && s.selection.OriginalQuery != "" {
		return s.selection.OriginalQuery
	}
	if query := s.readState(ctx, s.states.Search, "search").SearchQuery; query != "" {
		return query
	}
	return s.readState(ctx, s.states.Agent, "agent").LastAgentSearchQuery
}

func (s *AddressSearchService) readState(ctx context.Context, store providers.StateProvider, name string) entities.UIState {
	state, err := store.GetState(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Str("store", name).Msg("failed to read state store")
		return entities.UIState{}
	}
	return state
}
