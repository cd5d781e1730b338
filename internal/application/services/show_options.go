package services

import (
	"context"
	"strings"

	"github.com/ReOpAu/react-starter-kit-sub002/internal/adapters/cache"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/entities"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/providers"
	"github.com/ReOpAu/react-starter-kit-sub002/pkg/cachekey"
	apperrors "github.com/ReOpAu/react-starter-kit-sub002/pkg/errors"
)

var ordinals = map[string]int{
	"first": 0, "1": 0, "1st": 0, "one": 0,
	"second": 1, "2": 1, "2nd": 1, "two": 1,
	"third": 2, "3": 2, "3rd": 2, "three": 2,
	"fourth": 3, "4": 3, "4th": 3, "four": 3,
	"fifth": 4, "5": 4, "5th": 4, "five": 4,
}

// ParseOrdinal maps "first", "2", "3rd" and the like to a zero-based index
func ParseOrdinal(ordinal string) (int, bool) {
	index, ok := ordinals[strings.ToLower(strings.TrimSpace(ordinal))]
	return index, ok
}

// ServiceSnapshot is a debug view of the service
type ServiceSnapshot struct {
	LastQuery       string                   `json:"lastQuery,omitempty"`
	CacheKey        string                   `json:"cacheKey,omitempty"`
	SuggestionCount int                      `json:"suggestionCount"`
	Selection       *entities.SelectionState `json:"selection,omitempty"`
	Acknowledged    bool                     `json:"acknowledged"`
	ReplayActive    bool                     `json:"replayActive"`
	ActiveCacheKeys int                      `json:"activeCacheKeys"`
	Cache           cache.CacheMetrics       `json:"cache"`
	Telemetry       TelemetrySnapshot        `json:"telemetry"`
}

// ShowOptionsConfig reports whether the options of the last search can be
// shown again and why not
func (s *AddressSearchService) ShowOptionsConfig(ctx context.Context) (entities.ShowOptionsConfig, error) {
	s.mu.Lock()
	cfg, err := s.showOptionsConfigLocked(ctx)
	s.mu.Unlock()

	s.flush(ctx, "", 0)
	return cfg, err
}

func (s *AddressSearchService) showOptionsConfigLocked(ctx context.Context) (entities.ShowOptionsConfig, error) {
	selection, err := s.currentSelectionLocked(ctx)
	if err != nil {
		return entities.ShowOptionsConfig{}, err
	}
	if selection == nil {
		return entities.ShowOptionsConfig{Missing: "selection"}, nil
	}

	result := entities.ShowOptionsConfig{Selection: cloneSelection(selection)}
	query := s.lastSearchQueryLocked(ctx)
	if query == "" {
		result.Missing = "last_search_query"
		return result, nil
	}
	key, err := cachekey.NormalizeSearchKey(query)
	if err != nil {
		result.Missing = "last_search_query"
		return result, nil
	}
	count, err := s.cache.GetSuggestionCount(ctx, key)
	if err != nil {
		return result, err
	}

	result.CacheKey = key.String()
	result.CachedCount = count
	result.CanShow = count > 0
	if !result.CanShow {
		result.Missing = "cached_results"
	}
	return result, nil
}

// ShowOptionsAgain returns every suggestion cached for the last search, in
// order, and turns the replay flag on
func (s *AddressSearchService) ShowOptionsAgain(ctx context.Context) (_ []entities.Suggestion, err error) {
	start := s.now()
	defer s.finish(ctx, OperationShowOptions, start, &err)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.EnableStateValidation {
		if _, err := s.validateLocked(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("state validation failed before showing options")
		}
	}

	selection, err := s.currentSelectionLocked(ctx)
	if err != nil {
		return nil, err
	}
	query := s.lastSearchQueryLocked(ctx)
	if selection == nil {
		return nil, s.optionsError(ctx, apperrors.CodeOptionsNoSelection, nil, query, "", "selection")
	}
	if query == "" {
		return nil, s.optionsError(ctx, apperrors.CodeOptionsNoCache, selection, "", "", "last_search_query")
	}

	key, err := cachekey.NormalizeSearchKey(query)
	if err != nil {
		return nil, s.optionsError(ctx, apperrors.CodeOptionsNoCache, selection, query, "", "last_search_query")
	}
	lookup, err := s.cache.GetSuggestions(ctx, key)
	if err != nil {
		return nil, err
	}
	if !lookup.Hit {
		return nil, s.optionsError(ctx, apperrors.CodeOptionsNoCache, selection, query, key.String(), "cached_results")
	}
	if len(lookup.Data) == 0 {
		return nil, s.optionsError(ctx, apperrors.CodeOptionsEmptyCache, selection, query, key.String(), "")
	}

	s.push(ctx, s.states.UI, providers.StoreUI, entities.StatePatch{
		OptionsReplayActive: boolPtr(true),
	})
	s.record(entities.TelemetryOptionsShown, OperationShowOptions, map[string]any{
		"cacheKey":    key.String(),
		"optionCount": len(lookup.Data),
		"placeId":     selection.Suggestion.PlaceID,
	})

	return cloneSuggestions(lookup.Data), nil
}

// HideOptions turns the replay flag off. Safe to call repeatedly.
func (s *AddressSearchService) HideOptions(ctx context.Context) (err error) {
	defer s.finish(ctx, "hideOptions", s.now(), &err)

	s.mu.Lock()
	defer s.mu.Unlock()

	wasActive := s.readState(ctx, s.states.UI, providers.StoreUI).OptionsReplayActive
	s.push(ctx, s.states.UI, providers.StoreUI, entities.StatePatch{
		OptionsReplayActive: boolPtr(false),
	})
	if wasActive {
		s.record(entities.TelemetryOptionsHidden, "hideOptions", nil)
	}
	return nil
}

func (s *AddressSearchService) optionsError(ctx context.Context, code apperrors.Code, selection *entities.SelectionState, query, key, missing string) error {
	errCtx := apperrors.ErrorContext{
		Query:    query,
		CacheKey: key,
		Missing:  missing,
	}
	if selection != nil {
		errCtx.PlaceID = selection.Suggestion.PlaceID
		errCtx.Description = selection.Suggestion.Description
	}
	if count, err := s.cache.ActiveSearchKeyCount(ctx); err == nil {
		errCtx.ActiveCacheKeys = count
	}
	return apperrors.New(code, errCtx)
}

// optionsLocked returns the list ordinals and place ids resolve against: the cached
// list for the current search, or the in-process copy when the entry is gone
func (s *AddressSearchService) optionsLocked(ctx context.Context) (*entities.SearchState, []entities.Suggestion, error) {
	search, err := s.currentSearchLocked(ctx)
	if err != nil {
		return nil, nil, err
	}
	if search == nil {
		return nil, nil, apperrors.New(apperrors.CodeSelectionNoCurrentSearch, apperrors.ErrorContext{})
	}
	key, err := cachekey.NormalizeSearchKey(search.Query)
	if err != nil {
		return nil, nil, err
	}
	lookup, err := s.cache.GetSuggestions(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	if !lookup.Hit {
		return search, search.Suggestions, nil
	}
	return search, lookup.Data, nil
}

func (s *AddressSearchService) suggestionByOrdinalLocked(ctx context.Context, ordinal string) (entities.Suggestion, error) {
	index, ok := ParseOrdinal(ordinal)
	if !ok {
		return entities.Suggestion{}, apperrors.New(apperrors.CodeSelectionInvalidOrdinal, apperrors.ErrorContext{Ordinal: ordinal})
	}
	search, list, err := s.optionsLocked(ctx)
	if err != nil {
		return entities.Suggestion{}, err
	}
	if index >= len(list) {
		return entities.Suggestion{}, apperrors.New(apperrors.CodeSelectionInvalidOrdinal, apperrors.ErrorContext{
			Ordinal:        ordinal,
			Query:          search.Query,
			AvailableCount: len(list),
		})
	}
	return list[index], nil
}

func (s *AddressSearchService) suggestionByPlaceIDLocked(ctx context.Context, placeID string) (entities.Suggestion, error) {
	search, list, err := s.optionsLocked(ctx)
	if err != nil {
		return entities.Suggestion{}, err
	}
	index := entities.IndexOfPlace(list, placeID)
	if index < 0 {
		return entities.Suggestion{}, apperrors.New(apperrors.CodeSelectionNotFound, apperrors.ErrorContext{
			PlaceID:        placeID,
			Query:          search.Query,
			AvailableCount: len(list),
		})
	}
	return list[index], nil
}

// Snapshot returns a debug view of the current state and counters
func (s *AddressSearchService) Snapshot(ctx context.Context) (ServiceSnapshot, error) {
	s.mu.Lock()
	snapshot := ServiceSnapshot{
		LastQuery: s.lastSearchQueryLocked(ctx),
	}
	if s.search != nil {
		snapshot.CacheKey = s.search.CacheKey
		snapshot.SuggestionCount = len(s.search.Suggestions)
	}
	if s.selection != nil {
		snapshot.Selection = cloneSelection(s.selection)
		snapshot.Acknowledged = s.selection.IsAcknowledged
	}
	snapshot.ReplayActive = s.readState(ctx, s.states.UI, providers.StoreUI).OptionsReplayActive
	s.mu.Unlock()

	count, err := s.cache.ActiveSearchKeyCount(ctx)
	if err != nil {
		return snapshot, err
	}
	snapshot.ActiveCacheKeys = count
	snapshot.Cache = s.cache.Metrics()
	snapshot.Telemetry = s.monitor.Snapshot()
	return snapshot, nil
}

// ResetMetrics zeroes telemetry and cache counters
func (s *AddressSearchService) ResetMetrics() {
	s.monitor.Reset()
}
