package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ReOpAu/react-starter-kit-sub002/internal/adapters/cache"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/entities"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/providers"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/infrastructure/observability"
	"github.com/ReOpAu/react-starter-kit-sub002/pkg/cachekey"
	"github.com/ReOpAu/react-starter-kit-sub002/pkg/config"
	apperrors "github.com/ReOpAu/react-starter-kit-sub002/pkg/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SearchContext describes who issued a search
type SearchContext struct {
	Source entities.SearchSource
	// Intent is classified from the query when empty
	Intent entities.Intent
}

// SelectionContext describes who made a selection
type SelectionContext struct {
	Source entities.SearchSource
}

// AddressSearchDeps holds the collaborators of AddressSearchService
type AddressSearchDeps struct {
	Cache       *cache.ResultCache
	States      providers.StateProviders
	OnTelemetry providers.TelemetrySink
	OnAlert     providers.AlertSink
	Logger      zerolog.Logger
	Metrics     *observability.Metrics
	Clock       func() time.Time
}

// AddressSearchService owns the current search and selection, enforces the
// cache preservation and replay rules and monitors itself.
type AddressSearchService struct {
	cache       *cache.ResultCache
	states      providers.StateProviders
	cfg         config.OrchestratorConfig
	monitor     *TelemetryMonitor
	onTelemetry providers.TelemetrySink
	logger      zerolog.Logger
	metrics     *observability.Metrics
	now         func() time.Time

	mu        sync.Mutex
	search    *entities.SearchState
	selection *entities.SelectionState
	pending   []entities.TelemetryEvent
}

// NewAddressSearchService creates the service. Use a Container to get the
// process-wide instance.
func NewAddressSearchService(deps AddressSearchDeps, cfg config.OrchestratorConfig) (*AddressSearchService, error) {
	if deps.Cache == nil {
		return nil, apperrors.New(apperrors.CodeStateMissingDependency, apperrors.ErrorContext{Missing: "cache"})
	}
	if !deps.States.Complete() {
		return nil, apperrors.New(apperrors.CodeStateMissingDependency, apperrors.ErrorContext{Missing: "state_providers"})
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid orchestrator config: %w", err)
	}

	logger := deps.Logger.With().Str("component", "address_search").Logger()
	if !cfg.EnableLogging {
		logger = zerolog.Nop()
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}

	monitor := NewTelemetryMonitor(cfg.Alerts, cfg.MaxOperationsBeforeReset, deps.Cache, deps.OnAlert, logger, deps.Metrics)
	monitor.now = now

	return &AddressSearchService{
		cache:       deps.Cache,
		states:      deps.States,
		cfg:         cfg,
		monitor:     monitor,
		onTelemetry: deps.OnTelemetry,
		logger:      logger,
		metrics:     deps.Metrics,
		now:         now,
	}, nil
}

// RecordSearchResults makes query the current search. The cache entry is
// always overwritten and any previous selection is cleared.
func (s *AddressSearchService) RecordSearchResults(ctx context.Context, query string, suggestions []entities.Suggestion, sc SearchContext) (_ *entities.SearchState, err error) {
	start := s.now()
	defer s.finish(ctx, OperationSearch, start, &err)

	s.mu.Lock()
	defer s.mu.Unlock()

	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, apperrors.New(apperrors.CodeSearchInvalidQuery, apperrors.ErrorContext{Query: query})
	}
	key, err := cachekey.NormalizeSearchKey(trimmed)
	if err != nil {
		return nil, err
	}

	source := sc.Source
	if !source.Valid() {
		source = entities.SearchSourceManual
	}
	intent := sc.Intent
	if intent == "" {
		intent = ClassifyIntent(trimmed)
	}

	list := cloneSuggestions(suggestions)
	if _, err := s.cache.SetSuggestions(ctx, key, list, cache.WriteOptions{Overwrite: true}); err != nil {
		return nil, err
	}

	hadSelection := s.selection != nil
	s.search = &entities.SearchState{
		Query:       trimmed,
		CacheKey:    key.String(),
		Suggestions: list,
		Source:      source,
		Intent:      intent,
		CreatedAt:   s.now().UTC(),
		ResultCount: len(list),
	}
	s.selection = nil

	s.push(ctx, s.states.Search, providers.StoreSearch, entities.StatePatch{
		SearchQuery:  &trimmed,
		SearchSource: &source,
		SearchIntent: &intent,
	})
	s.push(ctx, s.states.Selection, providers.StoreSelection, entities.StatePatch{
		ClearSelectedResult:   true,
		SelectionAcknowledged: boolPtr(false),
	})
	s.push(ctx, s.states.UI, providers.StoreUI, entities.StatePatch{
		OptionsReplayActive: boolPtr(false),
	})
	if source == entities.SearchSourceAgent || source == entities.SearchSourceVoice {
		s.push(ctx, s.states.Agent, providers.StoreAgent, entities.StatePatch{
			LastAgentSearchQuery: &trimmed,
		})
	}

	s.record(entities.TelemetrySearchRecorded, OperationSearch, map[string]any{
		"query":             trimmed,
		"cacheKey":          key.String(),
		"resultCount":       len(list),
		"source":            string(source),
		"intent":            string(intent),
		"selectionReplaced": hadSelection,
	})
	s.logger.Debug().Str("cache_key", key.String()).Int("result_count", len(list)).Str("source", string(source)).Msg("search recorded")

	return cloneSearch(s.search), nil
}

// RecordSelection confirms suggestion as the pick from the current search. A
// suggestion missing from the cached list is appended to it.
func (s *AddressSearchService) RecordSelection(ctx context.Context, suggestion entities.Suggestion, sc SelectionContext) (_ *entities.SelectionState, err error) {
	start := s.now()
	defer s.finish(ctx, OperationSelection, start, &err)

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.recordSelectionLocked(ctx, suggestion, sc)
}

// SelectByOrdinal selects the n-th option of the current search, where
// ordinal is a word like "second", a number or "2nd".
func (s *AddressSearchService) SelectByOrdinal(ctx context.Context, ordinal string, sc SelectionContext) (_ *entities.SelectionState, err error) {
	start := s.now()
	defer s.finish(ctx, OperationSelection, start, &err)

	s.mu.Lock()
	defer s.mu.Unlock()

	suggestion, err := s.suggestionByOrdinalLocked(ctx, ordinal)
	if err != nil {
		return nil, err
	}
	return s.recordSelectionLocked(ctx, suggestion, sc)
}

// SelectByPlaceID selects the option of the current search with placeID
func (s *AddressSearchService) SelectByPlaceID(ctx context.Context, placeID string, sc SelectionContext) (_ *entities.SelectionState, err error) {
	start := s.now()
	defer s.finish(ctx, OperationSelection, start, &err)

	s.mu.Lock()
	defer s.mu.Unlock()

	suggestion, err := s.suggestionByPlaceIDLocked(ctx, placeID)
	if err != nil {
		return nil, err
	}
	return s.recordSelectionLocked(ctx, suggestion, sc)
}

func (s *AddressSearchService) recordSelectionLocked(ctx context.Context, suggestion entities.Suggestion, sc SelectionContext) (*entities.SelectionState, error) {
	if s.cfg.EnableStateValidation {
		if _, err := s.validateLocked(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("state validation failed before selection")
		}
	}

	search, err := s.currentSearchLocked(ctx)
	if err != nil {
		return nil, s.selectionError(suggestion, nil, err)
	}
	if search == nil {
		return nil, apperrors.New(apperrors.CodeSelectionNoCurrentSearch, apperrors.ErrorContext{
			PlaceID:     suggestion.PlaceID,
			Description: suggestion.Description,
		})
	}
	if strings.TrimSpace(suggestion.PlaceID) == "" {
		return nil, apperrors.New(apperrors.CodeSelectionNotFound, apperrors.ErrorContext{
			Description:    suggestion.Description,
			Query:          search.Query,
			AvailableCount: len(search.Suggestions),
			Missing:        "place_id",
		})
	}

	key, err := cachekey.NormalizeSearchKey(search.Query)
	if err != nil {
		return nil, s.selectionError(suggestion, search, err)
	}
	lookup, err := s.cache.GetSuggestions(ctx, key)
	if err != nil {
		return nil, s.selectionError(suggestion, search, err)
	}

	list := search.Suggestions
	if lookup.Hit {
		list = lookup.Data
	}
	appended := false
	if !entities.ContainsPlace(list, suggestion.PlaceID) {
		list = append(cloneSuggestions(list), suggestion)
		appended = true
	}
	if appended || !lookup.Hit {
		outcome, err := s.cache.SetSuggestions(ctx, key, list, cache.WriteOptions{Overwrite: false})
		if err != nil {
			return nil, s.selectionError(suggestion, search, err)
		}
		if outcome.Preserved {
			s.logger.Warn().
				Str("cache_key", key.String()).
				Int("existing_count", outcome.ExistingCount).
				Int("incoming_count", len(list)).
				Msg("selection write preserved a larger cached list")
		} else {
			search.Suggestions = cloneSuggestions(list)
			search.ResultCount = len(list)
		}
	}
	if appended {
		s.record(entities.TelemetrySelectionAppended, OperationSelection, map[string]any{
			"placeId":  suggestion.PlaceID,
			"cacheKey": key.String(),
			"newCount": len(list),
		})
	}

	source := sc.Source
	if !source.Valid() {
		source = search.Source
	}
	s.selection = &entities.SelectionState{
		Suggestion:       suggestion,
		OriginalQuery:    search.Query,
		OriginalCacheKey: key.String(),
		Source:           source,
		Intent:           search.Intent,
		SelectedAt:       s.now().UTC(),
	}

	selected := suggestion
	s.push(ctx, s.states.Selection, providers.StoreSelection, entities.StatePatch{
		SelectedResult:        &selected,
		SelectionAcknowledged: boolPtr(false),
	})
	s.push(ctx, s.states.UI, providers.StoreUI, entities.StatePatch{
		OptionsReplayActive: boolPtr(false),
	})

	s.record(entities.TelemetrySelectionRecorded, OperationSelection, map[string]any{
		"placeId":  suggestion.PlaceID,
		"query":    search.Query,
		"cacheKey": key.String(),
		"source":   string(source),
		"appended": appended,
	})
	s.logger.Debug().Str("place_id", suggestion.PlaceID).Str("cache_key", key.String()).Bool("appended", appended).Msg("selection recorded")

	return cloneSelection(s.selection), nil
}

func (s *AddressSearchService) selectionError(suggestion entities.Suggestion, search *entities.SearchState, cause error) error {
	errCtx := apperrors.ErrorContext{
		PlaceID:     suggestion.PlaceID,
		Description: suggestion.Description,
	}
	if search != nil {
		errCtx.Query = search.Query
		errCtx.CacheKey = search.CacheKey
		errCtx.AvailableCount = len(search.Suggestions)
	}
	return apperrors.Wrap(apperrors.CodeSelectionNotFound, errCtx, cause)
}

// AcknowledgeSelection sets whether the user has confirmed the selection
func (s *AddressSearchService) AcknowledgeSelection(ctx context.Context, acknowledged bool) (err error) {
	defer s.finish(ctx, "acknowledgeSelection", s.now(), &err)

	s.mu.Lock()
	defer s.mu.Unlock()

	selection, err := s.currentSelectionLocked(ctx)
	if err != nil {
		return err
	}
	if selection == nil {
		return apperrors.New(apperrors.CodeSelectionNone, apperrors.ErrorContext{})
	}
	selection.IsAcknowledged = acknowledged
	s.push(ctx, s.states.Selection, providers.StoreSelection, entities.StatePatch{
		SelectionAcknowledged: &acknowledged,
	})
	return nil
}

// MarkSelectionValidated records that the selection passed address validation
func (s *AddressSearchService) MarkSelectionValidated(ctx context.Context) (err error) {
	defer s.finish(ctx, "markSelectionValidated", s.now(), &err)

	s.mu.Lock()
	defer s.mu.Unlock()

	selection, err := s.currentSelectionLocked(ctx)
	if err != nil {
		return err
	}
	if selection == nil {
		return apperrors.New(apperrors.CodeSelectionNone, apperrors.ErrorContext{})
	}
	selection.IsValidated = true
	return nil
}

// ClearSelection drops the selection but keeps the current search
func (s *AddressSearchService) ClearSelection(ctx context.Context) (err error) {
	defer s.finish(ctx, "clearSelection", s.now(), &err)

	s.mu.Lock()
	defer s.mu.Unlock()

	var placeID string
	if s.selection != nil {
		placeID = s.selection.Suggestion.PlaceID
	}
	s.selection = nil
	s.push(ctx, s.states.Selection, providers.StoreSelection, entities.StatePatch{
		ClearSelectedResult:   true,
		SelectionAcknowledged: boolPtr(false),
	})
	s.push(ctx, s.states.UI, providers.StoreUI, entities.StatePatch{
		OptionsReplayActive: boolPtr(false),
	})
	s.record(entities.TelemetrySelectionCleared, "clearSelection", map[string]any{"placeId": placeID})
	return nil
}

// Reset clears the search and selection in process and in the stores so
// nothing is reconstructed afterwards. Cached results are kept.
func (s *AddressSearchService) Reset(ctx context.Context) (err error) {
	defer s.finish(ctx, "reset", s.now(), &err)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.search = nil
	s.selection = nil
	empty := ""
	s.push(ctx, s.states.Search, providers.StoreSearch, entities.StatePatch{SearchQuery: &empty})
	s.push(ctx, s.states.Selection, providers.StoreSelection, entities.StatePatch{
		ClearSelectedResult:   true,
		SelectionAcknowledged: boolPtr(false),
	})
	s.push(ctx, s.states.UI, providers.StoreUI, entities.StatePatch{
		OptionsReplayActive:  boolPtr(false),
		ManualInputRequested: boolPtr(false),
		ManualInputReason:    &empty,
	})
	s.push(ctx, s.states.Agent, providers.StoreAgent, entities.StatePatch{LastAgentSearchQuery: &empty})
	s.record(entities.TelemetrySelectionCleared, "reset", map[string]any{"reset": true})
	return nil
}

// RequestManualInput asks the UI to switch to typed input
func (s *AddressSearchService) RequestManualInput(ctx context.Context, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.push(ctx, s.states.UI, providers.StoreUI, entities.StatePatch{
		ManualInputRequested: boolPtr(true),
		ManualInputReason:    &reason,
	})
	return nil
}

// CurrentSearch returns the current search, rebuilding it from the stores
// when it was lost. nil means there is no search to restore.
func (s *AddressSearchService) CurrentSearch(ctx context.Context) (*entities.SearchState, error) {
	s.mu.Lock()
	search, err := s.currentSearchLocked(ctx)
	search = cloneSearch(search)
	s.mu.Unlock()

	s.flush(ctx, "", 0)
	return search, err
}

// CurrentSelection returns the current selection, rebuilding it when lost
func (s *AddressSearchService) CurrentSelection(ctx context.Context) (*entities.SelectionState, error) {
	s.mu.Lock()
	selection, err := s.currentSelectionLocked(ctx)
	selection = cloneSelection(selection)
	s.mu.Unlock()

	s.flush(ctx, "", 0)
	return selection, err
}

// SuggestionByOrdinal resolves an ordinal against the current search
// without selecting it
func (s *AddressSearchService) SuggestionByOrdinal(ctx context.Context, ordinal string) (entities.Suggestion, error) {
	s.mu.Lock()
	suggestion, err := s.suggestionByOrdinalLocked(ctx, ordinal)
	s.mu.Unlock()

	s.flush(ctx, "", 0)
	return suggestion, err
}

// SuggestionByPlaceID resolves a place id against the current search
// without selecting it
func (s *AddressSearchService) SuggestionByPlaceID(ctx context.Context, placeID string) (entities.Suggestion, error) {
	s.mu.Lock()
	suggestion, err := s.suggestionByPlaceIDLocked(ctx, placeID)
	s.mu.Unlock()

	s.flush(ctx, "", 0)
	return suggestion, err
}

// Monitor exposes the telemetry monitor
func (s *AddressSearchService) Monitor() *TelemetryMonitor {
	return s.monitor
}

// push writes patch to a state store. Failures are logged and never fail
// the calling operation.
func (s *AddressSearchService) push(ctx context.Context, store providers.StateProvider, name string, patch entities.StatePatch) {
	if err := store.SetState(ctx, patch); err != nil {
		s.logger.Warn().Err(err).Str("store", name).Msg("failed to update state store")
	}
}

// record queues a telemetry event. Must be called with mu held.
func (s *AddressSearchService) record(eventType entities.TelemetryEventType, operation string, attrs map[string]any) {
	s.pending = append(s.pending, entities.TelemetryEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Operation:  operation,
		Attributes: attrs,
		Timestamp:  s.now().UTC(),
	})
}

// finish runs after the operation released mu: it reports failures, feeds
// the timing sample to the monitor and delivers queued telemetry.
func (s *AddressSearchService) finish(ctx context.Context, operation string, start time.Time, errp *error) {
	duration := s.now().Sub(start)
	failed := errp != nil && *errp != nil

	if failed {
		attrs := map[string]any{"error": (*errp).Error()}
		if appErr, ok := apperrors.As(*errp); ok {
			attrs["code"] = string(appErr.Code)
			attrs["recoverable"] = appErr.Recoverable
		}
		s.mu.Lock()
		s.record(entities.TelemetryOperationFailed, operation, attrs)
		s.mu.Unlock()
		s.logger.Debug().Err(*errp).Str("operation", operation).Msg("operation failed")
	}

	if isTimedOperation(operation) {
		s.monitor.RecordOperation(ctx, operation, duration, failed)
	}
	s.flush(ctx, operation, duration)
}

func (s *AddressSearchService) flush(ctx context.Context, operation string, duration time.Duration) {
	s.mu.Lock()
	events := s.pending
	s.pending = nil
	s.mu.Unlock()

	durationMs := float64(duration) / float64(time.Millisecond)
	for _, event := range events {
		if operation != "" && event.Operation == operation {
			event.DurationMs = durationMs
		}
		s.emit(ctx, event)
	}
}

func (s *AddressSearchService) emit(ctx context.Context, event entities.TelemetryEvent) {
	observability.RecordTelemetryEvent(ctx, s.metrics, string(event.Type))
	if s.onTelemetry == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Str("event_type", string(event.Type)).Msg("telemetry sink panicked")
		}
	}()
	s.onTelemetry(event)
}

func isTimedOperation(operation string) bool {
	for _, op := range timedOperations {
		if op == operation {
			return true
		}
	}
	return false
}

func boolPtr(v bool) *bool {
	return &v
}

func cloneSuggestions(list []entities.Suggestion) []entities.Suggestion {
	out := make([]entities.Suggestion, len(list))
	copy(out, list)
	return out
}

func cloneSearch(search *entities.SearchState) *entities.SearchState {
	if search == nil {
		return nil
	}
	out := *search
	out.Suggestions = cloneSuggestions(search.Suggestions)
	return &out
}

func cloneSelection(selection *entities.SelectionState) *entities.SelectionState {
	if selection == nil {
		return nil
	}
	out := *selection
	return &out
}
