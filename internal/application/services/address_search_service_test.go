package services

import (
	"context"
	"sync"
	"testing"

	"github.com/ReOpAu/react-starter-kit-sub002/internal/adapters/cache"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/adapters/state"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/entities"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/providers"
	"github.com/ReOpAu/react-starter-kit-sub002/pkg/cachekey"
	"github.com/ReOpAu/react-starter-kit-sub002/pkg/config"
	apperrors "github.com/ReOpAu/react-starter-kit-sub002/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type eventLog struct {
	mu     sync.Mutex
	events []entities.TelemetryEvent
	alerts []entities.AlertEvent
}

func (l *eventLog) telemetry(event entities.TelemetryEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *eventLog) alert(alert entities.AlertEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.alerts = append(l.alerts, alert)
}

func (l *eventLog) has(eventType entities.TelemetryEventType) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.events {
		if e.Type == eventType {
			return true
		}
	}
	return false
}

type testEnv struct {
	svc    *AddressSearchService
	cache  *cache.ResultCache
	states providers.StateProviders
	log    *eventLog
}

func newTestEnv(t *testing.T, mutate ...func(*config.OrchestratorConfig)) *testEnv {
	t.Helper()

	store, err := cache.NewMemoryResultStore(128)
	require.NoError(t, err)

	env := &testEnv{
		cache:  cache.NewResultCache(store, nil),
		states: state.NewSessionProviders(nil, "test", zerolog.Nop()),
		log:    &eventLog{},
	}
	env.svc = env.newService(t, mutate...)
	return env
}

// newService builds another service over the same cache and stores, as a
// fresh process would
func (e *testEnv) newService(t *testing.T, mutate ...func(*config.OrchestratorConfig)) *AddressSearchService {
	t.Helper()

	cfg := config.DefaultOrchestratorConfig("test")
	for _, m := range mutate {
		m(&cfg)
	}
	svc, err := NewAddressSearchService(AddressSearchDeps{
		Cache:       e.cache,
		States:      e.states,
		OnTelemetry: e.log.telemetry,
		OnAlert:     e.log.alert,
		Logger:      zerolog.Nop(),
	}, cfg)
	require.NoError(t, err)
	return svc
}

func place(id string) entities.Suggestion {
	return entities.Suggestion{
		PlaceID:     id,
		Description: id + " VIC, Australia",
		ResultType:  entities.ResultTypeSuburb,
		Confidence:  0.9,
	}
}

func places(ids ...string) []entities.Suggestion {
	out := make([]entities.Suggestion, 0, len(ids))
	for _, id := range ids {
		out = append(out, place(id))
	}
	return out
}

func placeIDs(list []entities.Suggestion) []string {
	ids := make([]string, 0, len(list))
	for _, s := range list {
		ids = append(ids, s.PlaceID)
	}
	return ids
}

func (e *testEnv) cached(t *testing.T, query string) cache.CacheLookup {
	t.Helper()
	key, err := cachekey.NormalizeSearchKey(query)
	require.NoError(t, err)
	lookup, err := e.cache.GetSuggestions(context.Background(), key)
	require.NoError(t, err)
	return lookup
}

func TestNewAddressSearchService_MissingDependencies(t *testing.T) {
	_, err := NewAddressSearchService(AddressSearchDeps{}, config.DefaultOrchestratorConfig("test"))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeStateMissingDependency))

	store, _ := cache.NewMemoryResultStore(8)
	_, err = NewAddressSearchService(AddressSearchDeps{
		Cache:  cache.NewResultCache(store, nil),
		States: providers.StateProviders{Search: state.NewMemoryStateProvider()},
	}, config.DefaultOrchestratorConfig("test"))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeStateMissingDependency))
}

func TestRecordSearchResults_RejectsBlankQuery(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.RecordSearchResults(context.Background(), "   ", places("a"), SearchContext{})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeSearchInvalidQuery))
	assert.True(t, env.log.has(entities.TelemetryOperationFailed))
}

func TestRecordSearchResults_OverwritesAndClearsSelection(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.svc.RecordSearchResults(ctx, "Richmond", places("a", "b", "c"), SearchContext{Source: entities.SearchSourceManual})
	require.NoError(t, err)
	_, err = env.svc.RecordSelection(ctx, place("b"), SelectionContext{})
	require.NoError(t, err)

	search, err := env.svc.RecordSearchResults(ctx, " Richmond ", places("z"), SearchContext{Source: entities.SearchSourceAgent})
	require.NoError(t, err)

	assert.Equal(t, "Richmond", search.Query)
	assert.Equal(t, "search:Richmond", search.CacheKey)
	assert.Equal(t, 1, search.ResultCount)
	assert.Equal(t, []string{"z"}, placeIDs(env.cached(t, "Richmond").Data))

	selection, err := env.svc.CurrentSelection(ctx)
	require.NoError(t, err)
	assert.Nil(t, selection)

	stored, err := env.states.Search.GetState(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Richmond", stored.SearchQuery)
	assert.Equal(t, entities.SearchSourceAgent, stored.SearchSource)

	agent, err := env.states.Agent.GetState(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Richmond", agent.LastAgentSearchQuery)

	sel, err := env.states.Selection.GetState(ctx)
	require.NoError(t, err)
	assert.Nil(t, sel.SelectedResult)
}

func TestRecordSearchResults_ManualSearchLeavesAgentStore(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.svc.RecordSearchResults(ctx, "Carlton", places("a"), SearchContext{})
	require.NoError(t, err)

	agent, err := env.states.Agent.GetState(ctx)
	require.NoError(t, err)
	assert.Empty(t, agent.LastAgentSearchQuery)
}

func TestRecordSelection_RequiresSearch(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.RecordSelection(context.Background(), place("a"), SelectionContext{})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeSelectionNoCurrentSearch))
}

func TestRecordSelection_AppendsMissingSuggestion(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.svc.RecordSearchResults(ctx, "Richmond", places("a", "b", "c"), SearchContext{})
	require.NoError(t, err)

	selection, err := env.svc.RecordSelection(ctx, place("d"), SelectionContext{Source: entities.SearchSourceVoice})
	require.NoError(t, err)

	assert.Equal(t, "d", selection.Suggestion.PlaceID)
	assert.Equal(t, "Richmond", selection.OriginalQuery)
	assert.Equal(t, "search:Richmond", selection.OriginalCacheKey)
	assert.Equal(t, entities.SearchSourceVoice, selection.Source)
	assert.Equal(t, []string{"a", "b", "c", "d"}, placeIDs(env.cached(t, "Richmond").Data))
	assert.True(t, env.log.has(entities.TelemetrySelectionAppended))

	stored, err := env.states.Selection.GetState(ctx)
	require.NoError(t, err)
	require.NotNil(t, stored.SelectedResult)
	assert.Equal(t, "d", stored.SelectedResult.PlaceID)
}

func TestRecordSelection_ExistingSuggestionKeepsLargerCache(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.svc.RecordSearchResults(ctx, "Richmond", places("a", "b"), SearchContext{})
	require.NoError(t, err)

	// another flow widened the cached list after the search was recorded
	key, _ := cachekey.NormalizeSearchKey("Richmond")
	_, err = env.cache.SetSuggestions(ctx, key, places("a", "b", "c", "d", "e"), cache.WriteOptions{Overwrite: true})
	require.NoError(t, err)

	_, err = env.svc.RecordSelection(ctx, place("b"), SelectionContext{})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, placeIDs(env.cached(t, "Richmond").Data))
	assert.False(t, env.log.has(entities.TelemetrySelectionAppended))
}

func TestRecordSelection_RestoresEvictedEntry(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.svc.RecordSearchResults(ctx, "Richmond", places("a", "b"), SearchContext{})
	require.NoError(t, err)
	key, _ := cachekey.NormalizeSearchKey("Richmond")
	require.NoError(t, env.cache.RemoveSuggestions(ctx, key))

	_, err = env.svc.RecordSelection(ctx, place("c"), SelectionContext{})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, placeIDs(env.cached(t, "Richmond").Data))
}

func TestShowOptionsAgain_ReturnsCompleteList(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.svc.RecordSearchResults(ctx, "Richmond", places("a", "b", "c", "d", "e"), SearchContext{})
	require.NoError(t, err)
	_, err = env.svc.SelectByOrdinal(ctx, "second", SelectionContext{})
	require.NoError(t, err)

	options, err := env.svc.ShowOptionsAgain(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, placeIDs(options))

	ui, err := env.states.UI.GetState(ctx)
	require.NoError(t, err)
	assert.True(t, ui.OptionsReplayActive)

	require.NoError(t, env.svc.HideOptions(ctx))
	require.NoError(t, env.svc.HideOptions(ctx))
	ui, _ = env.states.UI.GetState(ctx)
	assert.False(t, ui.OptionsReplayActive)
}

func TestShowOptionsAgain_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("no selection", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.svc.RecordSearchResults(ctx, "Richmond", places("a"), SearchContext{})
		require.NoError(t, err)

		_, err = env.svc.ShowOptionsAgain(ctx)
		appErr, ok := apperrors.As(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.CodeOptionsNoSelection, appErr.Code)
		assert.Equal(t, "Richmond", appErr.Context.Query)
		assert.Equal(t, 1, appErr.Context.ActiveCacheKeys)
	})

	t.Run("cache gone", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.svc.RecordSearchResults(ctx, "Richmond", places("a", "b"), SearchContext{})
		require.NoError(t, err)
		_, err = env.svc.SelectByPlaceID(ctx, "a", SelectionContext{})
		require.NoError(t, err)
		_, err = env.cache.ClearSearchNamespace(ctx)
		require.NoError(t, err)

		_, err = env.svc.ShowOptionsAgain(ctx)
		appErr, ok := apperrors.As(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.CodeOptionsNoCache, appErr.Code)
		assert.Equal(t, "a VIC, Australia", appErr.Context.Description)
	})

	t.Run("empty cache", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.svc.RecordSearchResults(ctx, "Richmond", places("a", "b"), SearchContext{})
		require.NoError(t, err)
		_, err = env.svc.SelectByPlaceID(ctx, "a", SelectionContext{})
		require.NoError(t, err)
		key, _ := cachekey.NormalizeSearchKey("Richmond")
		_, err = env.cache.SetSuggestions(ctx, key, nil, cache.WriteOptions{Overwrite: true})
		require.NoError(t, err)

		_, err = env.svc.ShowOptionsAgain(ctx)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeOptionsEmptyCache))
	})
}

func TestShowOptionsConfig(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	cfg, err := env.svc.ShowOptionsConfig(ctx)
	require.NoError(t, err)
	assert.False(t, cfg.CanShow)
	assert.Equal(t, "selection", cfg.Missing)

	_, err = env.svc.RecordSearchResults(ctx, "Fitzroy", places("a", "b", "c"), SearchContext{})
	require.NoError(t, err)
	_, err = env.svc.SelectByOrdinal(ctx, "3rd", SelectionContext{})
	require.NoError(t, err)

	cfg, err = env.svc.ShowOptionsConfig(ctx)
	require.NoError(t, err)
	assert.True(t, cfg.CanShow)
	assert.Equal(t, "search:Fitzroy", cfg.CacheKey)
	assert.Equal(t, 3, cfg.CachedCount)
	require.NotNil(t, cfg.Selection)
	assert.Equal(t, "c", cfg.Selection.Suggestion.PlaceID)
}

func TestSelectByOrdinal(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.svc.RecordSearchResults(ctx, "Carlton", places("a", "b", "c"), SearchContext{})
	require.NoError(t, err)

	selection, err := env.svc.SelectByOrdinal(ctx, "Second", SelectionContext{})
	require.NoError(t, err)
	assert.Equal(t, "b", selection.Suggestion.PlaceID)

	_, err = env.svc.SelectByOrdinal(ctx, "sixth", SelectionContext{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeSelectionInvalidOrdinal))

	_, err = env.svc.SelectByOrdinal(ctx, "fifth", SelectionContext{})
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeSelectionInvalidOrdinal, appErr.Code)
	assert.Equal(t, 3, appErr.Context.AvailableCount)

	_, err = env.svc.SelectByPlaceID(ctx, "missing", SelectionContext{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeSelectionNotFound))
}

func TestParseOrdinal(t *testing.T) {
	for input, want := range map[string]int{"first": 0, "1": 0, "1st": 0, " FIFTH ": 4, "3rd": 2} {
		got, ok := ParseOrdinal(input)
		assert.True(t, ok, input)
		assert.Equal(t, want, got, input)
	}
	_, ok := ParseOrdinal("last")
	assert.False(t, ok)
}

func TestReconstruction_FreshServiceRestoresState(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.svc.RecordSearchResults(ctx, "Richmond", places("a", "b", "c"), SearchContext{Source: entities.SearchSourceVoice})
	require.NoError(t, err)
	_, err = env.svc.SelectByOrdinal(ctx, "2", SelectionContext{})
	require.NoError(t, err)
	require.NoError(t, env.svc.AcknowledgeSelection(ctx, true))

	fresh := env.newService(t)

	search, err := fresh.CurrentSearch(ctx)
	require.NoError(t, err)
	require.NotNil(t, search)
	assert.Equal(t, "Richmond", search.Query)
	assert.Equal(t, []string{"a", "b", "c"}, placeIDs(search.Suggestions))
	assert.Equal(t, entities.SearchSourceVoice, search.Source)

	selection, err := fresh.CurrentSelection(ctx)
	require.NoError(t, err)
	require.NotNil(t, selection)
	assert.Equal(t, "b", selection.Suggestion.PlaceID)
	assert.True(t, selection.IsAcknowledged)
	assert.True(t, env.log.has(entities.TelemetryStateReconstructed))

	options, err := fresh.ShowOptionsAgain(ctx)
	require.NoError(t, err)
	assert.Len(t, options, 3)
}

func TestReconstruction_FallsBackToAgentQuery(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	query := "St Kilda"
	require.NoError(t, env.states.Agent.SetState(ctx, entities.StatePatch{LastAgentSearchQuery: &query}))
	key, _ := cachekey.NormalizeSearchKey(query)
	_, err := env.cache.SetSuggestions(ctx, key, places("a"), cache.WriteOptions{Overwrite: true})
	require.NoError(t, err)

	search, err := env.svc.CurrentSearch(ctx)
	require.NoError(t, err)
	require.NotNil(t, search)
	assert.Equal(t, "St Kilda", search.Query)
	assert.Equal(t, entities.IntentStreet, search.Intent)
}

func TestReconstruction_ColdStartReturnsNil(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.svc.RecordSearchResults(ctx, "Richmond", places("a"), SearchContext{})
	require.NoError(t, err)
	_, err = env.cache.ClearSearchNamespace(ctx)
	require.NoError(t, err)

	fresh := env.newService(t)
	search, err := fresh.CurrentSearch(ctx)
	require.NoError(t, err)
	assert.Nil(t, search)

	empty := newTestEnv(t)
	search, err = empty.svc.CurrentSearch(ctx)
	require.NoError(t, err)
	assert.Nil(t, search)
}

func TestValidateStateIntegrity(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	result, err := env.svc.ValidateStateIntegrity(ctx, false)
	require.NoError(t, err)
	assert.False(t, result.Checked)

	_, err = env.svc.RecordSearchResults(ctx, "Richmond", places("a", "b"), SearchContext{})
	require.NoError(t, err)
	_, err = env.svc.SelectByPlaceID(ctx, "a", SelectionContext{})
	require.NoError(t, err)

	result, err = env.svc.ValidateStateIntegrity(ctx, true)
	require.NoError(t, err)
	assert.True(t, result.Checked)
	assert.True(t, result.Valid)

	// the selection store was cleared behind the service's back
	require.NoError(t, env.states.Selection.SetState(ctx, entities.StatePatch{ClearSelectedResult: true}))

	result, err = env.svc.ValidateStateIntegrity(ctx, true)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.True(t, result.Resynced)
	require.NotNil(t, result.Mismatch)
	assert.Equal(t, apperrors.CodeValidationStateMismatch, result.Mismatch.Code)
	assert.Equal(t, "a", result.Mismatch.Context.Expected)
	assert.True(t, env.log.has(entities.TelemetryStateValidationFailed))
	assert.True(t, env.log.has(entities.TelemetryStateResynced))

	selection, err := env.svc.CurrentSelection(ctx)
	require.NoError(t, err)
	assert.Nil(t, selection)
	search, err := env.svc.CurrentSearch(ctx)
	require.NoError(t, err)
	require.NotNil(t, search)
	assert.Equal(t, "Richmond", search.Query)
}

func TestValidateStateIntegrity_RunsBeforeSelectionWhenEnabled(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, func(c *config.OrchestratorConfig) { c.EnableStateValidation = true })

	_, err := env.svc.RecordSearchResults(ctx, "Richmond", places("a"), SearchContext{})
	require.NoError(t, err)

	other := "Carlton"
	require.NoError(t, env.states.Search.SetState(ctx, entities.StatePatch{SearchQuery: &other}))
	key, _ := cachekey.NormalizeSearchKey(other)
	_, err = env.cache.SetSuggestions(ctx, key, places("x", "y"), cache.WriteOptions{Overwrite: true})
	require.NoError(t, err)

	selection, err := env.svc.RecordSelection(ctx, place("y"), SelectionContext{})
	require.NoError(t, err)
	assert.Equal(t, "Carlton", selection.OriginalQuery)
	assert.True(t, env.log.has(entities.TelemetryStateValidationFailed))
}

func TestSelectionLifecycle(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	assert.True(t, apperrors.HasCode(env.svc.AcknowledgeSelection(ctx, true), apperrors.CodeSelectionNone))
	assert.True(t, apperrors.HasCode(env.svc.MarkSelectionValidated(ctx), apperrors.CodeSelectionNone))

	_, err := env.svc.RecordSearchResults(ctx, "Richmond", places("a"), SearchContext{})
	require.NoError(t, err)
	_, err = env.svc.SelectByOrdinal(ctx, "first", SelectionContext{})
	require.NoError(t, err)

	require.NoError(t, env.svc.AcknowledgeSelection(ctx, true))
	require.NoError(t, env.svc.MarkSelectionValidated(ctx))
	selection, err := env.svc.CurrentSelection(ctx)
	require.NoError(t, err)
	assert.True(t, selection.IsAcknowledged)
	assert.True(t, selection.IsValidated)

	require.NoError(t, env.svc.ClearSelection(ctx))
	selection, err = env.svc.CurrentSelection(ctx)
	require.NoError(t, err)
	assert.Nil(t, selection)

	search, err := env.svc.CurrentSearch(ctx)
	require.NoError(t, err)
	assert.NotNil(t, search)
}

func TestReset_PreventsReconstruction(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.svc.RecordSearchResults(ctx, "Richmond", places("a"), SearchContext{Source: entities.SearchSourceAgent})
	require.NoError(t, err)
	require.NoError(t, env.svc.Reset(ctx))

	search, err := env.svc.CurrentSearch(ctx)
	require.NoError(t, err)
	assert.Nil(t, search)
	assert.True(t, env.cached(t, "Richmond").Hit)
}

func TestRequestManualInput(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	require.NoError(t, env.svc.RequestManualInput(ctx, "unit number missing"))

	ui, err := env.states.UI.GetState(ctx)
	require.NoError(t, err)
	assert.True(t, ui.ManualInputRequested)
	assert.Equal(t, "unit number missing", ui.ManualInputReason)
}

func TestTelemetrySinkPanicIsRecovered(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	svc, err := NewAddressSearchService(AddressSearchDeps{
		Cache:       env.cache,
		States:      env.states,
		OnTelemetry: func(entities.TelemetryEvent) { panic("sink down") },
		Logger:      zerolog.Nop(),
	}, config.DefaultOrchestratorConfig("test"))
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		_, err = svc.RecordSearchResults(ctx, "Richmond", places("a"), SearchContext{})
	})
	assert.NoError(t, err)
}

func TestSnapshot(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.svc.RecordSearchResults(ctx, "Richmond", places("a", "b"), SearchContext{})
	require.NoError(t, err)
	_, err = env.svc.SelectByOrdinal(ctx, "1", SelectionContext{})
	require.NoError(t, err)

	snapshot, err := env.svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Richmond", snapshot.LastQuery)
	assert.Equal(t, 2, snapshot.SuggestionCount)
	assert.Equal(t, 1, snapshot.ActiveCacheKeys)
	require.NotNil(t, snapshot.Selection)
	assert.Equal(t, int64(1), snapshot.Telemetry.Operations[OperationSearch].Count)
	assert.Equal(t, int64(1), snapshot.Telemetry.Operations[OperationSelection].Count)
}
