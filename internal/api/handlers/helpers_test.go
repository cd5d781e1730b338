package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ReOpAu/react-starter-kit-sub002/internal/adapters/cache"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/adapters/database"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/adapters/events"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/adapters/providers/places"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/adapters/state"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/api/handlers"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/application/services"
	"github.com/ReOpAu/react-starter-kit-sub002/pkg/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const testSession = "session-1"

type testAPI struct {
	bus          *events.MemoryEventBus
	orchestrator *services.AddressSearchService
	address      *handlers.AddressHandler
	history      *handlers.HistoryHandler
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	store, err := cache.NewMemoryResultStore(128)
	require.NoError(t, err)
	resultCache := cache.NewResultCache(store, nil)

	bus := events.NewMemoryEventBus(zerolog.Nop())
	t.Cleanup(func() { _ = bus.Close() })

	orchestrator, err := services.NewAddressSearchService(services.AddressSearchDeps{
		Cache:  resultCache,
		States: state.NewSessionProviders(bus, testSession, zerolog.Nop()),
		Logger: zerolog.Nop(),
	}, config.DefaultOrchestratorConfig("test"))
	require.NoError(t, err)

	lookup := services.NewAddressLookupService(orchestrator, places.NewMockPlacesProvider(), resultCache, 5, zerolog.Nop())
	history := services.NewSearchHistoryService(orchestrator, resultCache, database.NewMemorySearchHistoryRepository(), nil, testSession, zerolog.Nop())

	return &testAPI{
		bus:          bus,
		orchestrator: orchestrator,
		address:      handlers.NewAddressHandler(orchestrator, lookup),
		history:      handlers.NewHistoryHandler(history),
	}
}

func jsonRequest(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(w.Body).Decode(dst))
}

type errorBody struct {
	Error       string `json:"error"`
	Code        string `json:"code"`
	Recoverable bool   `json:"recoverable"`
	Context     struct {
		Missing         string `json:"missing"`
		ActiveCacheKeys int    `json:"active_cache_keys"`
	} `json:"context"`
}

func (api *testAPI) search(t *testing.T, query string) {
	t.Helper()
	w := httptest.NewRecorder()
	api.address.Search(w, jsonRequest(t, http.MethodPost, "/api/address/search", map[string]string{"query": query}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}
