package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/entities"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/repositories"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/infrastructure/clients/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ repositories.SearchHistoryRepository = (*SearchHistoryAdapter)(nil)

func setupMockDB(t *testing.T) (*SearchHistoryAdapter, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return NewSearchHistoryAdapter(postgres.Wrap(mockDB)), mock
}

func historyRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "session_id", "query", "cache_key", "intent", "source",
		"place_id", "description", "suggestion", "result_count", "created_at",
	})
}

func TestSearchHistoryAdapter_Create(t *testing.T) {
	adapter, mock := setupMockDB(t)

	mock.ExpectExec(`INSERT INTO "address_search_history"`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := adapter.Create(context.Background(), &entities.HistoryEntry{
		ID:          "8c1f6f8e-0000-4000-8000-000000000001",
		SessionID:   "s1",
		Query:       "Richmond",
		CacheKey:    "search:Richmond",
		Intent:      entities.IntentSuburb,
		Source:      entities.SearchSourceVoice,
		PlaceID:     "p1",
		Description: "Richmond VIC, Australia",
		Suggestion:  entities.Suggestion{PlaceID: "p1", Description: "Richmond VIC, Australia"},
		ResultCount: 3,
		CreatedAt:   time.Now(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchHistoryAdapter_CreateNil(t *testing.T) {
	adapter, _ := setupMockDB(t)
	assert.Error(t, adapter.Create(context.Background(), nil))
}

func TestSearchHistoryAdapter_GetByID(t *testing.T) {
	adapter, mock := setupMockDB(t)
	created := time.Date(2026, 10, 1, 9, 30, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .* FROM "address_search_history" WHERE \("id" = \$1\)`).
		WithArgs("h1").
		WillReturnRows(historyRows().AddRow(
			"h1", "s1", "Richmond", "search:Richmond", "suburb", "manual",
			"p1", "Richmond VIC, Australia", []byte(`{"placeId":"p1","description":"Richmond VIC, Australia","resultType":"suburb","confidence":0.9}`),
			3, created,
		))

	entry, err := adapter.GetByID(context.Background(), "h1")
	require.NoError(t, err)
	assert.Equal(t, "Richmond", entry.Query)
	assert.Equal(t, entities.IntentSuburb, entry.Intent)
	assert.Equal(t, "p1", entry.Suggestion.PlaceID)
	assert.Equal(t, entities.ResultTypeSuburb, entry.Suggestion.ResultType)
	assert.Equal(t, created, entry.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchHistoryAdapter_GetByIDNotFound(t *testing.T) {
	adapter, mock := setupMockDB(t)

	mock.ExpectQuery(`SELECT .* FROM "address_search_history"`).
		WillReturnRows(historyRows())

	_, err := adapter.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, repositories.ErrHistoryNotFound)
}

func TestSearchHistoryAdapter_ListRecent(t *testing.T) {
	adapter, mock := setupMockDB(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT .* FROM "address_search_history" WHERE \("session_id" = \$1\) ORDER BY "created_at" DESC LIMIT`).
		WillReturnRows(historyRows().
			AddRow("h2", "s1", "Carlton", "search:Carlton", "suburb", "voice", "p2", "Carlton VIC, Australia", []byte(`{"placeId":"p2"}`), 2, now).
			AddRow("h1", "s1", "Richmond", "search:Richmond", "suburb", "manual", "p1", "Richmond VIC, Australia", []byte(`{"placeId":"p1"}`), 3, now.Add(-time.Minute)))

	entries, err := adapter.ListRecent(context.Background(), "s1", 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "h2", entries[0].ID)
	assert.Equal(t, "p1", entries[1].Suggestion.PlaceID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
