package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/entities"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/repositories"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/infrastructure/clients/postgres"
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
)

const historyTable = "address_search_history"

const historySchema = `
CREATE TABLE IF NOT EXISTS address_search_history (
	id           UUID PRIMARY KEY,
	session_id   TEXT NOT NULL,
	query        TEXT NOT NULL,
	cache_key    TEXT NOT NULL,
	intent       TEXT NOT NULL,
	source       TEXT NOT NULL,
	place_id     TEXT NOT NULL,
	description  TEXT NOT NULL,
	suggestion   JSONB NOT NULL,
	result_count INTEGER NOT NULL DEFAULT 0,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_address_search_history_session
	ON address_search_history (session_id, created_at DESC);
`

var historyColumns = []interface{}{
	"id", "session_id", "query", "cache_key", "intent", "source",
	"place_id", "description", "suggestion", "result_count", "created_at",
}

type historyRow struct {
	ID          string    `db:"id"`
	SessionID   string    `db:"session_id"`
	Query       string    `db:"query"`
	CacheKey    string    `db:"cache_key"`
	Intent      string    `db:"intent"`
	Source      string    `db:"source"`
	PlaceID     string    `db:"place_id"`
	Description string    `db:"description"`
	Suggestion  []byte    `db:"suggestion"`
	ResultCount int       `db:"result_count"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r historyRow) toEntity() (*entities.HistoryEntry, error) {
	entry := &entities.HistoryEntry{
		ID:          r.ID,
		SessionID:   r.SessionID,
		Query:       r.Query,
		CacheKey:    r.CacheKey,
		Intent:      entities.Intent(r.Intent),
		Source:      entities.SearchSource(r.Source),
		PlaceID:     r.PlaceID,
		Description: r.Description,
		ResultCount: r.ResultCount,
		CreatedAt:   r.CreatedAt,
	}
	if len(r.Suggestion) > 0 {
		if err := json.Unmarshal(r.Suggestion, &entry.Suggestion); err != nil {
			return nil, fmt.Errorf("failed to decode suggestion for history entry %s: %w", r.ID, err)
		}
	}
	return entry, nil
}

// SearchHistoryAdapter persists confirmed selections in Postgres
type SearchHistoryAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewSearchHistoryAdapter creates a new search history adapter
func NewSearchHistoryAdapter(client *postgres.Client) *SearchHistoryAdapter {
	return &SearchHistoryAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// EnsureSchema creates the history table when missing
func (a *SearchHistoryAdapter) EnsureSchema(ctx context.Context) error {
	if _, err := a.client.DB().ExecContext(ctx, historySchema); err != nil {
		return fmt.Errorf("failed to create search history schema: %w", err)
	}
	return nil
}

// Create inserts a history entry
func (a *SearchHistoryAdapter) Create(ctx context.Context, entry *entities.HistoryEntry) error {
	if entry == nil {
		return errNilEntry
	}

	suggestion, err := json.Marshal(entry.Suggestion)
	if err != nil {
		return fmt.Errorf("failed to encode suggestion: %w", err)
	}

	record := goqu.Record{
		"id":           entry.ID,
		"session_id":   entry.SessionID,
		"query":        entry.Query,
		"cache_key":    entry.CacheKey,
		"intent":       string(entry.Intent),
		"source":       string(entry.Source),
		"place_id":     entry.PlaceID,
		"description":  entry.Description,
		"suggestion":   string(suggestion),
		"result_count": entry.ResultCount,
		"created_at":   entry.CreatedAt,
	}

	query, args, err := a.db.Insert(historyTable).Rows(record).Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build history insert query: %w", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to create history entry: %w", err)
	}
	return nil
}

// GetByID returns a single entry or repositories.ErrHistoryNotFound
func (a *SearchHistoryAdapter) GetByID(ctx context.Context, id string) (*entities.HistoryEntry, error) {
	query, args, err := a.db.From(historyTable).
		Select(historyColumns...).
		Where(goqu.Ex{"id": id}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build history query: %w", err)
	}

	var row historyRow
	if err := a.client.DB().GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repositories.ErrHistoryNotFound
		}
		return nil, fmt.Errorf("failed to get history entry: %w", err)
	}
	return row.toEntity()
}

// ListRecent returns the newest entries for a session
func (a *SearchHistoryAdapter) ListRecent(ctx context.Context, sessionID string, limit int) ([]*entities.HistoryEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	query, args, err := a.db.From(historyTable).
		Select(historyColumns...).
		Where(goqu.Ex{"session_id": sessionID}).
		Order(goqu.I("created_at").Desc()).
		Limit(uint(limit)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build history list query: %w", err)
	}

	var rows []historyRow
	if err := a.client.DB().SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list history entries: %w", err)
	}

	entries := make([]*entities.HistoryEntry, 0, len(rows))
	for _, row := range rows {
		entry, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
