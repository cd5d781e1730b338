package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/entities"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/infrastructure/clients/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"
)

// SelectionIndexAdapter indexes confirmed selections in Typesense so history
// can be recalled with typo-tolerant queries.
type SelectionIndexAdapter struct {
	client *typesense.Client
}

// NewSelectionIndexAdapter creates a new selection index adapter
func NewSelectionIndexAdapter(client *typesense.Client) *SelectionIndexAdapter {
	return &SelectionIndexAdapter{client: client}
}

// Index upserts a history entry
func (a *SelectionIndexAdapter) Index(ctx context.Context, entry *entities.HistoryEntry) error {
	if entry == nil {
		return fmt.Errorf("history entry is nil")
	}

	_, err := a.client.Client().Collection(typesense.SelectionsCollection).Documents().Upsert(ctx, buildSelectionDocument(entry))
	if err != nil {
		return fmt.Errorf("failed to index selection: %w", err)
	}
	return nil
}

// Search returns the ids of matching history entries, best match first
func (a *SelectionIndexAdapter) Search(ctx context.Context, sessionID, query string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 10
	}
	q := strings.TrimSpace(query)
	if q == "" {
		q = "*"
	}

	params := &api.SearchCollectionParams{
		Q:        pointer.String(q),
		QueryBy:  pointer.String("description,query,suburb"),
		FilterBy: pointer.String(fmt.Sprintf("session_id:=%s", escapeFilterValue(sessionID))),
		SortBy:   pointer.String("_text_match:desc,created_at:desc"),
		PerPage:  pointer.Int(limit),
	}

	result, err := a.client.Client().Collection(typesense.SelectionsCollection).Documents().Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to search selections: %w", err)
	}

	return hitIDs(result), nil
}

func buildSelectionDocument(entry *entities.HistoryEntry) map[string]interface{} {
	doc := map[string]interface{}{
		"id":          entry.ID,
		"session_id":  entry.SessionID,
		"query":       entry.Query,
		"description": entry.Description,
		"place_id":    entry.PlaceID,
		"intent":      string(entry.Intent),
		"created_at":  entry.CreatedAt.Unix(),
	}
	if entry.Suggestion.Suburb != "" {
		doc["suburb"] = entry.Suggestion.Suburb
	}
	return doc
}

func hitIDs(result *api.SearchResult) []string {
	ids := []string{}
	if result == nil || result.Hits == nil {
		return ids
	}
	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		if id, ok := (*hit.Document)["id"].(string); ok && id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// escapeFilterValue wraps a value in backticks so commas and spaces in
// session ids do not break the filter expression
func escapeFilterValue(value string) string {
	return "`" + strings.ReplaceAll(value, "`", "") + "`"
}
