package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ReOpAu/react-starter-kit-sub002/internal/adapters/cache"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/entities"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/repositories"
	"github.com/ReOpAu/react-starter-kit-sub002/pkg/cachekey"
	apperrors "github.com/ReOpAu/react-starter-kit-sub002/pkg/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultHistoryLimit = 10

// SearchHistoryService keeps confirmed selections and replays them
type SearchHistoryService struct {
	orchestrator *AddressSearchService
	cache        *cache.ResultCache
	repo         repositories.SearchHistoryRepository
	index        repositories.SelectionIndex
	sessionID    string
	logger       zerolog.Logger
	now          func() time.Time
}

// NewSearchHistoryService creates a history service. index may be nil.
func NewSearchHistoryService(orchestrator *AddressSearchService, resultCache *cache.ResultCache, repo repositories.SearchHistoryRepository, index repositories.SelectionIndex, sessionID string, logger zerolog.Logger) *SearchHistoryService {
	return &SearchHistoryService{
		orchestrator: orchestrator,
		cache:        resultCache,
		repo:         repo,
		index:        index,
		sessionID:    sessionID,
		logger:       logger.With().Str("component", "search_history").Logger(),
		now:          time.Now,
	}
}

// ConfirmSelection saves the current selection to history and acknowledges it
func (s *SearchHistoryService) ConfirmSelection(ctx context.Context) (*entities.HistoryEntry, error) {
	selection, err := s.orchestrator.CurrentSelection(ctx)
	if err != nil {
		return nil, err
	}
	if selection == nil {
		return nil, apperrors.New(apperrors.CodeSelectionNone, apperrors.ErrorContext{})
	}

	resultCount := 0
	if search, err := s.orchestrator.CurrentSearch(ctx); err == nil && search != nil {
		resultCount = search.ResultCount
	}

	entry := &entities.HistoryEntry{
		ID:          uuid.New().String(),
		SessionID:   s.sessionID,
		Query:       selection.OriginalQuery,
		CacheKey:    selection.OriginalCacheKey,
		Intent:      selection.Intent,
		Source:      selection.Source,
		PlaceID:     selection.Suggestion.PlaceID,
		Description: selection.Suggestion.Description,
		Suggestion:  selection.Suggestion,
		ResultCount: resultCount,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to save history entry: %w", err)
	}
	if s.index != nil {
		if err := s.index.Index(ctx, entry); err != nil {
			s.logger.Warn().Err(err).Str("history_id", entry.ID).Msg("failed to index history entry")
		}
	}

	if err := s.orchestrator.AcknowledgeSelection(ctx, true); err != nil {
		return entry, err
	}
	return entry, nil
}

// Recent returns the newest history entries of the session
func (s *SearchHistoryService) Recent(ctx context.Context, limit int) ([]*entities.HistoryEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return s.repo.ListRecent(ctx, s.sessionID, limit)
}

// Find searches history. Without an index it filters the recent entries.
func (s *SearchHistoryService) Find(ctx context.Context, query string, limit int) ([]*entities.HistoryEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return s.Recent(ctx, limit)
	}

	if s.index == nil {
		return s.filterRecent(ctx, query, limit)
	}

	ids, err := s.index.Search(ctx, s.sessionID, query, limit)
	if err != nil {
		s.logger.Warn().Err(err).Msg("history index search failed, filtering recent entries")
		return s.filterRecent(ctx, query, limit)
	}

	entries := make([]*entities.HistoryEntry, 0, len(ids))
	for _, id := range ids {
		entry, err := s.repo.GetByID(ctx, id)
		if errors.Is(err, repositories.ErrHistoryNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *SearchHistoryService) filterRecent(ctx context.Context, query string, limit int) ([]*entities.HistoryEntry, error) {
	recent, err := s.repo.ListRecent(ctx, s.sessionID, limit*5)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(query)
	out := make([]*entities.HistoryEntry, 0, limit)
	for _, entry := range recent {
		if strings.Contains(strings.ToLower(entry.Description), needle) || strings.Contains(strings.ToLower(entry.Query), needle) {
			out = append(out, entry)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// Recall makes a history entry current again: its query becomes the current
// search and its suggestion the selection. Options still cached for the
// query are kept and the suggestion is added to them when missing.
func (s *SearchHistoryService) Recall(ctx context.Context, id string, source entities.SearchSource) (*entities.SelectionState, error) {
	entry, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrHistoryNotFound) {
		return nil, apperrors.Wrap(apperrors.CodeSelectionNotFound, apperrors.ErrorContext{Missing: "history_entry"}, err)
	}
	if err != nil {
		return nil, err
	}

	key, err := cachekey.NormalizeSearchKey(entry.Query)
	if err != nil {
		return nil, err
	}
	options := []entities.Suggestion{entry.Suggestion}
	lookup, err := s.cache.GetSuggestions(ctx, key)
	if err != nil {
		return nil, err
	}
	if lookup.Hit && len(lookup.Data) > 0 {
		options = lookup.Data
		if !entities.ContainsPlace(options, entry.Suggestion.PlaceID) {
			options = append(options, entry.Suggestion)
		}
	}

	if _, err := s.orchestrator.RecordSearchResults(ctx, entry.Query, options, SearchContext{Source: source, Intent: entry.Intent}); err != nil {
		return nil, err
	}
	return s.orchestrator.RecordSelection(ctx, entry.Suggestion, SelectionContext{Source: source})
}
