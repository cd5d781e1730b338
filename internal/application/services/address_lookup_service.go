package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/ReOpAu/react-starter-kit-sub002/internal/adapters/cache"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/entities"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/providers"
	apperrors "github.com/ReOpAu/react-starter-kit-sub002/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// LookupStatus summarises how a lookup resolved
type LookupStatus string

const (
	LookupValidated            LookupStatus = "validated"
	LookupSuggestionsAvailable LookupStatus = "suggestions_available"
	LookupNoResults            LookupStatus = "no_results"
)

const defaultLookupResults = 5

// LookupResult is returned by AddressLookupService.Search
type LookupResult struct {
	Status      LookupStatus          `json:"status"`
	Query       string                `json:"query"`
	Intent      entities.Intent       `json:"intent"`
	Suggestions []entities.Suggestion `json:"suggestions"`
	Validated   *entities.Suggestion  `json:"validated,omitempty"`
}

// AddressLookupService queries the places provider and hands the results to
// the orchestrator. It owns all network work so the orchestrator never waits
// on the provider.
type AddressLookupService struct {
	orchestrator *AddressSearchService
	places       providers.PlacesProvider
	cache        *cache.ResultCache
	maxResults   int
	group        singleflight.Group
	logger       zerolog.Logger
}

// NewAddressLookupService creates a lookup service
func NewAddressLookupService(orchestrator *AddressSearchService, places providers.PlacesProvider, resultCache *cache.ResultCache, maxResults int, logger zerolog.Logger) *AddressLookupService {
	if maxResults <= 0 {
		maxResults = defaultLookupResults
	}
	return &AddressLookupService{
		orchestrator: orchestrator,
		places:       places,
		cache:        resultCache,
		maxResults:   maxResults,
		logger:       logger.With().Str("component", "address_lookup").Logger(),
	}
}

// Search looks query up and records the results as the current search.
// Queries that look like a full address are validated with a strict lookup
// run alongside the autocomplete one.
func (s *AddressLookupService) Search(ctx context.Context, query string, source entities.SearchSource) (*LookupResult, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, apperrors.New(apperrors.CodeSearchInvalidQuery, apperrors.ErrorContext{Query: query})
	}
	intent := ClassifyIntent(trimmed)

	var (
		result *LookupResult
		err    error
	)
	if intent == entities.IntentAddress {
		result, err = s.searchAddress(ctx, trimmed)
	} else {
		result, err = s.searchGeneral(ctx, trimmed, intent)
	}
	if err != nil {
		return nil, err
	}

	if _, err := s.orchestrator.RecordSearchResults(ctx, trimmed, result.Suggestions, SearchContext{Source: source, Intent: intent}); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *AddressLookupService) searchGeneral(ctx context.Context, query string, intent entities.Intent) (*LookupResult, error) {
	suggestions, err := s.autocomplete(ctx, providers.PlaceQuery{
		Query:          query,
		Intent:         intent,
		MaxResults:     s.maxResults,
		IsAutocomplete: true,
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeSearchProviderFailed, apperrors.ErrorContext{Query: query}, err)
	}
	if len(suggestions) == 0 {
		return nil, apperrors.New(apperrors.CodeSearchNoResults, apperrors.ErrorContext{Query: query})
	}
	return &LookupResult{
		Status:      LookupSuggestionsAvailable,
		Query:       query,
		Intent:      intent,
		Suggestions: suggestions,
	}, nil
}

func (s *AddressLookupService) searchAddress(ctx context.Context, query string) (*LookupResult, error) {
	var strict, loose []entities.Suggestion
	var strictErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// a failed validation still leaves the autocomplete results usable
		strict, strictErr = s.autocomplete(gctx, providers.PlaceQuery{
			Query:      query,
			Intent:     entities.IntentAddress,
			MaxResults: 1,
		})
		return nil
	})
	g.Go(func() error {
		var err error
		loose, err = s.autocomplete(gctx, providers.PlaceQuery{
			Query:          query,
			Intent:         entities.IntentAddress,
			MaxResults:     s.maxResults,
			IsAutocomplete: true,
		})
		return err
	})
	looseErr := g.Wait()

	if strictErr != nil {
		s.logger.Warn().Err(strictErr).Msg("strict address lookup failed")
	}
	if looseErr != nil && len(strict) == 0 {
		return nil, apperrors.Wrap(apperrors.CodeSearchProviderFailed, apperrors.ErrorContext{Query: query}, looseErr)
	}

	result := &LookupResult{Query: query, Intent: entities.IntentAddress}
	switch {
	case len(strict) > 0:
		validated := strict[0]
		result.Status = LookupValidated
		result.Validated = &validated
		result.Suggestions = loose
		if !entities.ContainsPlace(loose, validated.PlaceID) {
			result.Suggestions = append([]entities.Suggestion{validated}, loose...)
		}
	case len(loose) > 0:
		result.Status = LookupSuggestionsAvailable
		result.Suggestions = loose
	default:
		return nil, apperrors.New(apperrors.CodeValidationAddressFailed, apperrors.ErrorContext{Query: query})
	}
	return result, nil
}

// autocomplete collapses identical concurrent lookups into one provider call
func (s *AddressLookupService) autocomplete(ctx context.Context, q providers.PlaceQuery) ([]entities.Suggestion, error) {
	key := fmt.Sprintf("%s|%s|%d|%t", strings.ToLower(q.Query), q.Intent, q.MaxResults, q.IsAutocomplete)
	v, err, shared := s.group.Do(key, func() (any, error) {
		return s.places.Autocomplete(ctx, q)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.Debug().Str("lookup", key).Msg("shared in-flight lookup")
	}
	return cloneSuggestions(v.([]entities.Suggestion)), nil
}

// Select enriches the current search's option with placeID and records it
func (s *AddressLookupService) Select(ctx context.Context, placeID string, source entities.SearchSource) (*entities.SelectionState, error) {
	suggestion, err := s.orchestrator.SuggestionByPlaceID(ctx, placeID)
	if err != nil {
		return nil, err
	}
	return s.SelectSuggestion(ctx, suggestion, source)
}

// SelectByOrdinal enriches the n-th option of the current search and records it
func (s *AddressLookupService) SelectByOrdinal(ctx context.Context, ordinal string, source entities.SearchSource) (*entities.SelectionState, error) {
	suggestion, err := s.orchestrator.SuggestionByOrdinal(ctx, ordinal)
	if err != nil {
		return nil, err
	}
	return s.SelectSuggestion(ctx, suggestion, source)
}

// SelectSuggestion enriches suggestion and records it. It may come from
// outside the current option list.
func (s *AddressLookupService) SelectSuggestion(ctx context.Context, suggestion entities.Suggestion, source entities.SearchSource) (*entities.SelectionState, error) {
	enriched := s.enrich(ctx, suggestion)
	return s.orchestrator.RecordSelection(ctx, enriched, SelectionContext{Source: source})
}

// enrich applies place details, reading the detail cache before the provider.
// Enrichment failures leave the suggestion as it was.
func (s *AddressLookupService) enrich(ctx context.Context, suggestion entities.Suggestion) entities.Suggestion {
	if strings.TrimSpace(suggestion.PlaceID) == "" {
		return suggestion
	}

	detail, err := s.cache.GetDetail(ctx, suggestion.PlaceID)
	if err != nil {
		s.logger.Warn().Err(err).Str("place_id", suggestion.PlaceID).Msg("failed to read cached place details")
	}
	if detail != nil {
		return detail.Enrich(suggestion)
	}

	detail, err = s.places.PlaceDetails(ctx, suggestion.PlaceID)
	if err != nil {
		s.logger.Warn().Err(err).Str("place_id", suggestion.PlaceID).Msg("failed to fetch place details")
		return suggestion
	}
	if err := s.cache.SetDetail(ctx, suggestion.PlaceID, detail); err != nil {
		s.logger.Warn().Err(err).Str("place_id", suggestion.PlaceID).Msg("failed to cache place details")
	}
	return detail.Enrich(suggestion)
}
