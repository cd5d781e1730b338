package services

import (
	"context"
	"errors"
	"testing"

	placesprovider "github.com/ReOpAu/react-starter-kit-sub002/internal/adapters/providers/places"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/entities"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/providers"
	apperrors "github.com/ReOpAu/react-starter-kit-sub002/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPlacesProvider struct {
	mock.Mock
}

func (m *MockPlacesProvider) Autocomplete(ctx context.Context, query providers.PlaceQuery) ([]entities.Suggestion, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.Suggestion), args.Error(1)
}

func (m *MockPlacesProvider) PlaceDetails(ctx context.Context, placeID string) (*entities.PlaceDetail, error) {
	args := m.Called(ctx, placeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PlaceDetail), args.Error(1)
}

func newLookupEnv(t *testing.T, provider providers.PlacesProvider) (*AddressLookupService, *testEnv) {
	t.Helper()
	env := newTestEnv(t)
	return NewAddressLookupService(env.svc, provider, env.cache, 5, zerolog.Nop()), env
}

func TestLookupSearch_SuburbQuery(t *testing.T) {
	ctx := context.Background()
	lookup, env := newLookupEnv(t, placesprovider.NewMockPlacesProvider())

	result, err := lookup.Search(ctx, "Richmond", entities.SearchSourceManual)
	require.NoError(t, err)

	assert.Equal(t, LookupSuggestionsAvailable, result.Status)
	assert.Equal(t, entities.IntentSuburb, result.Intent)
	assert.Equal(t, []string{"mock-richmond-vic"}, placeIDs(result.Suggestions))

	search, err := env.svc.CurrentSearch(ctx)
	require.NoError(t, err)
	require.NotNil(t, search)
	assert.Equal(t, "Richmond", search.Query)
	assert.Equal(t, entities.IntentSuburb, search.Intent)
	assert.True(t, env.cached(t, "Richmond").Hit)
}

func TestLookupSearch_ValidatedAddress(t *testing.T) {
	ctx := context.Background()
	lookup, _ := newLookupEnv(t, placesprovider.NewMockPlacesProvider())

	result, err := lookup.Search(ctx, "123 Swan Street", entities.SearchSourceVoice)
	require.NoError(t, err)

	assert.Equal(t, LookupValidated, result.Status)
	require.NotNil(t, result.Validated)
	assert.Equal(t, "mock-123-swan-st", result.Validated.PlaceID)
	assert.Equal(t, "mock-123-swan-st", result.Suggestions[0].PlaceID)
}

func TestLookupSearch_UnknownAddress(t *testing.T) {
	lookup, _ := newLookupEnv(t, placesprovider.NewMockPlacesProvider())

	_, err := lookup.Search(context.Background(), "99 Nowhere Road", entities.SearchSourceManual)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationAddressFailed))
}

func TestLookupSearch_NoResultsIsNotRecorded(t *testing.T) {
	ctx := context.Background()
	lookup, env := newLookupEnv(t, placesprovider.NewMockPlacesProvider())

	_, err := lookup.Search(ctx, "Zzzzville", entities.SearchSourceManual)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeSearchNoResults))

	search, err := env.svc.CurrentSearch(ctx)
	require.NoError(t, err)
	assert.Nil(t, search)
}

func TestLookupSearch_ProviderFailure(t *testing.T) {
	provider := new(MockPlacesProvider)
	provider.On("Autocomplete", mock.Anything, mock.Anything).Return(nil, errors.New("quota exceeded"))
	lookup, _ := newLookupEnv(t, provider)

	_, err := lookup.Search(context.Background(), "Fitzroy", entities.SearchSourceManual)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeSearchProviderFailed))

	_, err = lookup.Search(context.Background(), "12 Lygon Street", entities.SearchSourceManual)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeSearchProviderFailed))
}

func TestLookupSearch_StrictFailureFallsBackToSuggestions(t *testing.T) {
	provider := new(MockPlacesProvider)
	provider.On("Autocomplete", mock.Anything, mock.MatchedBy(func(q providers.PlaceQuery) bool {
		return !q.IsAutocomplete
	})).Return(nil, errors.New("geocoder down"))
	provider.On("Autocomplete", mock.Anything, mock.MatchedBy(func(q providers.PlaceQuery) bool {
		return q.IsAutocomplete
	})).Return(places("a", "b"), nil)
	lookup, _ := newLookupEnv(t, provider)

	result, err := lookup.Search(context.Background(), "12 Lygon Street", entities.SearchSourceManual)
	require.NoError(t, err)
	assert.Equal(t, LookupSuggestionsAvailable, result.Status)
	assert.Nil(t, result.Validated)
	assert.Len(t, result.Suggestions, 2)
}

func TestLookupSelect_EnrichesThroughDetailCache(t *testing.T) {
	ctx := context.Background()
	mockProvider := placesprovider.NewMockPlacesProvider()
	lookup, env := newLookupEnv(t, mockProvider)

	_, err := lookup.Search(ctx, "Carlton", entities.SearchSourceManual)
	require.NoError(t, err)

	selection, err := lookup.Select(ctx, "mock-carlton-vic", entities.SearchSourceManual)
	require.NoError(t, err)
	assert.Equal(t, "3053", selection.Suggestion.Postcode)
	require.NotNil(t, selection.Suggestion.Coordinates)

	detail, err := env.cache.GetDetail(ctx, "mock-carlton-vic")
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.Equal(t, "Carlton", detail.Suburb)
}

func TestLookupSelect_UsesCachedDetail(t *testing.T) {
	ctx := context.Background()
	provider := new(MockPlacesProvider)
	provider.On("Autocomplete", mock.Anything, mock.Anything).Return(places("a", "b"), nil)
	lookup, env := newLookupEnv(t, provider)

	require.NoError(t, env.cache.SetDetail(ctx, "b", &entities.PlaceDetail{
		PlaceID:          "b",
		FormattedAddress: "B Street, Fitzroy VIC 3065, Australia",
		Postcode:         "3065",
	}))

	_, err := lookup.Search(ctx, "Fitzroy", entities.SearchSourceManual)
	require.NoError(t, err)

	selection, err := lookup.SelectByOrdinal(ctx, "second", entities.SearchSourceAgent)
	require.NoError(t, err)
	assert.Equal(t, "B Street, Fitzroy VIC 3065, Australia", selection.Suggestion.Description)
	assert.Equal(t, entities.SearchSourceAgent, selection.Source)
	provider.AssertNotCalled(t, "PlaceDetails", mock.Anything, mock.Anything)
}

func TestLookupSelect_DetailFailureKeepsSuggestion(t *testing.T) {
	ctx := context.Background()
	provider := new(MockPlacesProvider)
	provider.On("Autocomplete", mock.Anything, mock.Anything).Return(places("a"), nil)
	provider.On("PlaceDetails", mock.Anything, "a").Return(nil, errors.New("timeout"))
	lookup, _ := newLookupEnv(t, provider)

	_, err := lookup.Search(ctx, "Fitzroy", entities.SearchSourceManual)
	require.NoError(t, err)

	selection, err := lookup.Select(ctx, "a", entities.SearchSourceManual)
	require.NoError(t, err)
	assert.Equal(t, "a VIC, Australia", selection.Suggestion.Description)
	provider.AssertExpectations(t)
}
