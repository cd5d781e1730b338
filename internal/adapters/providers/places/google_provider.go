package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/entities"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/providers"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

const (
	googleMapsBaseURL  = "https://maps.googleapis.com/maps/api"
	defaultHTTPTimeout = 8 * time.Second
	defaultMaxResults  = 5
)

// ErrProviderUnavailable is returned while the circuit breaker is open
var ErrProviderUnavailable = errors.New("places provider unavailable")

// GoogleOptions configures the Google Places provider
type GoogleOptions struct {
	APIKey  string
	Country string
	// BaseURL overrides the Maps API root (used for tests)
	BaseURL    string
	HTTPClient *http.Client
}

// GooglePlacesProvider implements PlacesProvider using the Google Places
// Autocomplete, Place Details and Geocoding APIs.
type GooglePlacesProvider struct {
	apiKey     string
	country    string
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     zerolog.Logger
}

// NewGooglePlacesProvider creates a new Google places provider
func NewGooglePlacesProvider(opts GoogleOptions, logger zerolog.Logger) *GooglePlacesProvider {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = googleMapsBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}

	logger = logger.With().Str("component", "google_places").Logger()
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "google-places",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})

	return &GooglePlacesProvider{
		apiKey:     opts.APIKey,
		country:    strings.ToLower(opts.Country),
		baseURL:    baseURL,
		httpClient: httpClient,
		breaker:    breaker,
		logger:     logger,
	}
}

// Autocomplete returns candidate places. Autocomplete lookups use the Places
// Autocomplete API; strict lookups validate through the Geocoding API and only
// return exact, non-partial matches.
func (g *GooglePlacesProvider) Autocomplete(ctx context.Context, query providers.PlaceQuery) ([]entities.Suggestion, error) {
	trimmed := strings.TrimSpace(query.Query)
	if trimmed == "" {
		return nil, fmt.Errorf("query is required")
	}
	limit := query.MaxResults
	if limit <= 0 {
		limit = defaultMaxResults
	}

	var (
		suggestions []entities.Suggestion
		err         error
	)
	if query.IsAutocomplete {
		suggestions, err = g.autocomplete(ctx, trimmed, query)
	} else {
		suggestions, err = g.validate(ctx, trimmed)
	}
	if err != nil {
		return nil, err
	}

	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions, nil
}

// PlaceDetails returns enrichment data for a place
func (g *GooglePlacesProvider) PlaceDetails(ctx context.Context, placeID string) (*entities.PlaceDetail, error) {
	trimmed := strings.TrimSpace(placeID)
	if trimmed == "" {
		return nil, fmt.Errorf("place id is required")
	}

	params := url.Values{}
	params.Set("place_id", trimmed)
	params.Set("fields", "place_id,formatted_address,address_components,geometry,types")

	var resp googleDetailsResponse
	if err := g.get(ctx, "/place/details/json", params, &resp); err != nil {
		return nil, err
	}
	if err := statusError("place details", resp.Status, resp.ErrorMessage); err != nil {
		return nil, err
	}

	result := resp.Result
	return &entities.PlaceDetail{
		PlaceID:          result.PlaceID,
		FormattedAddress: result.FormattedAddress,
		Suburb:           component(result.AddressComponents, "locality", "sublocality"),
		State:            shortComponent(result.AddressComponents, "administrative_area_level_1"),
		Postcode:         component(result.AddressComponents, "postal_code"),
		Country:          component(result.AddressComponents, "country"),
		Types:            result.Types,
		Coordinates: &entities.Coordinates{
			Latitude:  result.Geometry.Location.Lat,
			Longitude: result.Geometry.Location.Lng,
		},
	}, nil
}

func (g *GooglePlacesProvider) autocomplete(ctx context.Context, input string, query providers.PlaceQuery) ([]entities.Suggestion, error) {
	params := url.Values{}
	params.Set("input", input)
	if g.country != "" {
		params.Set("components", "country:"+g.country)
	}
	if types := autocompleteTypes(query.Intent); types != "" {
		params.Set("types", types)
	}
	if query.SessionToken != "" {
		params.Set("sessiontoken", query.SessionToken)
	}

	var resp googleAutocompleteResponse
	if err := g.get(ctx, "/place/autocomplete/json", params, &resp); err != nil {
		return nil, err
	}
	if resp.Status == "ZERO_RESULTS" {
		return []entities.Suggestion{}, nil
	}
	if err := statusError("autocomplete", resp.Status, resp.ErrorMessage); err != nil {
		return nil, err
	}

	suggestions := make([]entities.Suggestion, 0, len(resp.Predictions))
	for i, p := range resp.Predictions {
		resultType := classifyTypes(p.Types)
		s := entities.Suggestion{
			PlaceID:     p.PlaceID,
			Description: p.Description,
			ResultType:  resultType,
			Confidence:  rankConfidence(i),
			Types:       p.Types,
			StructuredFormatting: &entities.StructuredFormatting{
				MainText:      p.StructuredFormatting.MainText,
				SecondaryText: p.StructuredFormatting.SecondaryText,
			},
		}
		if resultType == entities.ResultTypeSuburb {
			s.Suburb = p.StructuredFormatting.MainText
		}
		suggestions = append(suggestions, s)
	}
	return suggestions, nil
}

func (g *GooglePlacesProvider) validate(ctx context.Context, address string) ([]entities.Suggestion, error) {
	params := url.Values{}
	params.Set("address", address)
	if g.country != "" {
		params.Set("components", "country:"+strings.ToUpper(g.country))
	}

	var resp googleGeocodeResponse
	if err := g.get(ctx, "/geocode/json", params, &resp); err != nil {
		return nil, err
	}
	if resp.Status == "ZERO_RESULTS" {
		return []entities.Suggestion{}, nil
	}
	if err := statusError("geocode", resp.Status, resp.ErrorMessage); err != nil {
		return nil, err
	}

	suggestions := make([]entities.Suggestion, 0, len(resp.Results))
	for _, result := range resp.Results {
		if result.PartialMatch || classifyTypes(result.Types) != entities.ResultTypeAddress {
			continue
		}
		suggestions = append(suggestions, entities.Suggestion{
			PlaceID:     result.PlaceID,
			Description: result.FormattedAddress,
			ResultType:  entities.ResultTypeAddress,
			Confidence:  1,
			Suburb:      component(result.AddressComponents, "locality", "sublocality"),
			Postcode:    component(result.AddressComponents, "postal_code"),
			Types:       result.Types,
			Coordinates: &entities.Coordinates{
				Latitude:  result.Geometry.Location.Lat,
				Longitude: result.Geometry.Location.Lng,
			},
		})
	}
	return suggestions, nil
}

// get performs a GET through the circuit breaker and decodes the JSON body
func (g *GooglePlacesProvider) get(ctx context.Context, path string, params url.Values, out any) error {
	if g.apiKey == "" {
		return fmt.Errorf("google places api key is required")
	}
	params.Set("key", g.apiKey)
	reqURL := fmt.Sprintf("%s%s?%s", g.baseURL, path, params.Encode())

	_, err := g.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}

		resp, err := g.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("places request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("places request returned status %d", resp.StatusCode)
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("failed to decode places response: %w", err)
		}
		return nil, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	return err
}

func statusError(operation, status, message string) error {
	if status == "OK" {
		return nil
	}
	if message != "" {
		return fmt.Errorf("%s failed: %s - %s", operation, status, message)
	}
	return fmt.Errorf("%s failed: %s", operation, status)
}

func autocompleteTypes(intent entities.Intent) string {
	switch intent {
	case entities.IntentSuburb:
		return "(regions)"
	case entities.IntentStreet, entities.IntentAddress:
		return "address"
	default:
		return ""
	}
}

// classifyTypes maps Google place types onto a result type
func classifyTypes(types []string) entities.ResultType {
	switch {
	case containsType(types, "street_address"), containsType(types, "premise"), containsType(types, "subpremise"):
		return entities.ResultTypeAddress
	case containsType(types, "route"):
		return entities.ResultTypeStreet
	case containsType(types, "locality"), containsType(types, "sublocality"), containsType(types, "postal_code"):
		return entities.ResultTypeSuburb
	default:
		return entities.ResultTypeGeneral
	}
}

// rankConfidence decays with the prediction's position
func rankConfidence(rank int) float64 {
	confidence := 0.95 - 0.1*float64(rank)
	if confidence < 0.5 {
		return 0.5
	}
	return confidence
}

func component(components []googleAddressComponent, primary string, fallback ...string) string {
	for _, t := range append([]string{primary}, fallback...) {
		for _, comp := range components {
			if containsType(comp.Types, t) {
				return comp.LongName
			}
		}
	}
	return ""
}

func shortComponent(components []googleAddressComponent, target string) string {
	for _, comp := range components {
		if containsType(comp.Types, target) {
			return comp.ShortName
		}
	}
	return ""
}

func containsType(types []string, target string) bool {
	for _, t := range types {
		if t == target {
			return true
		}
	}
	return false
}

type googleAutocompleteResponse struct {
	Status       string             `json:"status"`
	ErrorMessage string             `json:"error_message,omitempty"`
	Predictions  []googlePrediction `json:"predictions"`
}

type googlePrediction struct {
	PlaceID              string                     `json:"place_id"`
	Description          string                     `json:"description"`
	Types                []string                   `json:"types"`
	StructuredFormatting googleStructuredFormatting `json:"structured_formatting"`
}

type googleStructuredFormatting struct {
	MainText      string `json:"main_text"`
	SecondaryText string `json:"secondary_text"`
}

type googleGeocodeResponse struct {
	Status       string                `json:"status"`
	ErrorMessage string                `json:"error_message,omitempty"`
	Results      []googleGeocodeResult `json:"results"`
}

type googleGeocodeResult struct {
	PlaceID           string                   `json:"place_id"`
	FormattedAddress  string                   `json:"formatted_address"`
	AddressComponents []googleAddressComponent `json:"address_components"`
	Geometry          googleGeometry           `json:"geometry"`
	Types             []string                 `json:"types"`
	PartialMatch      bool                     `json:"partial_match"`
}

type googleDetailsResponse struct {
	Status       string              `json:"status"`
	ErrorMessage string              `json:"error_message,omitempty"`
	Result       googleGeocodeResult `json:"result"`
}

type googleAddressComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

type googleGeometry struct {
	Location googleLocation `json:"location"`
}

type googleLocation struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}
