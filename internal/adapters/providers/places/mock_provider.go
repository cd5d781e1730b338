package places

import (
	"context"
	"fmt"
	"strings"

	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/entities"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/providers"
)

// MockPlacesProvider serves a fixed set of Melbourne places. It backs local
// development and tests when no Google API key is configured.
type MockPlacesProvider struct {
	places []entities.PlaceDetail
}

// NewMockPlacesProvider creates a mock places provider. With no fixtures the
// built-in set is used.
func NewMockPlacesProvider(fixtures ...entities.PlaceDetail) *MockPlacesProvider {
	if len(fixtures) == 0 {
		fixtures = defaultFixtures()
	}
	return &MockPlacesProvider{places: fixtures}
}

// Autocomplete matches the query case-insensitively against each formatted
// address. Strict lookups only return address results.
func (m *MockPlacesProvider) Autocomplete(ctx context.Context, query providers.PlaceQuery) ([]entities.Suggestion, error) {
	q := strings.ToLower(strings.TrimSpace(query.Query))
	if q == "" {
		return nil, fmt.Errorf("query is required")
	}
	limit := query.MaxResults
	if limit <= 0 {
		limit = defaultMaxResults
	}

	var out []entities.Suggestion
	for i, place := range m.places {
		if !strings.Contains(strings.ToLower(place.FormattedAddress), q) {
			continue
		}
		resultType := classifyTypes(place.Types)
		if !query.IsAutocomplete && resultType != entities.ResultTypeAddress {
			continue
		}
		if query.IsAutocomplete && !intentAllows(query.Intent, resultType) {
			continue
		}

		main, secondary, _ := strings.Cut(place.FormattedAddress, ", ")
		s := entities.Suggestion{
			PlaceID:     place.PlaceID,
			Description: place.FormattedAddress,
			ResultType:  resultType,
			Confidence:  rankConfidence(len(out)),
			Suburb:      place.Suburb,
			Types:       place.Types,
			StructuredFormatting: &entities.StructuredFormatting{
				MainText:      main,
				SecondaryText: secondary,
			},
		}
		if !query.IsAutocomplete {
			s.Confidence = 1
			s.Postcode = m.places[i].Postcode
		}
		out = append(out, s)
		if len(out) == limit {
			break
		}
	}
	if out == nil {
		out = []entities.Suggestion{}
	}
	return out, nil
}

// PlaceDetails returns the fixture for placeID
func (m *MockPlacesProvider) PlaceDetails(ctx context.Context, placeID string) (*entities.PlaceDetail, error) {
	for _, place := range m.places {
		if place.PlaceID == placeID {
			detail := place
			return &detail, nil
		}
	}
	return nil, fmt.Errorf("place %s not found", placeID)
}

func intentAllows(intent entities.Intent, resultType entities.ResultType) bool {
	switch intent {
	case entities.IntentSuburb:
		return resultType == entities.ResultTypeSuburb
	case entities.IntentStreet:
		return resultType == entities.ResultTypeStreet || resultType == entities.ResultTypeAddress
	default:
		return true
	}
}

func defaultFixtures() []entities.PlaceDetail {
	suburb := func(id, name, postcode string, lat, lng float64) entities.PlaceDetail {
		return entities.PlaceDetail{
			PlaceID:          id,
			FormattedAddress: name + " VIC " + postcode + ", Australia",
			Suburb:           name,
			State:            "VIC",
			Postcode:         postcode,
			Country:          "Australia",
			Types:            []string{"locality", "political"},
			Coordinates:      &entities.Coordinates{Latitude: lat, Longitude: lng},
		}
	}
	street := func(id, name, suburbName, postcode string, lat, lng float64) entities.PlaceDetail {
		return entities.PlaceDetail{
			PlaceID:          id,
			FormattedAddress: name + ", " + suburbName + " VIC " + postcode + ", Australia",
			Suburb:           suburbName,
			State:            "VIC",
			Postcode:         postcode,
			Country:          "Australia",
			Types:            []string{"route"},
			Coordinates:      &entities.Coordinates{Latitude: lat, Longitude: lng},
		}
	}
	address := func(id, line, suburbName, postcode string, lat, lng float64) entities.PlaceDetail {
		return entities.PlaceDetail{
			PlaceID:          id,
			FormattedAddress: line + ", " + suburbName + " VIC " + postcode + ", Australia",
			Suburb:           suburbName,
			State:            "VIC",
			Postcode:         postcode,
			Country:          "Australia",
			Types:            []string{"street_address"},
			Coordinates:      &entities.Coordinates{Latitude: lat, Longitude: lng},
		}
	}

	return []entities.PlaceDetail{
		suburb("mock-richmond-vic", "Richmond", "3121", -37.8230, 144.9980),
		suburb("mock-carlton-vic", "Carlton", "3053", -37.8001, 144.9671),
		suburb("mock-carlton-north-vic", "Carlton North", "3054", -37.7845, 144.9720),
		suburb("mock-fitzroy-vic", "Fitzroy", "3065", -37.7984, 144.9783),
		suburb("mock-st-kilda-vic", "St Kilda", "3182", -37.8676, 144.9809),
		street("mock-swan-st-richmond", "Swan Street", "Richmond", "3121", -37.8252, 144.9926),
		street("mock-church-st-richmond", "Church Street", "Richmond", "3121", -37.8200, 145.0000),
		street("mock-lygon-st-carlton", "Lygon Street", "Carlton", "3053", -37.7990, 144.9668),
		address("mock-123-swan-st", "123 Swan Street", "Richmond", "3121", -37.8254, 144.9937),
		address("mock-12-lygon-st", "12 Lygon Street", "Carlton", "3053", -37.8047, 144.9666),
		address("mock-1-acland-st", "1 Acland Street", "St Kilda", "3182", -37.8627, 144.9741),
	}
}
