package providers

import (
	"context"

	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/entities"
)

// PlaceQuery describes an autocomplete lookup
type PlaceQuery struct {
	Query          string
	Intent         entities.Intent
	MaxResults     int
	IsAutocomplete bool
	SessionToken   string
}

// PlacesProvider defines the interface for the hosted places service
type PlacesProvider interface {
	// Autocomplete returns candidate places for a query
	Autocomplete(ctx context.Context, query PlaceQuery) ([]entities.Suggestion, error)

	// PlaceDetails returns enrichment data for a place
	PlaceDetails(ctx context.Context, placeID string) (*entities.PlaceDetail, error)
}
