package entities

// ResultType classifies a place suggestion
type ResultType string

const (
	ResultTypeSuburb  ResultType = "suburb"
	ResultTypeStreet  ResultType = "street"
	ResultTypeAddress ResultType = "address"
	ResultTypeGeneral ResultType = "general"
)

// Valid reports whether t is one of the known result types
func (t ResultType) Valid() bool {
	switch t {
	case ResultTypeSuburb, ResultTypeStreet, ResultTypeAddress, ResultTypeGeneral:
		return true
	}
	return false
}

// Coordinates represents geographical coordinates
type Coordinates struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// StructuredFormatting splits a description into its main and secondary parts
type StructuredFormatting struct {
	MainText      string `json:"mainText"`
	SecondaryText string `json:"secondaryText,omitempty"`
}

// Suggestion is a candidate place returned by a search. It is treated as
// immutable once a search has returned it.
type Suggestion struct {
	PlaceID              string                `json:"placeId"`
	Description          string                `json:"description"`
	ResultType           ResultType            `json:"resultType"`
	Confidence           float64               `json:"confidence"`
	Suburb               string                `json:"suburb,omitempty"`
	Postcode             string                `json:"postcode,omitempty"`
	Types                []string              `json:"types,omitempty"`
	Coordinates          *Coordinates          `json:"coordinates,omitempty"`
	StructuredFormatting *StructuredFormatting `json:"structuredFormatting,omitempty"`
}

// ContainsPlace reports whether suggestions holds an entry with placeID
func ContainsPlace(suggestions []Suggestion, placeID string) bool {
	return IndexOfPlace(suggestions, placeID) >= 0
}

// IndexOfPlace returns the position of placeID in suggestions or -1
func IndexOfPlace(suggestions []Suggestion, placeID string) int {
	for i := range suggestions {
		if suggestions[i].PlaceID == placeID {
			return i
		}
	}
	return -1
}

// PlaceDetail is the enrichment data stored in the detail namespace
type PlaceDetail struct {
	PlaceID          string       `json:"placeId"`
	FormattedAddress string       `json:"formattedAddress"`
	Suburb           string       `json:"suburb,omitempty"`
	State            string       `json:"state,omitempty"`
	Postcode         string       `json:"postcode,omitempty"`
	Country          string       `json:"country,omitempty"`
	Types            []string     `json:"types,omitempty"`
	Coordinates      *Coordinates `json:"coordinates,omitempty"`
}

// Enrich returns a copy of s with the detail's address data applied
func (d *PlaceDetail) Enrich(s Suggestion) Suggestion {
	if d == nil {
		return s
	}
	if d.FormattedAddress != "" {
		s.Description = d.FormattedAddress
	}
	if d.Suburb != "" {
		s.Suburb = d.Suburb
	}
	if d.Postcode != "" {
		s.Postcode = d.Postcode
	}
	if len(d.Types) > 0 {
		s.Types = append([]string(nil), d.Types...)
	}
	if d.Coordinates != nil {
		coords := *d.Coordinates
		s.Coordinates = &coords
	}
	return s
}
