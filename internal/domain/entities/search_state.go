package entities

import (
	"time"
)

// SearchSource identifies which flow initiated a search or selection
type SearchSource string

const (
	SearchSourceManual SearchSource = "manual"
	SearchSourceVoice  SearchSource = "voice"
	SearchSourceAgent  SearchSource = "agent"
)

// Valid reports whether s is a known source
func (s SearchSource) Valid() bool {
	switch s {
	case SearchSourceManual, SearchSourceVoice, SearchSourceAgent:
		return true
	}
	return false
}

// Intent is the classified intent of a query
type Intent string

const (
	IntentSuburb  Intent = "suburb"
	IntentStreet  Intent = "street"
	IntentAddress Intent = "address"
	IntentGeneral Intent = "general"
)

// SearchState is the currently active search
type SearchState struct {
	Query       string       `json:"query"`
	CacheKey    string       `json:"cacheKey"`
	Suggestions []Suggestion `json:"suggestions"`
	Source      SearchSource `json:"source"`
	Intent      Intent       `json:"intent"`
	CreatedAt   time.Time    `json:"createdAt"`
	ResultCount int          `json:"resultCount"`
}

// SelectionState is the currently confirmed pick
type SelectionState struct {
	Suggestion       Suggestion   `json:"suggestion"`
	OriginalQuery    string       `json:"originalQuery"`
	OriginalCacheKey string       `json:"originalCacheKey"`
	Source           SearchSource `json:"source"`
	Intent           Intent       `json:"intent"`
	SelectedAt       time.Time    `json:"selectedAt"`
	IsValidated      bool         `json:"isValidated"`
	IsAcknowledged   bool         `json:"isAcknowledged"`
}

// ShowOptionsConfig is computed on demand and never stored
type ShowOptionsConfig struct {
	CanShow     bool            `json:"canShow"`
	CacheKey    string          `json:"cacheKey,omitempty"`
	CachedCount int             `json:"cachedCount"`
	Selection   *SelectionState `json:"selection,omitempty"`
	// Missing names the precondition that failed when CanShow is false
	Missing string `json:"missing,omitempty"`
}
