package entities

import (
	"time"
)

// HistoryEntry is a confirmed selection kept for later recall.
type HistoryEntry struct {
	ID          string       `json:"id" db:"id"`
	SessionID   string       `json:"session_id,omitempty" db:"session_id"`
	Query       string       `json:"query" db:"query"`
	CacheKey    string       `json:"cache_key" db:"cache_key"`
	Intent      Intent       `json:"intent" db:"intent"`
	Source      SearchSource `json:"source" db:"source"`
	PlaceID     string       `json:"place_id" db:"place_id"`
	Description string       `json:"description" db:"description"`
	Suggestion  Suggestion   `json:"suggestion" db:"-"`
	ResultCount int          `json:"result_count" db:"result_count"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
}
