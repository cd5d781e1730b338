package entities

import (
	"time"
)

// UIState is the slice of browser-side state the service reads and writes.
// Each state store only populates the fields it owns.
type UIState struct {
	SearchQuery           string       `json:"searchQuery,omitempty"`
	SearchSource          SearchSource `json:"searchSource,omitempty"`
	SearchIntent          Intent       `json:"searchIntent,omitempty"`
	SelectedResult        *Suggestion  `json:"selectedResult,omitempty"`
	SelectionAcknowledged bool         `json:"selectionAcknowledged"`
	OptionsReplayActive   bool         `json:"optionsReplayActive"`
	LastAgentSearchQuery  string       `json:"lastAgentSearchQuery,omitempty"`
	ManualInputRequested  bool         `json:"manualInputRequested"`
	ManualInputReason     string       `json:"manualInputReason,omitempty"`
}

// StatePatch is a partial update; nil fields are left untouched.
type StatePatch struct {
	SearchQuery           *string       `json:"searchQuery,omitempty"`
	SearchSource          *SearchSource `json:"searchSource,omitempty"`
	SearchIntent          *Intent       `json:"searchIntent,omitempty"`
	SelectedResult        *Suggestion   `json:"selectedResult,omitempty"`
	ClearSelectedResult   bool          `json:"clearSelectedResult,omitempty"`
	SelectionAcknowledged *bool         `json:"selectionAcknowledged,omitempty"`
	OptionsReplayActive   *bool         `json:"optionsReplayActive,omitempty"`
	LastAgentSearchQuery  *string       `json:"lastAgentSearchQuery,omitempty"`
	ManualInputRequested  *bool         `json:"manualInputRequested,omitempty"`
	ManualInputReason     *string       `json:"manualInputReason,omitempty"`
}

// Apply returns state with the patch applied
func (p StatePatch) Apply(state UIState) UIState {
	if p.SearchQuery != nil {
		state.SearchQuery = *p.SearchQuery
	}
	if p.SearchSource != nil {
		state.SearchSource = *p.SearchSource
	}
	if p.SearchIntent != nil {
		state.SearchIntent = *p.SearchIntent
	}
	if p.ClearSelectedResult {
		state.SelectedResult = nil
	}
	if p.SelectedResult != nil {
		selected := *p.SelectedResult
		state.SelectedResult = &selected
	}
	if p.SelectionAcknowledged != nil {
		state.SelectionAcknowledged = *p.SelectionAcknowledged
	}
	if p.OptionsReplayActive != nil {
		state.OptionsReplayActive = *p.OptionsReplayActive
	}
	if p.LastAgentSearchQuery != nil {
		state.LastAgentSearchQuery = *p.LastAgentSearchQuery
	}
	if p.ManualInputRequested != nil {
		state.ManualInputRequested = *p.ManualInputRequested
	}
	if p.ManualInputReason != nil {
		state.ManualInputReason = *p.ManualInputReason
	}
	return state
}

// SessionUpdate is pushed to subscribers whenever a state store changes
type SessionUpdate struct {
	ID        string     `json:"id"`
	SessionID string     `json:"sessionId"`
	Store     string     `json:"store"`
	Patch     StatePatch `json:"patch"`
	State     UIState    `json:"state"`
	Timestamp time.Time  `json:"timestamp"`
}
