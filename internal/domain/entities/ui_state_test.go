package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatePatch_ApplyLeavesNilFieldsUntouched(t *testing.T) {
	state := UIState{
		SearchQuery:          "Richmond",
		SearchSource:         SearchSourceVoice,
		LastAgentSearchQuery: "Richmond",
		OptionsReplayActive:  true,
	}

	query := "Carlton"
	got := StatePatch{SearchQuery: &query}.Apply(state)

	assert.Equal(t, "Carlton", got.SearchQuery)
	assert.Equal(t, SearchSourceVoice, got.SearchSource)
	assert.Equal(t, "Richmond", got.LastAgentSearchQuery)
	assert.True(t, got.OptionsReplayActive)
	assert.Equal(t, "Richmond", state.SearchQuery)
}

func TestStatePatch_SelectedResult(t *testing.T) {
	selected := Suggestion{PlaceID: "p1", Description: "1 Swan St"}
	got := StatePatch{SelectedResult: &selected}.Apply(UIState{})
	require.NotNil(t, got.SelectedResult)

	selected.Description = "changed"
	assert.Equal(t, "1 Swan St", got.SelectedResult.Description)

	cleared := StatePatch{ClearSelectedResult: true}.Apply(got)
	assert.Nil(t, cleared.SelectedResult)

	replaced := StatePatch{ClearSelectedResult: true, SelectedResult: &Suggestion{PlaceID: "p2"}}.Apply(got)
	require.NotNil(t, replaced.SelectedResult)
	assert.Equal(t, "p2", replaced.SelectedResult.PlaceID)
}

func TestStatePatch_Flags(t *testing.T) {
	yes, no := true, false
	reason := "low confidence"

	got := StatePatch{
		SelectionAcknowledged: &yes,
		ManualInputRequested:  &yes,
		ManualInputReason:     &reason,
		OptionsReplayActive:   &no,
	}.Apply(UIState{OptionsReplayActive: true})

	assert.True(t, got.SelectionAcknowledged)
	assert.True(t, got.ManualInputRequested)
	assert.Equal(t, "low confidence", got.ManualInputReason)
	assert.False(t, got.OptionsReplayActive)
}
