package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodes_FamiliesAreClosed(t *testing.T) {
	families := map[Family]bool{
		FamilyCache: true, FamilySearch: true, FamilySelection: true,
		FamilyValidation: true, FamilyOptions: true, FamilyState: true,
	}

	for _, code := range Codes() {
		assert.True(t, families[code.Family()], "unexpected family for %s", code)
	}
}

func TestRecoverability(t *testing.T) {
	assert.False(t, IsRecoverable(CodeSearchInvalidQuery))
	assert.True(t, IsRecoverable(CodeCacheNotFound))

	for _, code := range Codes() {
		if code.Family() == FamilyOptions {
			assert.False(t, IsRecoverable(code), "%s should not be recoverable", code)
		}
	}
}

func TestNew_MessageNeverContainsContext(t *testing.T) {
	err := New(CodeSelectionNotFound, ErrorContext{
		Query:       "Richmond",
		PlaceID:     "ChIJ-secret-id",
		Description: "Richmond VIC, Australia",
	})

	assert.Equal(t, CodeSelectionNotFound, err.Code)
	assert.True(t, err.Recoverable)
	assert.NotContains(t, err.Message, "ChIJ-secret-id")
	assert.NotContains(t, err.Message, "Richmond")
	assert.False(t, err.Context.Timestamp.IsZero())
}

func TestAllCodesHaveMessages(t *testing.T) {
	for _, code := range Codes() {
		err := New(code, ErrorContext{})
		assert.NotEmpty(t, err.Message, code)
		assert.True(t, strings.HasPrefix(err.Error(), string(code)))
	}
}

func TestWrap_UnwrapsAndMatches(t *testing.T) {
	cause := stderrors.New("redis: connection refused")
	err := Wrap(CodeCacheWriteFailed, ErrorContext{CacheKey: "search:x"}, cause)

	wrapped := fmt.Errorf("record search: %w", err)

	assert.ErrorIs(t, wrapped, cause)
	assert.ErrorIs(t, wrapped, New(CodeCacheWriteFailed, ErrorContext{}))
	assert.NotErrorIs(t, wrapped, New(CodeCacheReadFailed, ErrorContext{}))

	appErr, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, "search:x", appErr.Context.CacheKey)
	assert.True(t, HasCode(wrapped, CodeCacheWriteFailed))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(CodeSearchInvalidQuery))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(CodeStateMissingDependency))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(Code("UNKNOWN")))
}
