package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Code identifies a single error variant in the closed taxonomy.
type Code string

// Family groups codes by their prefix.
type Family string

const (
	FamilyCache      Family = "CACHE"
	FamilySearch     Family = "SEARCH"
	FamilySelection  Family = "SELECTION"
	FamilyValidation Family = "VALIDATION"
	FamilyOptions    Family = "OPTIONS"
	FamilyState      Family = "STATE"
)

const (
	// CodeCacheNotFound indicates no entry exists for a cache key
	CodeCacheNotFound Code = "CACHE_NOT_FOUND"
	// CodeCacheKeyMismatch indicates a key could not be derived from the input
	CodeCacheKeyMismatch Code = "CACHE_KEY_MISMATCH"
	// CodeCacheReadFailed indicates the result store failed on read
	CodeCacheReadFailed Code = "CACHE_READ_FAILED"
	// CodeCacheWriteFailed indicates the result store failed on write
	CodeCacheWriteFailed Code = "CACHE_WRITE_FAILED"

	CodeSearchInvalidQuery   Code = "SEARCH_INVALID_QUERY"
	CodeSearchNoResults      Code = "SEARCH_NO_RESULTS"
	CodeSearchProviderFailed Code = "SEARCH_PROVIDER_FAILED"

	CodeSelectionNoCurrentSearch Code = "SELECTION_NO_CURRENT_SEARCH"
	CodeSelectionNotFound        Code = "SELECTION_NOT_FOUND"
	CodeSelectionInvalidOrdinal  Code = "SELECTION_INVALID_ORDINAL"
	CodeSelectionNone            Code = "SELECTION_NONE"

	CodeValidationStateMismatch Code = "VALIDATION_STATE_MISMATCH"
	CodeValidationAddressFailed Code = "VALIDATION_ADDRESS_FAILED"

	CodeOptionsNoSelection Code = "OPTIONS_NO_SELECTION"
	CodeOptionsNoCache     Code = "OPTIONS_NO_CACHE"
	CodeOptionsEmptyCache  Code = "OPTIONS_EMPTY_CACHE"

	CodeStateMissingDependency  Code = "STATE_MISSING_DEPENDENCY"
	CodeStateAlreadyInitialized Code = "STATE_ALREADY_INITIALIZED"
)

type definition struct {
	message     string
	recoverable bool
	status      int
}

// definitions is the closed set. Messages are shown to end users and must
// never contain identifiers.
var definitions = map[Code]definition{
	CodeCacheNotFound:    {"We couldn't find those results any more. Please search again.", true, http.StatusNotFound},
	CodeCacheKeyMismatch: {"Please enter something to search for.", false, http.StatusBadRequest},
	CodeCacheReadFailed:  {"We couldn't load your results. Please try again.", true, http.StatusServiceUnavailable},
	CodeCacheWriteFailed: {"We couldn't save your results. Please try again.", true, http.StatusServiceUnavailable},

	CodeSearchInvalidQuery:   {"Please enter an address, suburb or street name.", false, http.StatusBadRequest},
	CodeSearchNoResults:      {"No results found. Try a different search.", false, http.StatusNotFound},
	CodeSearchProviderFailed: {"Address search is unavailable right now. Please try again.", true, http.StatusBadGateway},

	CodeSelectionNoCurrentSearch: {"Search for an address before choosing one.", true, http.StatusConflict},
	CodeSelectionNotFound:        {"That option is no longer available. Please search again.", true, http.StatusNotFound},
	CodeSelectionInvalidOrdinal:  {"Please choose one of the options shown, like first or second.", false, http.StatusBadRequest},
	CodeSelectionNone:            {"There is no selection to confirm.", false, http.StatusConflict},

	CodeValidationStateMismatch: {"Your session was out of date and has been refreshed.", true, http.StatusConflict},
	CodeValidationAddressFailed: {"We couldn't find that exact address.", false, http.StatusNotFound},

	CodeOptionsNoSelection: {"There are no previous options to show.", false, http.StatusConflict},
	CodeOptionsNoCache:     {"Previous options are no longer available.", false, http.StatusGone},
	CodeOptionsEmptyCache:  {"Previous options are no longer available.", false, http.StatusGone},

	CodeStateMissingDependency:  {"The address service is not ready yet.", false, http.StatusServiceUnavailable},
	CodeStateAlreadyInitialized: {"The address service is already running.", false, http.StatusConflict},
}

// Codes returns every code in the taxonomy.
func Codes() []Code {
	codes := make([]Code, 0, len(definitions))
	for code := range definitions {
		codes = append(codes, code)
	}
	return codes
}

// Family returns the family a code belongs to.
func (c Code) Family() Family {
	prefix, _, _ := strings.Cut(string(c), "_")
	return Family(prefix)
}

// ErrorContext carries machine-readable diagnostics. Every code uses the same
// shape; fields that do not apply stay zero.
type ErrorContext struct {
	Query           string    `json:"query,omitempty"`
	PlaceID         string    `json:"place_id,omitempty"`
	Description     string    `json:"description,omitempty"`
	CacheKey        string    `json:"cache_key,omitempty"`
	AvailableCount  int       `json:"available_count,omitempty"`
	ActiveCacheKeys int       `json:"active_cache_keys,omitempty"`
	Ordinal         string    `json:"ordinal,omitempty"`
	Missing         string    `json:"missing,omitempty"`
	Expected        string    `json:"expected,omitempty"`
	Actual          string    `json:"actual,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// AppError represents an application error
type AppError struct {
	Code        Code         `json:"code"`
	Message     string       `json:"message"`
	Recoverable bool         `json:"recoverable"`
	Context     ErrorContext `json:"context"`
	Err         error        `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches another *AppError by code, so errors.Is(err, New(code, ...)) works.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Family returns the error's family
func (e *AppError) Family() Family {
	return e.Code.Family()
}

// New creates an error for code with the given diagnostics
func New(code Code, ctx ErrorContext) *AppError {
	return Wrap(code, ctx, nil)
}

// Wrap creates an error for code that wraps an underlying cause
func Wrap(code Code, ctx ErrorContext, err error) *AppError {
	def, ok := definitions[code]
	if !ok {
		def = definition{message: "Something went wrong.", status: http.StatusInternalServerError}
	}
	if ctx.Timestamp.IsZero() {
		ctx.Timestamp = time.Now().UTC()
	}
	return &AppError{
		Code:        code,
		Message:     def.message,
		Recoverable: def.recoverable,
		Context:     ctx,
		Err:         err,
	}
}

// As extracts an *AppError from err
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err is an *AppError with the given code
func HasCode(err error, code Code) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

// IsRecoverable reports whether the caller may retry without new input
func IsRecoverable(code Code) bool {
	return definitions[code].recoverable
}

// HTTPStatus returns the status code the HTTP adapter uses for code
func HTTPStatus(code Code) int {
	if def, ok := definitions[code]; ok {
		return def.status
	}
	return http.StatusInternalServerError
}
