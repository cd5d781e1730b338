package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/ReOpAu/react-starter-kit-sub002/internal/infrastructure/observability"
	apperrors "github.com/ReOpAu/react-starter-kit-sub002/pkg/errors"
)

// errorResponse is the body of every failed request
type errorResponse struct {
	Error       string                  `json:"error"`
	Code        apperrors.Code          `json:"code,omitempty"`
	Recoverable bool                    `json:"recoverable"`
	Context     *apperrors.ErrorContext `json:"context,omitempty"`
}

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, errorResponse{Error: message})
}

// respondWithAppError maps service errors onto HTTP. Errors outside the
// taxonomy are logged and reported as 500 without detail.
func respondWithAppError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		observability.LoggerFromContext(r.Context()).Error().Err(err).
			Str("path", r.URL.Path).
			Msg("request failed")
		respondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	status := apperrors.HTTPStatus(appErr.Code)
	if status >= http.StatusInternalServerError {
		observability.LoggerFromContext(r.Context()).Warn().Err(err).
			Str("code", string(appErr.Code)).
			Msg("request failed")
	}
	errCtx := appErr.Context
	respondWithJSON(w, status, errorResponse{
		Error:       appErr.Message,
		Code:        appErr.Code,
		Recoverable: appErr.Recoverable,
		Context:     &errCtx,
	})
}

// decodeJSON reads an optional JSON body; an empty body leaves dst unchanged
func decodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func queryLimit(r *http.Request, fallback, max int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	if limit > max {
		return max
	}
	return limit
}
