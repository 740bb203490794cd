package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/taskly/taskly-be/internal/apperror"
)

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeEmpty writes a bodyless 200 response.
func writeEmpty(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
}

// writeError maps an application error to its status code and the
// {"error": ...} body. Anything that is not an *apperror.Error is a 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		event := log.Warn()
		if appErr.StatusCode() >= 500 {
			event = log.Error()
		}
		event.Err(err).Str("method", r.Method).Str("path", r.URL.Path).Int("status", appErr.StatusCode()).Msg("Request failed")
		writeJSON(w, appErr.StatusCode(), appErr.ToResponse())
		return
	}

	log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("Unhandled error")
	writeJSON(w, http.StatusInternalServerError, apperror.Response{Error: "Internal server error"})
}
