package handler

import (
	"encoding/json"
	"net/http"

	"app/internal/apperr"

	"github.com/rs/zerolog"
)

// writeJSON encodes v as the response body.
func writeJSON(w http.ResponseWriter, logger zerolog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error().Err(err).Msg("failed to encode response")
	}
}

// writeError maps err to its stable status code and a structured payload.
// Internal detail stays in the server log; clients only see the safe message.
func writeError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, logger, status, map[string]string{"error": apperr.Message(err)})
}
