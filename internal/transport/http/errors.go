package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"exam-quiz-service/internal/domain"
	"github.com/rs/zerolog/log"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// statusFor maps service errors to an HTTP status and a client-safe message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest),
		errors.Is(err, domain.ErrSessionCompleted),
		errors.Is(err, domain.ErrNoQuestions):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrAccessDenied):
		return http.StatusForbidden, domain.ErrAccessDenied.Error()
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrResultsNotFound),
		errors.Is(err, domain.ErrStatsNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrPoolUnavailable):
		return http.StatusInternalServerError, domain.ErrPoolUnavailable.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSON(w, status, errorResponse{Error: msg})
}
