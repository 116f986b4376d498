package api

import (
	"encoding/json"
	"net/http"

	"github.com/DevDizzle/profit-scout/pkg/errors"
	"github.com/DevDizzle/profit-scout/pkg/logger"
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes v as a JSON response with the given status
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warnf("Failed to encode response: %v", err)
	}
}

// writeError maps a service error onto an HTTP status and a safe message.
// Internal details never reach the client.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errors.ErrInvalidInput), errors.Is(err, errors.ErrMessageTooLong):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, errors.ErrTickerNotFound), errors.Is(err, errors.ErrTaskNotFound),
		errors.Is(err, errors.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, errors.ErrRateLimited):
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded, try again later"})
	case errors.Is(err, errors.ErrTimeout):
		writeJSON(w, http.StatusGatewayTimeout, errorResponse{Error: "request timed out"})
	default:
		logger.Errorf("Internal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}
