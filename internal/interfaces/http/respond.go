package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"brokerlink/internal/domain/connection"
	"brokerlink/internal/domain/holdings"
	"brokerlink/internal/shared/auth"
	"brokerlink/internal/shared/logger"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto status codes. Downstream failures expose
// their message; callers are authenticated users of an internal tool.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, auth.ErrIdentityMismatch):
		status = http.StatusForbidden
	case errors.Is(err, connection.ErrNotRegistered),
		errors.Is(err, connection.ErrConnectionNotFound),
		errors.Is(err, holdings.ErrAccountNotFound):
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		logger.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}
