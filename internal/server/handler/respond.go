// Package handler provides the HTTP handlers for the Prompt Warden API.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sevigo/prompt-warden/internal/core"
)

// errorResponse is the JSON error envelope: message plus an optional
// machine-readable error code.
type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// respondError maps the domain error taxonomy onto HTTP statuses. Internal
// errors are logged and returned with a generic message; gateway errors pass
// the upstream status through.
func respondError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch core.KindOf(err) {
	case core.KindValidation:
		respondJSON(w, http.StatusBadRequest, errorResponse{Message: err.Error(), Error: "validation"})
	case core.KindNotFound:
		respondJSON(w, http.StatusNotFound, errorResponse{Message: err.Error(), Error: "not_found"})
	case core.KindForbidden:
		respondJSON(w, http.StatusForbidden, errorResponse{Message: err.Error(), Error: "forbidden"})
	case core.KindConflict:
		respondJSON(w, http.StatusConflict, errorResponse{Message: err.Error(), Error: "conflict"})
	case core.KindGatewayUnavailable:
		respondJSON(w, http.StatusServiceUnavailable, errorResponse{Message: "llm gateway unavailable", Error: "gateway_unavailable"})
	case core.KindGatewayError:
		status := http.StatusBadGateway
		var ce *core.Error
		if errors.As(err, &ce) && ce.UpstreamStatus >= 400 {
			status = ce.UpstreamStatus
		}
		respondJSON(w, status, errorResponse{Message: err.Error(), Error: "gateway_error"})
	default:
		logger.Error("internal error", "error", err)
		respondJSON(w, http.StatusInternalServerError, errorResponse{Message: "internal server error", Error: "internal"})
	}
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return core.Validationf("invalid JSON body: %v", err)
	}
	return nil
}

// callerID returns the opaque account id resolved by the authentication
// collaborator, or empty for anonymous callers.
func callerID(r *http.Request) string {
	return r.Header.Get("X-Account-ID")
}

// requireCaller rejects anonymous access to mutating workflow endpoints.
func requireCaller(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := callerID(r)
	if id == "" {
		respondJSON(w, http.StatusUnauthorized, errorResponse{Message: "caller identity is required", Error: "unauthorized"})
		return "", false
	}
	return id, true
}
