package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/terra-clan/certmap/internal/catalog"
	"github.com/terra-clan/certmap/internal/filter"
	"github.com/terra-clan/certmap/internal/schema"
	"github.com/terra-clan/certmap/internal/sessions"
)

// maxBodyBytes bounds request bodies, a full catalog included
const maxBodyBytes = 4 << 20

// Response helpers

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondErrorDetails(w, status, code, message, nil)
}

func respondErrorDetails(w http.ResponseWriter, status int, code, message string, details interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
			Details: details,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// respondServiceError maps domain errors to HTTP responses
func respondServiceError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, sessions.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, "not_found", "session not found")
	case errors.Is(err, catalog.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", "certification not found")
	case errors.Is(err, catalog.ErrNotLoaded):
		respondError(w, http.StatusServiceUnavailable, "not_ready", "catalog not loaded")
	case errors.Is(err, sessions.ErrTooManySessions):
		respondError(w, http.StatusTooManyRequests, "too_many_sessions", "session limit reached")
	case errors.Is(err, filter.ErrUnknownCategory), errors.Is(err, filter.ErrUnknownSkillLevel):
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
	default:
		slog.Error("request failed", "action", action, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to "+action)
	}
}

// decodeJSON reads a bounded JSON body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "failed to read body")
		return nil, false
	}
	return data, true
}

// fieldErrorResponse is the wire form of a schema violation
type fieldErrorResponse struct {
	Path       string      `json:"path"`
	Constraint string      `json:"constraint"`
	Message    string      `json:"message"`
	Value      interface{} `json:"value,omitempty"`
}

func fieldErrors(fields []schema.FieldError) []fieldErrorResponse {
	out := make([]fieldErrorResponse, 0, len(fields))
	for _, f := range fields {
		out = append(out, fieldErrorResponse{
			Path:       f.Path,
			Constraint: f.Constraint,
			Message:    f.Error(),
			Value:      f.Value,
		})
	}
	return out
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.Current()
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "not_ready", "catalog not loaded")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "ready",
		"catalog_version": snap.Version,
	})
}
