package handler

// RESPONSE HELPERS:
// These functions standardise how the JSON endpoints answer.
//
//	writeJSON(w, http.StatusOK, data)
//	writeError(w, err)
//
// CONSISTENT ERROR FORMAT:
// Every error response has the same shape:
//
//	{"error": "not_found", "message": "page not found with id guide/intro.html"}
//
// Errors raised inside a live page session never come through here: they are
// rendered inline on the page by the session itself.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/docrunner/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"` // Human-readable description
}

// writeJSON sends a JSON response with the given status code.
//
// Headers and status must be set before the body: once Encode writes, the
// headers are on the wire and later changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// statusFor maps a domain error to its HTTP status and machine-readable type.
//
// errors.Is walks the whole chain, so a service error wrapped with
// fmt.Errorf("...: %w", apperror.NotFound(...)) still maps to 404.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, apperror.ErrTimeout):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, apperror.ErrCommunication):
		return http.StatusBadGateway, "communication_error"
	}
	return http.StatusInternalServerError, "internal_error"
}

// writeError maps a domain error to the appropriate HTTP status code and sends it.
//
// The service layer never knows about HTTP; this is the one place its errors
// are translated.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status, errorType := statusFor(err)
		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
		})
		return
	}

	// Unknown error: never expose internal details (SQL, file paths) to the client.
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}
