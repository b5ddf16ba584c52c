package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON, writeText or writeError so that
// content types and the error body stay the same across endpoints:
//
//	{"error": "not_found", "message": "User not found."}

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/city-weather/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"` // Human-readable description
}

// writeJSON sends a JSON response with the given status code.
// Headers and status must be set before the body is written.
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

// writeText sends a plain-text response.
func writeText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(text)); err != nil {
		slog.Error("failed to write text response", slog.String("error", err.Error()))
	}
}

// errorKind pairs a sentinel with its HTTP status and machine-readable type.
// Order matters: domain sentinels come before the generic ones they might
// also match.
var errorKinds = []struct {
	target error
	status int
	kind   string
}{
	{apperror.ErrUserNotFound, http.StatusNotFound, "user_not_found"},
	{apperror.ErrCityUnknown, http.StatusNotFound, "city_not_found"},
	{apperror.ErrTimeNotAvailable, http.StatusNotFound, "time_not_available"},
	{apperror.ErrDuplicateUsername, http.StatusBadRequest, "duplicate_username"},
	{apperror.ErrAlreadyTracked, http.StatusBadRequest, "already_tracked"},
	{apperror.ErrNotTracked, http.StatusBadRequest, "not_tracked"},
	{apperror.ErrDuplicateCityName, http.StatusConflict, "conflict"},
	{apperror.ErrUpstream, http.StatusBadGateway, "upstream_error"},
	{apperror.ErrValidation, http.StatusBadRequest, "validation_error"},
	{apperror.ErrNotFound, http.StatusNotFound, "not_found"},
}

// writeError maps a domain error to the appropriate HTTP status code and sends it.
//
// The service layer knows nothing about HTTP; this is the only place where
// sentinels become status codes. errors.Is walks the whole chain, so
// errors wrapped with fmt.Errorf("...: %w", err) still match.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		for _, k := range errorKinds {
			if errors.Is(err, k.target) {
				writeJSON(w, k.status, ErrorResponse{Error: k.kind, Message: appErr.Message})
				return
			}
		}
	}

	// Never expose internal error details to the client.
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}
