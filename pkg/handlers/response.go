package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dbscribe/dbscribe/pkg/apperrors"
	"github.com/dbscribe/dbscribe/pkg/logging"
)

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// WriteDomainError maps a domain error onto its HTTP status and writes the
// JSON error body. Error text is sanitized before leaving the process.
func WriteDomainError(w http.ResponseWriter, err error) {
	message := logging.SanitizeError(err)

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		_ = ErrorResponse(w, http.StatusNotFound, "not_found", message)
	case errors.Is(err, apperrors.ErrConnection):
		_ = ErrorResponse(w, http.StatusBadRequest, "connection_failed", message)
	case errors.Is(err, apperrors.ErrExecution):
		_ = ErrorResponse(w, http.StatusBadRequest, "execution_failed", message)
	case errors.Is(err, apperrors.ErrModelUnavailable):
		_ = ErrorResponse(w, http.StatusServiceUnavailable, "model_unavailable", message)
	case errors.Is(err, apperrors.ErrIntrospection),
		errors.Is(err, apperrors.ErrAnalysis):
		_ = ErrorResponse(w, http.StatusInternalServerError, "analysis_failed", message)
	default:
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", message)
	}
}
