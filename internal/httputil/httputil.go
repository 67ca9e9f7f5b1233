// Package httputil holds the JSON response helpers shared by the API
// handlers and the middleware chain.
package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/redvault/backend/internal/errors"
)

// ErrorResponse is the error envelope returned on every failure.
type ErrorResponse struct {
	Error   string              `json:"error"`
	Details []errors.FieldError `json:"details,omitempty"`
}

// WriteJSON serializes v with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes the error envelope for a classified service error.
// Unclassified errors are reported as an opaque internal failure.
func WriteError(w http.ResponseWriter, err error) {
	serviceErr := errors.GetServiceError(err)
	if serviceErr == nil {
		serviceErr = errors.Internal("Internal server error", err)
	}
	message := serviceErr.Message
	if serviceErr.Code == errors.CodeInternal {
		// Never leak wrapped causes to the client.
		message = "Internal server error"
	}
	WriteJSON(w, serviceErr.HTTPStatus, ErrorResponse{Error: message, Details: serviceErr.Details})
}
