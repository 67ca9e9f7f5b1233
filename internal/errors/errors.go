// Package errors defines the service error taxonomy shared by the API
// layer and the domain services.
package errors

import (
	stderrors "errors"
	"net/http"
)

// Code identifies an error class independent of its message.
type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeRateLimited  Code = "RATE_LIMITED"
	CodeInternal     Code = "INTERNAL_ERROR"
)

// FieldError describes a single request-body validation failure.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ServiceError is a classified error carrying the HTTP status it maps to.
type ServiceError struct {
	Code       Code
	Message    string
	HTTPStatus int
	Details    []FieldError

	err error
}

func (e *ServiceError) Error() string {
	if e.err != nil {
		return e.Message + ": " + e.err.Error()
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error { return e.err }

// WithDetails attaches field-level validation details.
func (e *ServiceError) WithDetails(details ...FieldError) *ServiceError {
	e.Details = append(e.Details, details...)
	return e
}

func newError(code Code, status int, message string) *ServiceError {
	return &ServiceError{Code: code, Message: message, HTTPStatus: status}
}

// Validation reports malformed or out-of-range client input.
func Validation(message string, details ...FieldError) *ServiceError {
	e := newError(CodeValidation, http.StatusBadRequest, message)
	e.Details = details
	return e
}

// Unauthorized reports a missing, invalid, or expired credential.
func Unauthorized(message string) *ServiceError {
	return newError(CodeUnauthorized, http.StatusUnauthorized, message)
}

// Forbidden reports an authenticated caller lacking the required role or
// account standing.
func Forbidden(message string) *ServiceError {
	return newError(CodeForbidden, http.StatusForbidden, message)
}

// NotFound reports an absent entity.
func NotFound(message string) *ServiceError {
	return newError(CodeNotFound, http.StatusNotFound, message)
}

// Conflict reports a duplicate unique key.
func Conflict(message string) *ServiceError {
	return newError(CodeConflict, http.StatusConflict, message)
}

// RateLimited reports that the caller exhausted its request budget.
func RateLimited(message string) *ServiceError {
	return newError(CodeRateLimited, http.StatusTooManyRequests, message)
}

// Internal wraps an unexpected failure. The wrapped error is logged
// server-side and never leaks to the client.
func Internal(message string, err error) *ServiceError {
	e := newError(CodeInternal, http.StatusInternalServerError, message)
	e.err = err
	return e
}

// Is and As re-export the stdlib helpers so callers of this package do
// not need a second errors import.
func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }

// GetServiceError extracts a *ServiceError from err, or nil when err is
// not classified.
func GetServiceError(err error) *ServiceError {
	var serviceErr *ServiceError
	if stderrors.As(err, &serviceErr) {
		return serviceErr
	}
	return nil
}
