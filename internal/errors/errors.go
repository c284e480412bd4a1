// Package errors provides coded application errors and RFC 7807
// problem detail responses for the HTTP layer.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes carried by APIError. Handlers map them onto HTTP
// statuses and problem types.
const (
	CodeValidation    = "VALIDATION_ERROR"
	CodeNormalization = "NORMALIZATION_ERROR"
	CodeComputation   = "COMPUTATION_ERROR"
	CodeNotFound      = "NOT_FOUND"
	CodeRateLimit     = "RATE_LIMITED"
	CodeInternal      = "INTERNAL_ERROR"
)

// APIError is the application error type surfaced to transports.
type APIError struct {
	Code    string
	Message string
	Status  int
	Err     error
	Fields  map[string]any
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// WithField attaches a named detail to the error and returns it for
// chaining.
func (e *APIError) WithField(key string, value any) *APIError {
	if e.Fields == nil {
		e.Fields = make(map[string]any)
	}
	e.Fields[key] = value
	return e
}

// NewValidation reports invalid client input.
func NewValidation(message string) *APIError {
	return &APIError{Code: CodeValidation, Message: message, Status: http.StatusBadRequest}
}

// NewNormalization reports a table that could not be normalized.
// The sheet reached the engine but carried no usable structure, so
// the response is 422 rather than 400.
func NewNormalization(message string, err error) *APIError {
	return &APIError{Code: CodeNormalization, Message: message, Status: http.StatusUnprocessableEntity, Err: err}
}

// NewComputation reports a KPI or trend computation failure.
func NewComputation(message string, err error) *APIError {
	return &APIError{Code: CodeComputation, Message: message, Status: http.StatusInternalServerError, Err: err}
}

// NewNotFound reports a missing resource.
func NewNotFound(resource string) *APIError {
	return &APIError{Code: CodeNotFound, Message: fmt.Sprintf("%s not found", resource), Status: http.StatusNotFound}
}

// NewRateLimit reports a throttled request.
func NewRateLimit() *APIError {
	return &APIError{Code: CodeRateLimit, Message: "too many requests", Status: http.StatusTooManyRequests}
}

// NewInternal wraps an unexpected failure.
func NewInternal(err error) *APIError {
	return &APIError{Code: CodeInternal, Message: "internal error", Status: http.StatusInternalServerError, Err: err}
}

// AsAPIError extracts an *APIError from err's chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
