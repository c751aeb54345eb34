package cloudapi

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeNetwork indicates a transport-level failure (connection
	// refused, timeout, DNS)
	ErrTypeNetwork ErrorType = iota
	// ErrTypeAuth indicates the API rejected the credentials (403)
	ErrTypeAuth
	// ErrTypeAPI indicates any other non-200 response
	ErrTypeAPI
	// ErrTypeParse indicates a malformed response body
	ErrTypeParse
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeAuth:
		return "Authentication Error"
	case ErrTypeAPI:
		return "API Error"
	case ErrTypeParse:
		return "Parse Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// APIError represents a failure talking to the cloud REST API. Discovery
// errors are never retried here; callers decide how to handle them.
type APIError struct {
	Type       ErrorType
	Message    string
	StatusCode int   // HTTP status code (if applicable)
	Err        error // underlying error (if any)
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *APIError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a transport-level error
func NewNetworkError(message string, err error) *APIError {
	return &APIError{Type: ErrTypeNetwork, Message: message, Err: err}
}

// NewAuthError creates an authentication error (403 from the API)
func NewAuthError(message string) *APIError {
	return &APIError{Type: ErrTypeAuth, Message: message, StatusCode: 403}
}

// NewAPIError creates a generic API error for a non-200 status
func NewAPIError(statusCode int, message string) *APIError {
	return &APIError{Type: ErrTypeAPI, Message: message, StatusCode: statusCode}
}

// NewParseError creates a parse error for a malformed response body
func NewParseError(message string, err error) *APIError {
	return &APIError{Type: ErrTypeParse, Message: message, Err: err}
}

// IsAuthError checks if an error is an authentication error, looking
// through any wrapping
func IsAuthError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Type == ErrTypeAuth
	}
	return false
}

// IsAPIError checks if an error is a generic API error, looking through
// any wrapping
func IsAPIError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Type == ErrTypeAPI
	}
	return false
}
