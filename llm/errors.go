package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Standard error codes for backend failures.
const (
	// ErrCodeTimeout indicates the backend did not answer before the deadline.
	ErrCodeTimeout = "TIMEOUT"

	// ErrCodeCancelled indicates the caller abandoned the request.
	ErrCodeCancelled = "CANCELLED"

	// ErrCodeNetworkError indicates a transport-level failure.
	ErrCodeNetworkError = "NETWORK_ERROR"

	// ErrCodeParseError indicates the backend answered with something unusable.
	ErrCodeParseError = "PARSE_ERROR"

	// ErrCodeBackendError indicates the backend rejected or failed the request.
	ErrCodeBackendError = "BACKEND_ERROR"

	// ErrCodeInvalidInput indicates the request was invalid before it was sent.
	ErrCodeInvalidInput = "INVALID_INPUT"
)

// ErrorClass categorizes errors by their nature.
type ErrorClass string

const (
	// ErrorClassTransient indicates temporary failures that may resolve.
	// Examples: timeouts, connection resets, rate limits
	ErrorClassTransient ErrorClass = "transient"

	// ErrorClassPermanent indicates failures that will recur for the same request.
	// Examples: authentication failures, malformed responses, invalid requests
	ErrorClassPermanent ErrorClass = "permanent"
)

// ErrMalformedResponse is returned when a backend response has no usable content.
var ErrMalformedResponse = errors.New("malformed completion response")

// Error is a structured backend error.
type Error struct {
	// Provider names the backend (e.g. "openai").
	Provider string

	// Operation is the call that failed (e.g. "complete").
	Operation string

	// Code is one of the ErrCode constants.
	Code string

	// Message is a human-readable error message.
	Message string

	// StatusCode is the HTTP status returned by the backend, if any.
	StatusCode int

	// Class categorizes the error.
	Class ErrorClass

	// Cause is the underlying error.
	Cause error
}

// NewError creates a new structured backend error with the default class for code.
func NewError(provider, operation, code, message string) *Error {
	return &Error{
		Provider:  provider,
		Operation: operation,
		Code:      code,
		Message:   message,
		Class:     DefaultClassForCode(code),
	}
}

// WithCause adds an underlying error to this error.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// WithStatus records the backend HTTP status.
func (e *Error) WithStatus(status int) *Error {
	e.StatusCode = status
	return e
}

// Error formats the error as "provider [operation/code]: message: cause".
func (e *Error) Error() string {
	parts := []string{fmt.Sprintf("%s [%s/%s]", e.Provider, e.Operation, e.Code)}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying cause error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same provider, operation and code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Provider == t.Provider && e.Operation == t.Operation && e.Code == t.Code
}

// IsTransient returns true if retrying the request might succeed.
func (e *Error) IsTransient() bool {
	return e.Class == ErrorClassTransient
}

// DefaultClassForCode returns the default error class for a given error code.
func DefaultClassForCode(code string) ErrorClass {
	switch code {
	case ErrCodeTimeout, ErrCodeNetworkError, ErrCodeCancelled:
		return ErrorClassTransient
	default:
		return ErrorClassPermanent
	}
}

// Classify converts any error into an *Error. Errors that already are (or
// wrap) an *Error are returned as-is; context and network errors map to
// their codes; anything else becomes ErrCodeBackendError.
func Classify(provider, operation string, err error) *Error {
	if err == nil {
		return nil
	}

	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr
	}

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewError(provider, operation, ErrCodeTimeout, "request timed out").WithCause(err)
	case errors.Is(err, context.Canceled):
		return NewError(provider, operation, ErrCodeCancelled, "request cancelled").WithCause(err)
	case errors.Is(err, ErrMalformedResponse):
		return NewError(provider, operation, ErrCodeParseError, "unusable response").WithCause(err)
	case errors.As(err, &netErr):
		if netErr.Timeout() {
			return NewError(provider, operation, ErrCodeTimeout, "request timed out").WithCause(err)
		}
		return NewError(provider, operation, ErrCodeNetworkError, "transport failure").WithCause(err)
	default:
		return NewError(provider, operation, ErrCodeBackendError, "request failed").WithCause(err)
	}
}
