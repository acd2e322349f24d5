// Package errors provides the typed error taxonomy for keel startup and
// request handling. Startup errors carry a machine-readable code identifying
// which lifecycle phase failed; request errors map to the minimal JSON
// envelope returned to HTTP clients.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode identifies the failure class of a KitError.
type ErrorCode string

const (
	// ErrCodeConfig indicates the configuration failed validation.
	ErrCodeConfig ErrorCode = "CONFIG_INVALID"
	// ErrCodeRegistration indicates the discovery client failed to
	// initialize or register the service.
	ErrCodeRegistration ErrorCode = "REGISTRATION_FAILED"
	// ErrCodePlugin indicates a plugin phase failed during startup.
	ErrCodePlugin ErrorCode = "PLUGIN_FAILED"
	// ErrCodeListen indicates the HTTP listener could not bind its port.
	ErrCodeListen ErrorCode = "LISTEN_FAILED"
	// ErrCodeNotFound indicates a request for an unknown resource.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeInternal indicates an unclassified internal failure.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// KitError is the unified error type for keel.
type KitError struct {
	// Code is the machine-readable failure class.
	Code ErrorCode `json:"code"`
	// Message is a human-readable description.
	Message string `json:"message"`
	// HTTPStatus is the status code used when the error reaches a client.
	HTTPStatus int `json:"-"`
	// Cause is the underlying error, if any.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *KitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *KitError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause and returns the receiver.
func (e *KitError) WithCause(cause error) *KitError {
	e.Cause = cause
	return e
}

// --- Constructors, one per startup phase ---

// Config creates a KitError for configuration validation failure.
func Config(message string) *KitError {
	return &KitError{
		Code: ErrCodeConfig, Message: message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// Registration creates a KitError for a discovery registration failure.
func Registration(message string, cause error) *KitError {
	return &KitError{
		Code: ErrCodeRegistration, Message: message,
		HTTPStatus: http.StatusServiceUnavailable, Cause: cause,
	}
}

// Plugin creates a KitError for a failed plugin lifecycle phase.
func Plugin(pluginName, phase string, cause error) *KitError {
	return &KitError{
		Code:       ErrCodePlugin,
		Message:    fmt.Sprintf("plugin %s failed during %s", pluginName, phase),
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// Listen creates a KitError for a port bind failure.
func Listen(message string, cause error) *KitError {
	return &KitError{
		Code: ErrCodeListen, Message: message,
		HTTPStatus: http.StatusInternalServerError, Cause: cause,
	}
}

// NotFound creates a KitError for an unmatched request.
func NotFound(path string) *KitError {
	return &KitError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("no route for %s", path),
		HTTPStatus: http.StatusNotFound,
	}
}

// Internal creates a KitError for an unclassified internal failure.
func Internal(cause error) *KitError {
	return &KitError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.",
		HTTPStatus: http.StatusInternalServerError, Cause: cause,
	}
}

// AsKitError converts an error to a KitError if possible.
func AsKitError(err error) (*KitError, bool) {
	var ke *KitError
	if stderrors.As(err, &ke) {
		return ke, true
	}
	return nil, false
}

// HasCode reports whether err is a KitError with the given code.
func HasCode(err error, code ErrorCode) bool {
	ke, ok := AsKitError(err)
	return ok && ke.Code == code
}
