// Package errors provides the unified error type for the dashboard core.
// It implements structured errors with machine-readable codes covering the
// connection, board-format, validation and protocol failure cases.
package errors

import (
	"fmt"
	"net/http"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if a user-initiated retry can succeed.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the status used when the error surfaces on the status API.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// --- Connection errors ---

// NotConnected is returned when a frame send is attempted while the
// connection is not open.
func NotConnected() *AppError {
	return &AppError{
		Code: ErrCodeConnection, Message: "Not connected to the execution server.",
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
	}
}

// ConnectionFailed wraps a failed connection attempt.
func ConnectionFailed(endpoint string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeConnection, Message: fmt.Sprintf("Unable to connect to %s.", endpoint),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
		Details: map[string]any{"endpoint": endpoint}, Cause: cause,
	}
}

// ConnectionLost marks a session that was cut short by a closed connection.
func ConnectionLost() *AppError {
	return &AppError{
		Code: ErrCodeConnection, Message: "Connection to the execution server was lost.",
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
	}
}

// --- Board format errors ---

// MalformedBoard is returned when board JSON cannot be decoded.
func MalformedBoard(cause error) *AppError {
	return &AppError{
		Code: ErrCodeFormat, Message: "The board file is not valid JSON.",
		HTTPStatus: http.StatusBadRequest, Retryable: false, Cause: cause,
	}
}

// KindMismatch is returned when the envelope discriminator is wrong.
func KindMismatch(got string) *AppError {
	return &AppError{
		Code: ErrCodeFormat, Message: "The file is not a board export.",
		HTTPStatus: http.StatusBadRequest, Retryable: false,
		Details: map[string]any{"kind": got},
	}
}

// UnsupportedVersion is returned when the envelope version is newer than
// this codec understands.
func UnsupportedVersion(got, max int) *AppError {
	return &AppError{
		Code: ErrCodeFormat, Message: fmt.Sprintf("unsupported version: board export version %d is newer than supported version %d", got, max),
		HTTPStatus: http.StatusBadRequest, Retryable: false,
		Details: map[string]any{"version": got, "max_supported": max},
	}
}

// --- Validation ---

// Validation creates a non-fatal validation error; it renders as a badge
// count, never blocking the graph.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeValidation, Message: message,
		HTTPStatus: http.StatusBadRequest, Retryable: false,
	}
}

// --- Protocol errors ---

// ProtocolFailure wraps an error reply from the execution server for a
// known request.
func ProtocolFailure(typeCode int, message string) *AppError {
	if message == "" {
		message = "The execution server rejected the request."
	}
	return &AppError{
		Code: ErrCodeProtocol, Message: message,
		HTTPStatus: http.StatusBadGateway, Retryable: false,
		Details: map[string]any{"type": typeCode},
	}
}

// StaleCorrelation marks a frame whose requestId matches no pending
// session. Callers drop it silently; the error exists for diagnostics.
func StaleCorrelation(requestID int64) *AppError {
	return &AppError{
		Code: ErrCodeStaleCorrelation, Message: "Frame does not match any pending request.",
		HTTPStatus: http.StatusConflict, Retryable: false,
		Details: map[string]any{"request_id": requestID},
	}
}

// --- Session conflicts ---

// ExecutionInProgress rejects a run while a session is already active.
func ExecutionInProgress() *AppError {
	return &AppError{
		Code: ErrCodeConflict, Message: "A pipeline execution is already in progress.",
		HTTPStatus: http.StatusConflict, Retryable: true,
	}
}

// SyncInProgress rejects a catalog sync while one is already pending.
func SyncInProgress() *AppError {
	return &AppError{
		Code: ErrCodeConflict, Message: "A catalog sync is already pending.",
		HTTPStatus: http.StatusConflict, Retryable: true,
	}
}

// LoginInProgress rejects a login while one is already pending.
func LoginInProgress() *AppError {
	return &AppError{
		Code: ErrCodeConflict, Message: "A login request is already pending.",
		HTTPStatus: http.StatusConflict, Retryable: true,
	}
}

// FetchInProgress rejects a profile fetch while one is already pending.
func FetchInProgress() *AppError {
	return &AppError{
		Code: ErrCodeConflict, Message: "A profile request is already pending.",
		HTTPStatus: http.StatusConflict, Retryable: true,
	}
}

// --- Resources ---

// NotFound creates a new AppError for a missing resource.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("The requested %s was not found.", resource),
		HTTPStatus: http.StatusNotFound, Retryable: false, Details: details,
	}
}

// Internal creates a new AppError for an unexpected failure.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.",
		HTTPStatus: http.StatusInternalServerError, Retryable: false, Cause: cause,
	}
}
