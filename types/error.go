package types

import "fmt"

// ErrorCode represents a unified error code across the service.
type ErrorCode string

// Pipeline error codes
const (
	// ErrDecode indicates a malformed or undecodable input payload
	// (base64 audio that does not decode, empty audio buffer).
	ErrDecode ErrorCode = "DECODE_ERROR"

	// ErrValidation indicates a schema or field constraint violation at the
	// request boundary (unsupported lang, missing required field).
	ErrValidation ErrorCode = "VALIDATION_ERROR"

	// ErrProtocolViolation indicates an unexpected message shape on the
	// streaming connection (e.g. a text frame where audio was expected).
	ErrProtocolViolation ErrorCode = "PROTOCOL_VIOLATION"

	// ErrBackendFailure indicates a transcription, generation, or synthesis
	// backend error.
	ErrBackendFailure ErrorCode = "BACKEND_FAILURE"

	// ErrTimeout indicates a backend call exceeded its deadline. Treated as
	// a recoverable cycle failure on the streaming path.
	ErrTimeout ErrorCode = "TIMEOUT"
)

// Infrastructure error codes
const (
	ErrSessionStore       ErrorCode = "SESSION_STORE"
	ErrUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrRateLimited        ErrorCode = "RATE_LIMITED"
	ErrServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrInternalError      ErrorCode = "INTERNAL_ERROR"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Stage      string    `json:"stage,omitempty"` // asr, llm, tts
	TraceID    string    `json:"trace_id,omitempty"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithStage records which pipeline stage produced the error.
func (e *Error) WithStage(stage string) *Error {
	e.Stage = stage
	return e
}

// WithTraceID attaches the trace id so failures stay correlatable with
// earlier successful events in the same flow.
func (e *Error) WithTraceID(traceID string) *Error {
	e.TraceID = traceID
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}
