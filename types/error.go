package types

import "fmt"

// ErrorCode represents a unified error code across the platform.
type ErrorCode string

// User-correctable errors: surfaced verbatim to the agent/user and
// retryable after the user acts.
const (
	ErrNoPromptAvailable  ErrorCode = "NO_PROMPT_AVAILABLE"
	ErrMissingSourceImage ErrorCode = "MISSING_SOURCE_IMAGE"
	ErrNodeNotFound       ErrorCode = "NODE_NOT_FOUND"
	ErrNotAGenerationNode ErrorCode = "NOT_A_GENERATION_NODE"
	ErrUnknownAgent       ErrorCode = "UNKNOWN_AGENT"
)

// Transient infrastructure errors: retried automatically within bounds,
// then surfaced.
const (
	ErrSyncUnavailable   ErrorCode = "SYNC_UNAVAILABLE"
	ErrGenerationTimeout ErrorCode = "GENERATION_TIMEOUT"
	ErrCheckerFailure    ErrorCode = "CHECKER_FAILURE"
)

// Fatal/structural errors: abort the current operation, do not retry.
const (
	ErrCollisionExhausted ErrorCode = "COLLISION_EXHAUSTED"
	ErrMalformedNode      ErrorCode = "MALFORMED_NODE"
	ErrDispatchFailed     ErrorCode = "DISPATCH_FAILED"
	ErrInterruptRequested ErrorCode = "INTERRUPT_REQUESTED"
	ErrInvalidTransition  ErrorCode = "INVALID_TRANSITION"
	ErrBackendFailure     ErrorCode = "BACKEND_FAILURE"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	NodeID    string    `json:"node_id,omitempty"`
	Cause     error     `json:"-"`
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

// Errorf creates a new Error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithNodeID attaches the canvas node the error refers to.
func (e *Error) WithNodeID(nodeID string) *Error {
	e.NodeID = nodeID
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

// IsUserCorrectable reports whether the error is one the calling agent (or
// the human behind it) can fix by changing the canvas, rather than an
// infrastructure fault. The tool layer relies on this to phrase remedies.
func IsUserCorrectable(err error) bool {
	switch GetErrorCode(err) {
	case ErrNoPromptAvailable, ErrMissingSourceImage, ErrNodeNotFound,
		ErrNotAGenerationNode, ErrUnknownAgent:
		return true
	}
	return false
}
