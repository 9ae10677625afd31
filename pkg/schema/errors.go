package schema

import "fmt"

// Error codes for structured error reporting.
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeConflict      = "CONFLICT"
	ErrCodeCycleDetected = "CYCLE_DETECTED"
	ErrCodeExecution     = "EXECUTION_ERROR"
	ErrCodeStore         = "STORE_ERROR"
)

// TwineError is the structured error type for pipeline orchestration
// failures: bad definitions, missing pipelines, store problems. Failures
// inside the transform engine itself are data (value.Error), never errors.
type TwineError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	NodeID  string         `json:"node_id,omitempty"`
	Cause   error          `json:"-"`
}

func (e *TwineError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("[%s] node %s: %s", e.Code, e.NodeID, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *TwineError) Unwrap() error {
	return e.Cause
}

// NewError creates a new TwineError.
func NewError(code, message string) *TwineError {
	return &TwineError{Code: code, Message: message}
}

// NewErrorf creates a new TwineError with a formatted message.
func NewErrorf(code, format string, args ...any) *TwineError {
	return &TwineError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithNode attaches a node ID to the error.
func (e *TwineError) WithNode(nodeID string) *TwineError {
	e.NodeID = nodeID
	return e
}

// WithCause attaches an underlying cause.
func (e *TwineError) WithCause(err error) *TwineError {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *TwineError) WithDetails(details map[string]any) *TwineError {
	e.Details = details
	return e
}
