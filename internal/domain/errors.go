package domain

import (
	"errors"
	"fmt"
	"time"
)

// EngineError represents a standardized error surfaced to callers of the engine.
type EngineError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// Error implements the error interface
func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeInvalidDefinition = "INVALID_DEFINITION"
	ErrCodeConfiguration     = "CONFIGURATION_ERROR"
	ErrCodePrecondition      = "PRECONDITION_VIOLATION"
	ErrCodeStorage           = "STORAGE_ERROR"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// Configuration errors. Patient-data gaps are never errors; they evaluate
// to UNDETERMINED.
var (
	ErrNotFound          = errors.New("not found")
	ErrUnknownRule       = errors.New("unknown rule")
	ErrDuplicateRule     = errors.New("rule already registered")
	ErrEmptyComposite    = errors.New("composite criterion requires at least one child")
	ErrNilFunction       = errors.New("evaluation function is nil")
	ErrIncompatibleUnit  = errors.New("unit cannot be converted for measurement")
	ErrMissingParameter  = errors.New("missing rule parameter")
	ErrInvalidDefinition = errors.New("invalid criterion definition")
)

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// PreconditionError signals a programmer or configuration error detected
// while evaluating, such as a rule bound to direct bilirubin receiving a
// total bilirubin value. Evaluators panic with it; the service layer
// recovers it and reports it as an error for the affected patient only.
type PreconditionError struct {
	Component string
	Message   string
}

// Error implements the error interface
func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition violated in %s: %s", e.Component, e.Message)
}

// NewEngineError creates a new EngineError with timestamp
func NewEngineError(code, message, details, requestID string) *EngineError {
	return &EngineError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// Preconditionf panics with a PreconditionError.
func Preconditionf(component, format string, args ...any) {
	panic(&PreconditionError{Component: component, Message: fmt.Sprintf(format, args...)})
}
