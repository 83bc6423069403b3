// Package errors defines the error taxonomy shared by the dispatch core,
// the storage layer and the feature modules.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors. Check them with errors.Is.
var (
	// ErrNotFound indicates a requested record does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates the user supplied unusable arguments.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTimeout indicates a dispatch exceeded its time budget.
	ErrTimeout = errors.New("operation timed out")

	// ErrRateLimitExceeded indicates the acting user is being throttled.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrUnauthorized indicates the caller lacks a required privilege.
	ErrUnauthorized = errors.New("not authorized")

	// ErrMissingFlowState indicates a multi-step action found no prior step.
	ErrMissingFlowState = errors.New("missing flow state")

	// ErrNoMatch indicates text matched no registered command. It is never
	// surfaced to users.
	ErrNoMatch = errors.New("no matching command")

	// ErrSealed indicates a registration attempt after the table was frozen.
	ErrSealed = errors.New("registry is sealed")
)

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsInvalidInput reports whether err is or wraps ErrInvalidInput.
func IsInvalidInput(err error) bool { return errors.Is(err, ErrInvalidInput) }

// IsTimeout reports whether err is or wraps ErrTimeout.
func IsTimeout(err error) bool { return errors.Is(err, ErrTimeout) }

// IsRateLimitExceeded reports whether err is or wraps ErrRateLimitExceeded.
func IsRateLimitExceeded(err error) bool { return errors.Is(err, ErrRateLimitExceeded) }

// IsMissingFlowState reports whether err is or wraps ErrMissingFlowState.
func IsMissingFlowState(err error) bool { return errors.Is(err, ErrMissingFlowState) }

// DuplicateRegistrationError is returned at startup when a pattern or action
// identifier is registered twice. The process must not start with it.
type DuplicateRegistrationError struct {
	Kind     string // "pattern", "action", "prefix" or "event"
	Key      string
	Existing string // help text or handler name of the first registration
}

func (e *DuplicateRegistrationError) Error() string {
	if e.Existing != "" {
		return fmt.Sprintf("duplicate %s registration %q (already registered for %s)", e.Kind, e.Key, e.Existing)
	}
	return fmt.Sprintf("duplicate %s registration %q", e.Kind, e.Key)
}

// NewDuplicateRegistrationError creates a DuplicateRegistrationError.
func NewDuplicateRegistrationError(kind, key, existing string) *DuplicateRegistrationError {
	return &DuplicateRegistrationError{Kind: kind, Key: key, Existing: existing}
}

// IsDuplicateRegistration reports whether err is a DuplicateRegistrationError.
func IsDuplicateRegistration(err error) bool {
	var dup *DuplicateRegistrationError
	return errors.As(err, &dup)
}

// HandlerError records a failure raised by a command, action or event
// handler. Panics are converted into HandlerError with Panic set.
type HandlerError struct {
	Command string
	Cause   error
	Panic   any
	Stack   []byte
}

func (e *HandlerError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("handler %s panicked: %v", e.Command, e.Panic)
	}
	return fmt.Sprintf("handler %s failed: %v", e.Command, e.Cause)
}

func (e *HandlerError) Unwrap() error {
	return e.Cause
}

// StoreError is a failed unit of work against the backing store. The
// transaction has already been rolled back when it is returned.
type StoreError struct {
	Op    string
	Cause error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Cause)
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}

// NewStoreError wraps err as a StoreError. Returns nil if err is nil.
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Cause: err}
}

// IsStoreError reports whether err came out of the backing store.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

// ValidationError represents input validation failures.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is(err, ErrInvalidInput) match validation failures.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// Classify maps err to a short label used in metrics and logs.
func Classify(err error) string {
	var he *HandlerError
	switch {
	case err == nil:
		return "none"
	case errors.As(err, &he) && he.Panic != nil:
		return "panic"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case IsStoreError(err):
		return "store"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrMissingFlowState):
		return "missing_flow_state"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "handler"
	}
}
