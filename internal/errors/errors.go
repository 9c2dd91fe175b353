// Package errors provides the error definitions and classification helpers
// used across the tracker. It defines sentinel errors, typed errors carrying
// request and storage context, and helpers that decide how an error should be
// surfaced.
//
// # Error Types
//
// Domain errors:
//   - InvalidRequestError: a graph mutation was rejected by an invariant check
//   - PersistenceError: a storage backend failed to load or save tracker state
//
// Semantic errors:
//   - NotFoundError: a request or record does not exist
//   - ValidationError: invalid input from the command line or configuration
//
// # Usage
//
//	err := errors.NewInvalidRequestError("requester must match the source's requestee", errors.ErrInvalidRequest).
//		WithRequestID(4).WithField("source")
//
//	if errors.Is(err, errors.ErrInvalidRequest) { ... }
//
//	var perr *errors.PersistenceError
//	if errors.As(err, &perr) { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions so callers only import this package.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Graph-related sentinel errors
var (
	// ErrInvalidRequest indicates that a mutation would violate a graph invariant.
	ErrInvalidRequest = New("invalid request")
	// ErrCycle indicates that a link would make a request its own ancestor.
	ErrCycle = New("request would depend on itself")
	// ErrNotFound indicates that a request id is not live in the graph.
	ErrNotFound = New("request not found")
)

// Storage-related sentinel errors
var (
	// ErrPersistence indicates that tracker state could not be loaded or saved.
	ErrPersistence = New("persistence failed")
	// ErrUnknownBackend indicates a storage backend name that is not registered.
	ErrUnknownBackend = New("unknown storage backend")
)

// General sentinel errors
var (
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = New("operation canceled")
)

// -----------------------------------------------------------------------------
// Base Error
// -----------------------------------------------------------------------------

// TrackerError is implemented by every typed error in this package.
type TrackerError interface {
	error
	Unwrap() error
	Is(target error) bool
	Severity() Severity
	IsRetryable() bool
	IsUserFacing() bool
}

type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *baseError) Unwrap() error {
	return e.cause
}

func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// formatWithContext renders "<kind> [k=v, ...]: message: cause".
func formatWithContext(kind string, parts []string, message string, cause error) string {
	prefix := kind
	if len(parts) > 0 {
		prefix = fmt.Sprintf("%s [%s]", kind, strings.Join(parts, ", "))
	}
	if cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, message, cause)
	}
	return fmt.Sprintf("%s: %s", prefix, message)
}

// -----------------------------------------------------------------------------
// Domain Errors
// -----------------------------------------------------------------------------

// InvalidRequestError reports a graph mutation that was rejected before any
// state changed.
//
// Example:
//
//	err := errors.NewInvalidRequestError("branch requester must match requestee", errors.ErrInvalidRequest)
//	err = err.WithRequestID(3).WithRelated(7).WithField("branch")
//	fmt.Println(err) // "invalid request [request=3, related=7, field=branch]: branch requester must match requestee: invalid request"
type InvalidRequestError struct {
	baseError
	RequestID int32
	Related   int32
	Field     string
}

// NewInvalidRequestError creates a new InvalidRequestError.
func NewInvalidRequestError(message string, cause error) *InvalidRequestError {
	return &InvalidRequestError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityWarning,
			userFacing: true,
		},
	}
}

// WithRequestID records the request being mutated.
func (e *InvalidRequestError) WithRequestID(id int32) *InvalidRequestError {
	e.RequestID = id
	return e
}

// WithRelated records the other request involved (source or branch).
func (e *InvalidRequestError) WithRelated(id int32) *InvalidRequestError {
	e.Related = id
	return e
}

// WithField records which input was rejected.
func (e *InvalidRequestError) WithField(field string) *InvalidRequestError {
	e.Field = field
	return e
}

// Error returns the formatted error message.
func (e *InvalidRequestError) Error() string {
	var parts []string
	if e.RequestID != 0 {
		parts = append(parts, fmt.Sprintf("request=%d", e.RequestID))
	}
	if e.Related != 0 {
		parts = append(parts, fmt.Sprintf("related=%d", e.Related))
	}
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	return formatWithContext("invalid request", parts, e.message, e.cause)
}

// Is checks if this error matches the target. Every InvalidRequestError
// matches ErrInvalidRequest, including the cycle variant.
func (e *InvalidRequestError) Is(target error) bool {
	if _, ok := target.(*InvalidRequestError); ok {
		return true
	}
	if target == ErrInvalidRequest {
		return true
	}
	return e.baseError.Is(target)
}

// PersistenceError reports a storage failure. The in-memory operation that
// triggered the save has already completed when this is returned.
//
// Example:
//
//	err := errors.NewPersistenceError("save roots", cause).WithBackend("file")
type PersistenceError struct {
	baseError
	Operation string
	Backend   string
}

// NewPersistenceError creates a new PersistenceError. Persistence errors are
// retryable: the next successful save writes the full state.
func NewPersistenceError(operation string, cause error) *PersistenceError {
	return &PersistenceError{
		baseError: baseError{
			message:    operation,
			cause:      cause,
			severity:   SeverityError,
			retryable:  true,
			userFacing: true,
		},
		Operation: operation,
	}
}

// WithBackend records the storage backend name.
func (e *PersistenceError) WithBackend(name string) *PersistenceError {
	e.Backend = name
	return e
}

// WithSeverity sets the error severity.
func (e *PersistenceError) WithSeverity(s Severity) *PersistenceError {
	e.severity = s
	return e
}

// Error returns the formatted error message.
func (e *PersistenceError) Error() string {
	var parts []string
	if e.Backend != "" {
		parts = append(parts, fmt.Sprintf("backend=%s", e.Backend))
	}
	return formatWithContext("persistence error", parts, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *PersistenceError) Is(target error) bool {
	if _, ok := target.(*PersistenceError); ok {
		return true
	}
	if target == ErrPersistence {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError represents a resource that could not be found.
//
// Example:
//
//	err := errors.NewNotFoundError("request", "42")
//	fmt.Println(err) // "request '42' not found"
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:    fmt.Sprintf("%s '%s' not found", resourceType, resourceID),
			severity:   SeverityWarning,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds a cause to the error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s '%s' not found: %v", e.ResourceType, e.ResourceID, e.cause)
	}
	return fmt.Sprintf("%s '%s' not found", e.ResourceType, e.ResourceID)
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	if target == ErrNotFound {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("unknown team").WithField("team").WithValue("Legal")
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			userFacing: true,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}
	return formatWithContext("validation error", parts, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidInput) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var te TrackerError
	if As(err, &te) {
		return te.IsRetryable()
	}
	return false
}

// IsUserFacing returns true if the error message is safe to display to end users.
//
// Example:
//
//	if errors.IsUserFacing(err) {
//	    fmt.Fprintln(os.Stderr, err)
//	} else {
//	    fmt.Fprintln(os.Stderr, "an internal error occurred")
//	}
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	var te TrackerError
	if As(err, &te) {
		return te.IsUserFacing()
	}
	return false
}

// IsPersistence reports whether err is a storage failure. Callers treat these
// as non-fatal: the graph operation itself succeeded.
func IsPersistence(err error) bool {
	if err == nil {
		return false
	}
	var pe *PersistenceError
	return As(err, &pe) || Is(err, ErrPersistence)
}

// IsInvalidRequest reports whether err was produced by a rejected mutation.
func IsInvalidRequest(err error) bool {
	if err == nil {
		return false
	}
	var ire *InvalidRequestError
	return As(err, &ire) || Is(err, ErrInvalidRequest)
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement TrackerError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}
	var te TrackerError
	if As(err, &te) {
		return te.Severity()
	}
	return SeverityError
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
