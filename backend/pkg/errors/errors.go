package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeGraph represents graph database errors
	ErrorTypeGraph ErrorType = "graph"
	// ErrorTypePhoto represents photo side store errors
	ErrorTypePhoto ErrorType = "photo"
	// ErrorTypeValidation represents invalid input records
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeContext represents context cancellation/timeout errors
	ErrorTypeContext ErrorType = "context"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// ErrorType returns the category of the error. Types embedding *BaseError
// inherit it, which is what IsErrorType relies on.
func (e *BaseError) ErrorType() ErrorType {
	return e.Type
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Person Errors

// ErrMissingID is returned when an operation needs a persisted person
var ErrMissingID = NewBaseError(ErrorTypeValidation, "person has no id", nil)

// ErrPersonNotFound is returned when no person node carries the given id
type ErrPersonNotFound struct {
	*BaseError
	PersonID string
}

func NewPersonNotFound(personID string) *ErrPersonNotFound {
	return &ErrPersonNotFound{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("person not found: %s", personID), nil),
		PersonID:  personID,
	}
}

// ErrDuplicateName is returned when another person already uses a name
type ErrDuplicateName struct {
	*BaseError
	Name string
}

func NewDuplicateName(name string) *ErrDuplicateName {
	return &ErrDuplicateName{
		BaseError: NewBaseError(ErrorTypeValidation, fmt.Sprintf("name already in use: %s", name), nil),
		Name:      name,
	}
}

// ErrInvalidPerson is returned when a person record fails validation
type ErrInvalidPerson struct {
	*BaseError
	Field  string
	Reason string
}

func NewInvalidPerson(field, reason string) *ErrInvalidPerson {
	return &ErrInvalidPerson{
		BaseError: NewBaseError(ErrorTypeValidation, fmt.Sprintf("invalid person: %s %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// Graph Errors

// ErrGraphConnectionFailed is returned when Neo4j connection fails
type ErrGraphConnectionFailed struct {
	*BaseError
	URI string
}

func NewGraphConnectionFailed(uri string, err error) *ErrGraphConnectionFailed {
	return &ErrGraphConnectionFailed{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("failed to connect to Neo4j: %s", uri), err),
		URI:       uri,
	}
}

// ErrGraphQueryFailed is returned when a graph query fails
type ErrGraphQueryFailed struct {
	*BaseError
	Operation string
}

func NewGraphQueryFailed(operation string, err error) *ErrGraphQueryFailed {
	return &ErrGraphQueryFailed{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("query failed: %s", operation), err),
		Operation: operation,
	}
}

// Photo Errors

// ErrPhotoStoreFailed is returned when the photo side store rejects an operation
type ErrPhotoStoreFailed struct {
	*BaseError
	Operation string
	PersonID  string
}

func NewPhotoStoreFailed(operation, personID string, err error) *ErrPhotoStoreFailed {
	msg := fmt.Sprintf("photo store %s failed", operation)
	if personID != "" {
		msg = fmt.Sprintf("photo store %s failed for %s", operation, personID)
	}
	return &ErrPhotoStoreFailed{
		BaseError: NewBaseError(ErrorTypePhoto, msg, err),
		Operation: operation,
		PersonID:  personID,
	}
}

// Context Errors

// ErrContextTimeout is returned when context times out
type ErrContextTimeout struct {
	*BaseError
	Operation string
	Timeout   time.Duration
}

func NewContextTimeout(operation string, timeout time.Duration, err error) *ErrContextTimeout {
	return &ErrContextTimeout{
		BaseError: NewBaseError(ErrorTypeContext, fmt.Sprintf("context timeout: %s (timeout: %v)", operation, timeout), err),
		Operation: operation,
		Timeout:   timeout,
	}
}

// Config Errors

// ErrConfigValidationFailed is returned when configuration validation fails
type ErrConfigValidationFailed struct {
	*BaseError
	Field  string
	Reason string
}

func NewConfigValidationFailed(field, reason string) *ErrConfigValidationFailed {
	return &ErrConfigValidationFailed{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("config validation failed: %s - %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// ErrConfigMissingRequired is returned when a required config value is missing
type ErrConfigMissingRequired struct {
	*BaseError
	Field string
}

func NewConfigMissingRequired(field string) *ErrConfigMissingRequired {
	return &ErrConfigMissingRequired{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("missing required config: %s", field), nil),
		Field:     field,
	}
}

// Helper functions

type typedError interface {
	error
	ErrorType() ErrorType
}

// IsErrorType checks if any error in the chain is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	for err != nil {
		if te, ok := err.(typedError); ok && te.ErrorType() == errType {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// IsNotFound reports whether err carries an ErrPersonNotFound
func IsNotFound(err error) bool {
	var nf *ErrPersonNotFound
	return stderrors.As(err, &nf)
}

// IsValidation reports whether err is a caller mistake rather than a store failure
func IsValidation(err error) bool {
	return IsErrorType(err, ErrorTypeValidation)
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	// Context errors are not retryable
	if IsErrorType(err, ErrorTypeContext) || IsValidation(err) || IsNotFound(err) {
		return false
	}
	// Graph connection errors are retryable
	var connErr *ErrGraphConnectionFailed
	if stderrors.As(err, &connErr) {
		return true
	}
	return IsErrorType(err, ErrorTypeGraph)
}
