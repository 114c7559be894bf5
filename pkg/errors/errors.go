// Package errors provides structured error types for routegraph.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI, the HTTP API and the import pipeline
//   - Machine-readable error codes for programmatic handling
//   - Operator-facing validation failures that name the offending field and value
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input or business-rule validation failures
//   - NOT_FOUND / UNKNOWN_*: Referenced entity does not exist
//   - STORE / NETWORK: Persistence and transport failures
//   - INTERNAL_*, PRECONDITION: Unexpected internal errors and caller bugs
//
// # Usage
//
//	err := errors.Invalid(errors.ErrCodeInvalidEdge, "overlap_percent", 1.5,
//	    "percent complete must be within [0,1]")
//	if errors.Is(err, errors.ErrCodeInvalidEdge) {
//	    // report err.Field / err.Value to the operator
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeStore, origErr, "load snapshot %s", key)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput          Code = "INVALID_INPUT"
	ErrCodeInvalidFormat         Code = "INVALID_FORMAT"
	ErrCodeInvalidValidityWindow Code = "INVALID_VALIDITY_WINDOW"
	ErrCodeInvalidEdge           Code = "INVALID_EDGE"
	ErrCodeInvalidOverlap        Code = "INVALID_OVERLAP"
	ErrCodeInvalidConfig         Code = "INVALID_CONFIG"

	// Graph structure errors
	ErrCodeUnknownOperation Code = "UNKNOWN_OPERATION"
	ErrCodeDuplicateRouting Code = "DUPLICATE_ROUTING"
	ErrCodeDuplicateNode    Code = "DUPLICATE_NODE"
	ErrCodeSelfLoop         Code = "SELF_LOOP"
	ErrCodeCycle            Code = "CYCLE"

	// Resource not found errors
	ErrCodeNotFound        Code = "NOT_FOUND"
	ErrCodeRoutingNotFound Code = "ROUTING_NOT_FOUND"
	ErrCodeFileNotFound    Code = "FILE_NOT_FOUND"

	// Persistence errors
	ErrCodeStore             Code = "STORE_ERROR"
	ErrCodeNetwork           Code = "NETWORK_ERROR"
	ErrCodeUnsupportedSchema Code = "UNSUPPORTED_SCHEMA"
	ErrCodeCorruptSnapshot   Code = "CORRUPT_SNAPSHOT"

	// Internal errors
	ErrCodeInternal     Code = "INTERNAL_ERROR"
	ErrCodePrecondition Code = "PRECONDITION"
	ErrCodeUnsupported  Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
//
// Validation failures also carry the offending Field and Value so callers can
// report them to an operator without parsing the message.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Field   string // Offending field (validation errors only)
	Value   any    // Offending value (validation errors only)
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s (%s=%v)", msg, e.Field, e.Value)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Invalid creates a validation Error naming the offending field and value.
func Invalid(code Code, field string, value any, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Field:   field,
		Value:   value,
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsValidation reports whether err is a recoverable data or business-rule
// violation, as opposed to a persistence failure or a caller bug.
func IsValidation(err error) bool {
	switch GetCode(err) {
	case ErrCodeInvalidInput, ErrCodeInvalidFormat, ErrCodeInvalidValidityWindow,
		ErrCodeInvalidEdge, ErrCodeInvalidOverlap, ErrCodeInvalidConfig,
		ErrCodeUnknownOperation, ErrCodeDuplicateRouting, ErrCodeDuplicateNode,
		ErrCodeSelfLoop, ErrCodeCycle:
		return true
	}
	return false
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Field != "" {
			return fmt.Sprintf("%s (%s=%v)", e.Message, e.Field, e.Value)
		}
		return e.Message
	}
	return err.Error()
}

// Precondition panics with an ErrCodePrecondition error. It is used for
// caller bugs that must fail fast rather than surface as data errors.
func Precondition(format string, args ...any) {
	panic(New(ErrCodePrecondition, format, args...))
}
