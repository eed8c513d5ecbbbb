// Package quivererrors provides structured error handling for Quiver with
// error categorization, rich context, and stack traces.
//
// Every fallible frame mutation and conversion in Quiver returns an error
// of this package (or a wrapped engine/driver error). Errors carry a Type
// drawn from a closed category set so callers can dispatch on the failure
// kind instead of matching message strings:
//
//	if quivererrors.IsType(err, quivererrors.ErrorTypeNotFound) {
//	    // column does not exist, create it
//	}
//
// Wrapped errors preserve their cause and work with errors.Is/errors.As.
package quivererrors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorType categorizes an error for handling strategies and monitoring.
type ErrorType string

const (
	// ErrorTypeOutOfBounds represents index or range violations.
	ErrorTypeOutOfBounds ErrorType = "out_of_bounds"
	// ErrorTypeRowsNotMatch represents a column length that violates the
	// frame's rectangularity invariant.
	ErrorTypeRowsNotMatch ErrorType = "rows_not_match"
	// ErrorTypeColsNotMatch represents a schema shape mismatch during merge.
	ErrorTypeColsNotMatch ErrorType = "cols_not_match"
	// ErrorTypeTypeMismatch represents a column whose runtime storage type
	// disagrees with the type an operation expects.
	ErrorTypeTypeMismatch ErrorType = "type_mismatch"
	// ErrorTypeNotFound represents an unknown column or key.
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeAlreadyExists represents a duplicate column or key.
	ErrorTypeAlreadyExists ErrorType = "already_exists"
	// ErrorTypeUnimplemented represents a valid but unsupported logical
	// type or input shape.
	ErrorTypeUnimplemented ErrorType = "unimplemented"
	// ErrorTypeValidation represents naming or formatting violations.
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConnection represents database connection errors.
	ErrorTypeConnection ErrorType = "connection"
	// ErrorTypeQuery represents query execution errors.
	ErrorTypeQuery ErrorType = "query"
	// ErrorTypeData represents data decoding/encoding errors.
	ErrorTypeData ErrorType = "data"
	// ErrorTypeInternal represents internal errors.
	ErrorTypeInternal ErrorType = "internal"
)

// Error is a structured error with a category, optional cause, key-value
// details, and the call stack captured at creation.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame is a single frame of the call stack at error creation.
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail attaches a key-value detail to the error. Chainable.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new error with the given type and message, capturing the
// call stack at the point of creation.
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf creates a new error with a formatted message.
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with a category and message, preserving the
// original as the cause. If the error is already a structured Error its
// stack is kept. Returns nil for a nil input.
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	var existing *Error
	if errors.As(err, &existing) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existing.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// OutOfBounds reports an index or range violation.
func OutOfBounds() *Error {
	return &Error{
		Type:    ErrorTypeOutOfBounds,
		Message: "index out of bounds",
		Stack:   captureStack(2),
	}
}

// RowsNotMatch reports a rectangularity violation.
func RowsNotMatch() *Error {
	return &Error{
		Type:    ErrorTypeRowsNotMatch,
		Message: "row count does not match",
		Stack:   captureStack(2),
	}
}

// TypeMismatch reports a storage/expectation type disagreement.
func TypeMismatch() *Error {
	return &Error{
		Type:    ErrorTypeTypeMismatch,
		Message: "type does not match",
		Stack:   captureStack(2),
	}
}

// NotFound reports an unknown column or key.
func NotFound(name string) *Error {
	e := &Error{
		Type:    ErrorTypeNotFound,
		Message: fmt.Sprintf("not found: %s", name),
		Stack:   captureStack(2),
	}
	return e.WithDetail("name", name)
}

// AlreadyExists reports a duplicate column or key.
func AlreadyExists(name string) *Error {
	e := &Error{
		Type:    ErrorTypeAlreadyExists,
		Message: fmt.Sprintf("already exists: %s", name),
		Stack:   captureStack(2),
	}
	return e.WithDetail("name", name)
}

// Unimplemented reports a valid but unsupported type or input shape.
func Unimplemented(what string) *Error {
	return &Error{
		Type:    ErrorTypeUnimplemented,
		Message: fmt.Sprintf("not implemented: %s", what),
		Stack:   captureStack(2),
	}
}

// IsType reports whether err is a structured Error of the given type.
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

// IsRetryable reports whether the error is worth retrying. Only
// connection-level failures qualify; every structural or typing error is
// deterministic and retrying cannot fix it.
func IsRetryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == ErrorTypeConnection
}

// captureStack records the current call stack, skipping the given number
// of frames from the top.
func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
