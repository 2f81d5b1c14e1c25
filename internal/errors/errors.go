// Package errors defines the failure taxonomy shared by the loader, the index
// adapter and the benchmark pipelines. Every error is fatal to the run that
// produced it; the types only exist so that callers and tests can tell the
// categories apart.
package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
)

// ErrorType identifies the category of a failure.
type ErrorType string

const (
	ErrorTypeOpen            ErrorType = "open"
	ErrorTypeStat            ErrorType = "stat"
	ErrorTypeSizeMismatch    ErrorType = "size_mismatch"
	ErrorTypeMap             ErrorType = "map"
	ErrorTypeIndexLoad       ErrorType = "index_load"
	ErrorTypeIndex           ErrorType = "index"
	ErrorTypeInvalidArgument ErrorType = "invalid_argument"
)

// Sentinels for errors.Is. They match any StructuredError of the same type.
var (
	ErrOpen            = &StructuredError{Type: ErrorTypeOpen}
	ErrStat            = &StructuredError{Type: ErrorTypeStat}
	ErrSizeMismatch    = &StructuredError{Type: ErrorTypeSizeMismatch}
	ErrMap             = &StructuredError{Type: ErrorTypeMap}
	ErrIndexLoad       = &StructuredError{Type: ErrorTypeIndexLoad}
	ErrIndex           = &StructuredError{Type: ErrorTypeIndex}
	ErrInvalidArgument = &StructuredError{Type: ErrorTypeInvalidArgument}
)

// StructuredError provides rich error context
type StructuredError struct {
	Type      ErrorType
	Operation string
	Path      string
	Message   string
	Cause     error
	Context   map[string]interface{}
	Stack     []uintptr
}

// Error implements the error interface
func (e *StructuredError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Type, e.Operation)
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *StructuredError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a StructuredError of the same type.
func (e *StructuredError) Is(target error) bool {
	t, ok := target.(*StructuredError)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// New creates a new structured error
func New(errType ErrorType, operation, path, message string) *StructuredError {
	return &StructuredError{
		Type:      errType,
		Operation: operation,
		Path:      path,
		Message:   message,
		Stack:     captureStack(),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, operation, path, message string) *StructuredError {
	if err == nil {
		return nil
	}
	return &StructuredError{
		Type:      errType,
		Operation: operation,
		Path:      path,
		Message:   message,
		Cause:     err,
		Stack:     captureStack(),
	}
}

// WithContext adds context information to an error
func (e *StructuredError) WithContext(key string, value interface{}) *StructuredError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// TypeOf returns the type of the first StructuredError in err's chain, or ""
// when there is none.
func TypeOf(err error) ErrorType {
	var se *StructuredError
	if stderrors.As(err, &se) {
		return se.Type
	}
	return ""
}

func captureStack() []uintptr {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	return pcs[:n]
}

// NewSizeMismatch reports a byte length that is not a multiple of the record
// width, or paired datasets whose record counts differ.
func NewSizeMismatch(operation, path, message string) *StructuredError {
	return New(ErrorTypeSizeMismatch, operation, path, message)
}

// NewInvalidArgument reports a configuration value outside its domain.
func NewInvalidArgument(operation, message string) *StructuredError {
	return New(ErrorTypeInvalidArgument, operation, "", message)
}

// WrapOpen wraps a failure to open a file.
func WrapOpen(err error, operation, path string) *StructuredError {
	return Wrap(err, ErrorTypeOpen, operation, path, "cannot open file")
}

// WrapStat wraps a failure to determine a file's size.
func WrapStat(err error, operation, path string) *StructuredError {
	return Wrap(err, ErrorTypeStat, operation, path, "cannot determine file size")
}

// WrapMap wraps a failure to establish a memory mapping.
func WrapMap(err error, operation, path string) *StructuredError {
	return Wrap(err, ErrorTypeMap, operation, path, "mmap failed")
}

// WrapIndexLoad wraps a failure to read a persisted index.
func WrapIndexLoad(err error, operation, path string) *StructuredError {
	return Wrap(err, ErrorTypeIndexLoad, operation, path, "cannot load index")
}

// WrapIndex wraps a rejection from the index (insert or search).
func WrapIndex(err error, operation, message string) *StructuredError {
	return Wrap(err, ErrorTypeIndex, operation, "", message)
}
