package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the categories of failure a checkpoint operation can report
type ErrorType string

const (
	ErrorTypeNotFound        ErrorType = "not_found"
	ErrorTypeCorrupt         ErrorType = "corrupt"
	ErrorTypeInvalidArgument ErrorType = "invalid_argument"
	ErrorTypeIO              ErrorType = "io"
)

// Sentinels for errors.Is. Any *Error matches the sentinel of its Type.
var (
	ErrNotFound        = &Error{Type: ErrorTypeNotFound}
	ErrCorrupt         = &Error{Type: ErrorTypeCorrupt}
	ErrInvalidArgument = &Error{Type: ErrorTypeInvalidArgument}
	ErrIO              = &Error{Type: ErrorTypeIO}
)

// Error is a typed checkpoint error
type Error struct {
	Type ErrorType
	// Op is the operation that failed, e.g. "read" or "write"
	Op string
	// ID is the checkpoint identifier involved, if any
	ID  string
	Err error
}

func (e *Error) Error() string {
	msg := string(e.Type)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.ID != "" {
		msg += " (" + e.ID + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same Type
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// New creates a typed error
func New(t ErrorType, op, id string, err error) *Error {
	return &Error{Type: t, Op: op, ID: id, Err: err}
}

// NotFound reports a missing checkpoint
func NotFound(op, id string) *Error {
	return New(ErrorTypeNotFound, op, id, nil)
}

// Corrupt reports a checkpoint that exists but cannot be decoded
func Corrupt(op, id string, err error) *Error {
	return New(ErrorTypeCorrupt, op, id, err)
}

// InvalidArgument reports a caller error
func InvalidArgument(op, format string, args ...interface{}) *Error {
	return New(ErrorTypeInvalidArgument, op, "", fmt.Errorf(format, args...))
}

// IO reports a filesystem failure
func IO(op, id string, err error) *Error {
	return New(ErrorTypeIO, op, id, err)
}

// TypeOf returns the ErrorType of err, or "" when err carries no *Error
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ""
}

// IsRetryable checks if an error type may succeed when the caller tries again.
// Nothing in this module retries on its own.
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeIO:
		return true
	case ErrorTypeNotFound, ErrorTypeCorrupt, ErrorTypeInvalidArgument:
		return false
	default:
		return false
	}
}
