package backend

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Error Codes
// --------------------------------------------------------------------------

type Code uint64

const (
	CodeBackend              Code = iota // 0: Underlying backend I/O failure.
	CodeUnsupportedScheme                // 1: No adapter registered for the URI scheme.
	CodeConfiguration                    // 2: Missing or malformed connection parameters.
	CodeKeyNotFound                      // 3: Key absent (or expired).
	CodeSerialization                    // 4: Unknown/corrupt mode tag or encode/decode failure.
	CodeLockTimeout                      // 5: Lock not acquired within the timeout.
	CodeUnsupportedOperation             // 6: Operation not supported by the adapter.
)

func (c Code) String() string {
	switch c {
	case CodeBackend:
		return "Backend"
	case CodeUnsupportedScheme:
		return "UnsupportedScheme"
	case CodeConfiguration:
		return "Configuration"
	case CodeKeyNotFound:
		return "KeyNotFound"
	case CodeSerialization:
		return "Serialization"
	case CodeLockTimeout:
		return "LockTimeout"
	case CodeUnsupportedOperation:
		return "UnsupportedOperation"
	default:
		return "Unknown"
	}
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is the error type used across the storage core. It wraps a
// taxonomy code, a message and an optional underlying cause.
type Error struct {
	Code Code   // The taxonomy code
	Msg  string // The error message
	Err  error  // The wrapped cause (may be nil)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("StoreError (code %s): %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("StoreError (code %s): %s", e.Code, e.Msg)
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code. This makes
// errors.Is(err, backend.ErrKeyNotFound) work for any wrapped instance.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Code == other.Code
	}
	return false
}

// NewError creates a new Error with the given code and message.
func NewError(code Code, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

// NewErrorf creates a new Error with a formatted message.
func NewErrorf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// WrapError creates a new Error wrapping an underlying cause.
func WrapError(code Code, msg string, err error) *Error {
	return &Error{Code: code, Msg: msg, Err: err}
}

// --------------------------------------------------------------------------
// Sentinel Errors
// --------------------------------------------------------------------------

// Sentinel instances for use with errors.Is. Adapters and the store
// facade return freshly constructed errors carrying context; these
// exist for matching only.
var (
	ErrBackend           = NewError(CodeBackend, "backend failure")
	ErrUnsupportedScheme = NewError(CodeUnsupportedScheme, "unsupported scheme")
	ErrConfiguration     = NewError(CodeConfiguration, "invalid configuration")
	ErrKeyNotFound       = NewError(CodeKeyNotFound, "key does not exist")
	ErrSerialization     = NewError(CodeSerialization, "serialization failure")
	ErrLockTimeout       = NewError(CodeLockTimeout, "lock timeout")
)

// IsNotFound reports whether err indicates an absent (or expired) key.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrKeyNotFound)
}
