package denorm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode standardizes engine failure semantics.
type ErrorCode string

const (
	// CodeConfig marks descriptor/registration mistakes. These are
	// programming errors and surface at construction time, never mid-event.
	CodeConfig ErrorCode = "config"
	// CodeUnresolvedParent marks a dangling parent reference. The engine
	// treats it as a no-op; the code exists for store implementations.
	CodeUnresolvedParent ErrorCode = "unresolved_parent"
	// CodeNotFound marks a missing record on a path where absence is an error.
	CodeNotFound ErrorCode = "not_found"
	// CodeStore marks a persistence failure; the triggering mutation is
	// considered not fully applied.
	CodeStore ErrorCode = "store"
	// CodeRetryable marks transient store failures (timeouts, serialization).
	CodeRetryable ErrorCode = "retryable"
	// CodeInternal marks everything else.
	CodeInternal ErrorCode = "internal"
)

// Error is the canonical engine error wrapper.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	op := strings.TrimSpace(e.Op)
	msg := strings.TrimSpace(e.Message)
	switch {
	case op != "" && msg != "":
		return fmt.Sprintf("%s: %s (%s)", op, msg, e.Code)
	case op != "":
		return fmt.Sprintf("%s (%s)", op, e.Code)
	case msg != "":
		return fmt.Sprintf("%s (%s)", msg, e.Code)
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds an engine error with explicit code + operation.
func NewError(code ErrorCode, op, message string, cause error) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// Wrap annotates an existing error with engine error semantics. Errors that
// already carry a code pass through unchanged.
func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	var coded *Error
	if errors.As(err, &coded) {
		return err
	}
	return NewError(code, op, err.Error(), err)
}

// IsCode checks whether err (or a wrapped err) carries the given code.
func IsCode(err error, code ErrorCode) bool {
	var coded *Error
	if !errors.As(err, &coded) {
		return false
	}
	return coded.Code == code
}

// CodeOf extracts the engine error code when available.
func CodeOf(err error) ErrorCode {
	var coded *Error
	if !errors.As(err, &coded) {
		return ""
	}
	return coded.Code
}
