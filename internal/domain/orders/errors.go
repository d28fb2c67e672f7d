package orders

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeInvalidTransition  Code = "invalid_transition"
	CodeStaleState         Code = "stale_state"
	CodeBudgetExhausted    Code = "budget_exhausted"
	CodeNotFound           Code = "not_found"
	CodeUploadFailed       Code = "upload_failed"
	CodeNotificationFailed Code = "notification_failed"
	CodeValidation         Code = "validation"
	CodeForbidden          Code = "forbidden"
	CodeConfirmedVersion   Code = "confirmed_version"
)

// Error is the typed failure returned by every workflow operation.
// Two errors match under errors.Is when their codes are equal.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrInvalidTransition  = &Error{Code: CodeInvalidTransition, Message: "action not allowed in current status"}
	ErrStaleState         = &Error{Code: CodeStaleState, Message: "order was modified concurrently, refetch and retry"}
	ErrBudgetExhausted    = &Error{Code: CodeBudgetExhausted, Message: "revision limit reached"}
	ErrNotFound           = &Error{Code: CodeNotFound, Message: "not found"}
	ErrUploadFailed       = &Error{Code: CodeUploadFailed, Message: "file upload failed"}
	ErrNotificationFailed = &Error{Code: CodeNotificationFailed, Message: "notification failed"}
	ErrValidation         = &Error{Code: CodeValidation, Message: "invalid input"}
	ErrForbidden          = &Error{Code: CodeForbidden, Message: "not permitted"}
	ErrConfirmedVersion   = &Error{Code: CodeConfirmedVersion, Message: "the confirmed version cannot be deleted"}
)

// Errorf returns an error of the same kind as base with a specific message.
func Errorf(base *Error, format string, args ...any) error {
	return &Error{Code: base.Code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to an error of the same kind as base.
func Wrap(base *Error, err error) error {
	return &Error{Code: base.Code, Message: base.Message, Err: err}
}

// Retryable reports whether the caller may refetch and try again.
func Retryable(err error) bool {
	return errors.Is(err, ErrStaleState)
}

// CodeOf extracts the code of a typed error, or "" for anything else.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
