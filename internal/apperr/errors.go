// Package apperr defines the coded errors shared by the ledger, the study
// log, the feedback client and the HTTP layer.
package apperr

import "errors"

// Code is a machine-readable error code.
type Code string

const (
	CodeUnknown         Code = "UNKNOWN"
	CodeValidation      Code = "VALIDATION_ERROR"
	CodePermission      Code = "PERMISSION_DENIED"
	CodeTransient       Code = "TRANSIENT_FAILURE"
	CodeInvalidPayload  Code = "INVALID_PAYLOAD"
	CodeStateInvariant  Code = "STATE_INVARIANT_VIOLATION"
	CodeBusy            Code = "BUSY"
	CodeNotFound        Code = "NOT_FOUND"
	CodeUnauthenticated Code = "UNAUTHORIZED"
)

// Sentinels for errors.Is checks; matching is by code only.
var (
	ErrValidation      = &Error{Code: CodeValidation}
	ErrPermission      = &Error{Code: CodePermission}
	ErrTransient       = &Error{Code: CodeTransient}
	ErrInvalidPayload  = &Error{Code: CodeInvalidPayload}
	ErrStateInvariant  = &Error{Code: CodeStateInvariant}
	ErrBusy            = &Error{Code: CodeBusy}
	ErrNotFound        = &Error{Code: CodeNotFound}
	ErrUnauthenticated = &Error{Code: CodeUnauthenticated}
)

// Error is a domain error carrying a code and an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}
