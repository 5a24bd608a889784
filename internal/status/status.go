package status

import (
	"errors"
	"fmt"
)

// Code classifies an error the same way the public API reports it.
type Code string

const (
	Unauthenticated    Code = "unauthenticated"
	PermissionDenied   Code = "permission-denied"
	InvalidArgument    Code = "invalid-argument"
	NotFound           Code = "not-found"
	FailedPrecondition Code = "failed-precondition"
	AlreadyExists      Code = "already-exists"
	Internal           Code = "internal"
)

type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E builds a new classified error.
func E(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap keeps the original error for operator-side logging while the caller
// only ever sees the code and message.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf extracts the code from err, defaulting to Internal for anything
// that was not classified at the point it happened.
func CodeOf(err error) Code {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return Internal
}

// MessageOf returns the caller-safe message for err. Unclassified errors get
// a generic message so internal detail never leaks to the client.
func MessageOf(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Message
	}
	return "something went wrong"
}
