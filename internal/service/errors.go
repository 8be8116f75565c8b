package service

import (
	"errors"
	"fmt"
)

// ErrorKind is the stable, machine-readable class of a service error.
type ErrorKind string

const (
	KindAuthentication ErrorKind = "AUTHENTICATION"
	KindAuthorization  ErrorKind = "AUTHORIZATION"
	KindInvalidState   ErrorKind = "INVALID_STATE"
	KindValidation     ErrorKind = "VALIDATION"
	KindConsensus      ErrorKind = "CONSENSUS"
	KindConflict       ErrorKind = "CONFLICT"
	KindNotFound       ErrorKind = "NOT_FOUND"
	KindLedger         ErrorKind = "LEDGER"
	KindInternal       ErrorKind = "INTERNAL"
)

// Error carries a kind and a human-readable message. Err, when set, is the
// underlying cause and is not shown to callers.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// Kind sentinels for errors.Is checks.
var (
	ErrAuthentication = &Error{Kind: KindAuthentication}
	ErrAuthorization  = &Error{Kind: KindAuthorization}
	ErrInvalidState   = &Error{Kind: KindInvalidState}
	ErrValidation     = &Error{Kind: KindValidation}
	ErrConsensus      = &Error{Kind: KindConsensus}
	ErrConflict       = &Error{Kind: KindConflict}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrLedger         = &Error{Kind: KindLedger}
	ErrInternal       = &Error{Kind: KindInternal}
)

func newError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func authenticationError(format string, args ...interface{}) *Error {
	return newError(KindAuthentication, format, args...)
}

func authorizationError(format string, args ...interface{}) *Error {
	return newError(KindAuthorization, format, args...)
}

func invalidStateError(format string, args ...interface{}) *Error {
	return newError(KindInvalidState, format, args...)
}

func validationError(format string, args ...interface{}) *Error {
	return newError(KindValidation, format, args...)
}

func consensusError(format string, args ...interface{}) *Error {
	return newError(KindConsensus, format, args...)
}

func conflictError(format string, args ...interface{}) *Error {
	return newError(KindConflict, format, args...)
}

func notFoundError(format string, args ...interface{}) *Error {
	return newError(KindNotFound, format, args...)
}

func ledgerError(format string, args ...interface{}) *Error {
	return newError(KindLedger, format, args...)
}

// internalError hides infrastructure causes behind a generic message.
func internalError(err error, msg string) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
