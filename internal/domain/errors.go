package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures returned to API clients.
type ErrorKind int

const (
	ErrorKindInternal ErrorKind = iota
	ErrorKindMissingField
	ErrorKindInvalidFormat
	ErrorKindWeakPassword
	ErrorKindPasswordMismatch
	ErrorKindDuplicateEmail
	ErrorKindDuplicateUsername
	ErrorKindUnknownExternalIdentity
	ErrorKindInvalidRange
	ErrorKindPersistenceFailure
	ErrorKindInvalidCredentials
	ErrorKindUnauthorized
)

var kindNames = map[ErrorKind]string{
	ErrorKindInternal:                "internal",
	ErrorKindMissingField:            "missing_field",
	ErrorKindInvalidFormat:           "invalid_format",
	ErrorKindWeakPassword:            "weak_password",
	ErrorKindPasswordMismatch:        "password_mismatch",
	ErrorKindDuplicateEmail:          "duplicate_email",
	ErrorKindDuplicateUsername:       "duplicate_username",
	ErrorKindUnknownExternalIdentity: "unknown_external_identity",
	ErrorKindInvalidRange:            "invalid_range",
	ErrorKindPersistenceFailure:      "persistence_failure",
	ErrorKindInvalidCredentials:      "invalid_credentials",
	ErrorKindUnauthorized:            "unauthorized",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Validation reports whether the kind is caused by client input rather
// than by the server or its store.
func (k ErrorKind) Validation() bool {
	switch k {
	case ErrorKindInternal, ErrorKindPersistenceFailure:
		return false
	}
	return true
}

// Error is a classified failure whose Message is safe to show to clients.
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

// NewError builds an Error with a formatted client message.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError builds an Error carrying the underlying cause.
func WrapError(kind ErrorKind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of err, or ErrorKindInternal when err is not an *Error.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ErrorKindInternal
}
