// Package apperr defines the error taxonomy shared by services and handlers.
// Every user-visible failure is an *Error carrying a Kind and a translatable code.
package apperr

import (
	"errors"
	"fmt"

	"github.com/diewo77/minimarket/validation"
)

// Kind classifies a failure.
type Kind uint8

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindInsufficientStock
	KindForbidden
	KindInvalidTransition
	KindConflict
	KindInvalidCredentials
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindInsufficientStock:
		return "insufficient_stock"
	case KindForbidden:
		return "forbidden"
	case KindInvalidTransition:
		return "invalid_transition"
	case KindConflict:
		return "conflict"
	case KindInvalidCredentials:
		return "invalid_credentials"
	default:
		return "internal"
	}
}

// Error is a classified failure. Code is a stable machine code (translated by i18n);
// Message carries the detail a user needs, such as the offending product name.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Fields  validation.Violations
	Err     error
}

func (e *Error) Error() string {
	msg := e.Code
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches by kind, and by code when the target carries one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// Sentinels for errors.Is checks by kind.
var (
	ErrValidation         = &Error{Kind: KindValidation}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrInsufficientStock  = &Error{Kind: KindInsufficientStock}
	ErrForbidden          = &Error{Kind: KindForbidden}
	ErrInvalidTransition  = &Error{Kind: KindInvalidTransition}
	ErrConflict           = &Error{Kind: KindConflict}
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials}
)

func Validation(code string, fields validation.Violations) *Error {
	return &Error{Kind: KindValidation, Code: code, Fields: fields}
}

// Invalid builds a validation error from a non-empty violation set.
func Invalid(fields validation.Violations) *Error {
	return Validation("validation_failed", fields)
}

func NotFound(code string) *Error {
	return &Error{Kind: KindNotFound, Code: code}
}

func InsufficientStock(productName string) *Error {
	return &Error{Kind: KindInsufficientStock, Code: "insufficient_stock", Message: productName}
}

func Forbidden(code string) *Error {
	return &Error{Kind: KindForbidden, Code: code}
}

func InvalidTransition(code, from, to string) *Error {
	e := &Error{Kind: KindInvalidTransition, Code: code}
	if from != "" && to != "" {
		e.Message = fmt.Sprintf("%s -> %s", from, to)
	}
	return e
}

func Conflict(code, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message}
}

func InvalidCredentials() *Error {
	return &Error{Kind: KindInvalidCredentials, Code: "invalid_credentials"}
}

// Internal wraps an unexpected failure so it is never mistaken for a user error.
func Internal(op string, err error) *Error {
	return &Error{Kind: KindInternal, Code: "internal_error", Message: op, Err: err}
}

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// As extracts the *Error from err, wrapping foreign errors as internal.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal("", err)
}
