// Package apperr defines the error taxonomy shared by every component of the order engine.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for callers that need to map it to a response.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindInternal   Kind = "internal"
)

// Error carries a Kind plus a machine readable code.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

// Kind sentinels. errors.Is(err, apperr.Conflict) matches any conflict error.
var (
	Validation = &Error{Kind: KindValidation}
	NotFound   = &Error{Kind: KindNotFound}
	Conflict   = &Error{Kind: KindConflict}
	Internal   = &Error{Kind: KindInternal}
)

// New constructs a typed error without an underlying cause.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap attaches a kind and code to an underlying error.
func Wrap(kind Kind, code string, err error) *Error {
	return &Error{Kind: kind, Code: code, Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" {
		msg = e.Code
	}
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes the underlying error, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches by code when the target carries one, otherwise by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	if t.Code != "" {
		return e.Code == t.Code
	}
	return t.Kind == e.Kind
}

// KindOf reports the kind of the first typed error in err's chain.
// Untyped errors are treated as internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	return KindInternal
}

// CodeOf reports the code of the first typed error in err's chain.
func CodeOf(err error) string {
	var typed *Error
	if errors.As(err, &typed) && typed.Code != "" {
		return typed.Code
	}
	return string(KindOf(err))
}
