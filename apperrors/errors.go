// Package apperrors defines the error kinds shared by the store, service and
// HTTP layers.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for propagation and HTTP mapping.
type Kind string

const (
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindValidation Kind = "validation"
	KindUpstream   Kind = "upstream"
	KindInternal   Kind = "internal"
)

// Error is a classified application error.
type Error struct {
	Kind    Kind
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

func NewNotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func NewConflict(format string, args ...any) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func NewValidation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NewUpstream marks a failure of an external collaborator (AI service,
// search provider).
func NewUpstream(err error, format string, args ...any) error {
	return &Error{Kind: KindUpstream, Message: fmt.Sprintf(format, args...), Err: err}
}

// Wrap annotates err with a message. A classified err keeps its kind;
// anything else becomes KindInternal.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindOf(err), Message: message, Err: err}
}

// KindOf returns the kind of the outermost classified error in the chain.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func IsNotFound(err error) bool   { return err != nil && KindOf(err) == KindNotFound }
func IsConflict(err error) bool   { return err != nil && KindOf(err) == KindConflict }
func IsValidation(err error) bool { return err != nil && KindOf(err) == KindValidation }
func IsUpstream(err error) bool   { return err != nil && KindOf(err) == KindUpstream }
