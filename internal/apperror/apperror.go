// Package apperror defines the domain error taxonomy shared by the catalog,
// booking and ledger services.  Handlers translate the Kind into an HTTP
// status; the Field names the offending input when there is one.
package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies a domain failure.
type Kind int

const (
	KindValidation Kind = iota + 1 // bad input shape, missing or out-of-range field
	KindPolicy                     // role not authorized for the action or object
	KindConflict                   // time overlap, payment above balance, illegal transition
	KindNotFound                   // referenced entity absent
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindPolicy:
		return "policy"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	}
	return "unknown"
}

// Error is a structured rejection.  Err optionally carries the underlying
// cause so that callers can still match sentinels with errors.Is.
type Error struct {
	Kind    Kind
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Validation reports bad input on field.
func Validation(field, msg string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: msg}
}

// Policy reports an authorization refusal.
func Policy(msg string) *Error {
	return &Error{Kind: KindPolicy, Message: msg}
}

// Conflict reports a write rejected because of existing state.
func Conflict(field, msg string) *Error {
	return &Error{Kind: KindConflict, Field: field, Message: msg}
}

// NotFound reports an absent entity.
func NotFound(field, msg string) *Error {
	return &Error{Kind: KindNotFound, Field: field, Message: msg}
}

// Wrap attaches a cause to e and returns it.
func (e *Error) Wrap(cause error) *Error {
	e.Err = cause
	return e
}

// KindOf returns the kind of the first *Error in err's chain, or zero.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return 0
}

// Is reports whether err carries a domain error of the given kind.
func Is(err error, kind Kind) bool { return KindOf(err) == kind }
