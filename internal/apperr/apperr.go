// Package apperr defines the typed error taxonomy returned across the ledger boundary.
// Every domain failure carries a Kind so callers can branch without string matching.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a domain error.
type Kind int

const (
	Internal Kind = iota
	Validation
	NotFound
	AlreadyUsed
	InsufficientBalance
	Authentication
	ConcurrencyConflict
)

var kindNames = map[Kind]string{
	Internal:            "internal",
	Validation:          "validation",
	NotFound:            "not_found",
	AlreadyUsed:         "already_used",
	InsufficientBalance: "insufficient_balance",
	Authentication:      "authentication",
	ConcurrencyConflict: "concurrency_conflict",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Error is a classified domain error. Two errors with the same Code match under errors.Is,
// so sentinels keep matching after Wrap or Withf add context.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

// New creates a classified error.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Wrap returns a copy of e carrying cause.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.Err = cause
	return &cp
}

// Withf returns a copy of e with a more specific message.
func (e *Error) Withf(format string, args ...any) *Error {
	cp := *e
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

// KindOf returns the Kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Validationf builds an ad-hoc validation error.
func Validationf(format string, args ...any) *Error {
	return &Error{Kind: Validation, Code: "validation_failed", Message: fmt.Sprintf(format, args...)}
}

// Generic errors shared by every layer.
var (
	ErrNotFound            = New(NotFound, "not_found", "resource not found")
	ErrConcurrencyConflict = New(ConcurrencyConflict, "concurrency_conflict", "concurrent update in progress, retry later")
	ErrInvalidTransition   = New(AlreadyUsed, "invalid_transition", "state transition not allowed")
)
