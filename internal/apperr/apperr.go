// Package apperr carries the error kinds that cross component boundaries:
// request handlers branch on them, workers log them and move on.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNotFound   Kind = "not_found"
	KindValidation Kind = "validation"
	// KindTransient is a store failure. The enclosing transaction was rolled
	// back and nothing was committed.
	KindTransient Kind = "transient"
	KindInternal  Kind = "internal"
)

// Error is a kinded error. Op names the operation that failed
// (e.g. "vote.submit").
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind, so errors.Is(err, apperr.ErrNotFound)
// works regardless of Op and cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Err == nil
}

// Sentinels for errors.Is.
var (
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrValidation = &Error{Kind: KindValidation}
	ErrTransient  = &Error{Kind: KindTransient}
)

func NotFound(op string, err error) error {
	return &Error{Kind: KindNotFound, Op: op, Err: err}
}

func Validation(op, msg string) error {
	return &Error{Kind: KindValidation, Op: op, Err: errors.New(msg)}
}

// Transient wraps a store failure. A nil err stays nil, and an error that
// already carries a kind keeps it.
func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Kind: KindTransient, Op: op, Err: err}
}

// KindOf reports the kind of err, or KindInternal for unkinded errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}
