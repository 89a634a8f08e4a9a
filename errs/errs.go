// Package errs carries the error taxonomy shared by the game engines.
package errs

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindDecode
	KindOverAllocation
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindDecode:
		return "decode"
	case KindOverAllocation:
		return "over_allocation"
	case KindConflict:
		return "conflict"
	}
	return "unknown"
}

// Error is a kinded error. Callers match on Kind via the Is* helpers.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func Validationf(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func Decodef(err error, format string, args ...interface{}) error {
	return &Error{Kind: KindDecode, Msg: fmt.Sprintf(format, args...), Err: err}
}

func OverAllocationf(format string, args ...interface{}) error {
	return &Error{Kind: KindOverAllocation, Msg: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...interface{}) error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

func kindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func IsValidation(err error) bool     { return kindOf(err) == KindValidation }
func IsNotFound(err error) bool       { return kindOf(err) == KindNotFound }
func IsDecode(err error) bool         { return kindOf(err) == KindDecode }
func IsOverAllocation(err error) bool { return kindOf(err) == KindOverAllocation }
func IsConflict(err error) bool       { return kindOf(err) == KindConflict }
