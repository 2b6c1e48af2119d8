package haarface

import (
	"fmt"
)

// ErrorKind classifies the failures a detection call can end with.
type ErrorKind int

// The error kinds returned by the detector. None of them is retried internally.
const (
	InvalidImage ErrorKind = iota + 1
	InvalidCascade
	DecodeFailure
	InvalidConfig
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidImage:
		return "invalid image"
	case InvalidCascade:
		return "invalid cascade"
	case DecodeFailure:
		return "decode failure"
	case InvalidConfig:
		return "invalid config"
	}
	return "unknown error"
}

// Error is the error type returned by every fallible operation of the package.
type Error struct {
	Kind ErrorKind
	Err  error
}

// Sentinel values usable with errors.Is. They match any *Error of the same kind.
var (
	ErrInvalidImage   = &Error{Kind: InvalidImage}
	ErrInvalidCascade = &Error{Kind: InvalidCascade}
	ErrDecodeFailure  = &Error{Kind: DecodeFailure}
	ErrInvalidConfig  = &Error{Kind: InvalidConfig}
)

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}
