// Package errs classifies recommendation failures so callers can tell a user
// mistake from a broken model, bad reference data, or an unavailable upstream.
package errs

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	// KindInput is a missing or invalid image, gender or usage.
	KindInput
	// KindInference is a classifier or segmentation failure.
	KindInference
	// KindDataIntegrity is an unmapped category, malformed identifier or broken dataset.
	KindDataIntegrity
	// KindExternal is a color-naming, storage or persistence failure.
	KindExternal
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindInference:
		return "inference"
	case KindDataIntegrity:
		return "data_integrity"
	case KindExternal:
		return "external"
	default:
		return "unknown"
	}
}

// Error carries the failure kind and the operation that produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err was classified with kind k.
func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

func newf(k Kind, op, format string, args ...any) error {
	return &Error{Kind: k, Op: op, Err: fmt.Errorf(format, args...)}
}

func wrap(k Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: k, Op: op, Err: err}
}

func Input(op, format string, args ...any) error { return newf(KindInput, op, format, args...) }

func DataIntegrity(op, format string, args ...any) error {
	return newf(KindDataIntegrity, op, format, args...)
}

func WrapInput(op string, err error) error         { return wrap(KindInput, op, err) }
func WrapInference(op string, err error) error     { return wrap(KindInference, op, err) }
func WrapDataIntegrity(op string, err error) error { return wrap(KindDataIntegrity, op, err) }
func WrapExternal(op string, err error) error      { return wrap(KindExternal, op, err) }
