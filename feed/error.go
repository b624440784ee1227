package feed

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a fetch failure. The kind describes the failure's shape
// only; whether a cancellation-shaped failure actually ends processing is
// decided by the caller from its own cancellation signal.
type Kind int

const (
	KindTransient Kind = iota
	KindCancelled
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindCancelled:
		return "cancelled"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind  Kind
	Cause error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return "feed: " + e.Kind.String()
	}
	return fmt.Sprintf("feed: %s: %v", e.Kind, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func Transient(cause error) error {
	return &Error{Kind: KindTransient, Cause: cause}
}

func Cancelled(cause error) error {
	return &Error{Kind: KindCancelled, Cause: cause}
}

func Fatal(cause error) error {
	return &Error{Kind: KindFatal, Cause: cause}
}

func AsError(err error) (*Error, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe, true
	}

	return nil, false
}

// KindOf classifies an arbitrary fetch error. Errors carrying an explicit
// kind keep it; plain context cancellation and deadline errors are
// cancellation-shaped; everything else is transient.
func KindOf(err error) Kind {
	if fe, ok := AsError(err); ok {
		return fe.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCancelled
	}
	return KindTransient
}
