// Package checkpoint defines how continuation positions are durably
// recorded, and when.
package checkpoint

import (
	"context"
	"errors"
	"fmt"

	"github.com/hugolhafner/go-changefeed/observer"
)

// Checkpointer persists a partition's continuation position. A position is
// checkpointed only after the batch that produced it was fully observed, so
// restarting from the stored position redelivers at most the unobserved
// suffix of the feed.
type Checkpointer interface {
	Checkpoint(ctx context.Context, oc observer.Context, token string) error
}

// Loader reads back the stored position for a partition, for hosts seeding
// a processor's starting continuation. Implementations return ("", nil) when
// no checkpoint exists.
type Loader interface {
	Load(ctx context.Context, collection, partition string) (string, error)
}

// Error wraps a failed checkpoint write.
type Error struct {
	Partition string
	Token     string
	Cause     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("checkpoint partition %q at %q: %v", e.Partition, e.Token, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func NewError(oc observer.Context, token string, cause error) error {
	return &Error{Partition: oc.Partition, Token: token, Cause: cause}
}

func AsError(err error) (*Error, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce, true
	}

	return nil, false
}
