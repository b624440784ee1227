// Package observer defines the consumer side of the change feed: the
// callback invoked with each dispatched batch, and the per-batch context
// describing where the batch came from.
package observer

import (
	"context"

	"github.com/hugolhafner/go-changefeed/feed"
)

// Context describes the source of a dispatched batch. It is constructed
// fresh per batch and valid for the duration of the ProcessChanges call.
type Context struct {
	Collection string
	Partition  string
}

// Observer consumes batches of feed records for one partition. Delivery is
// at least once: a batch dispatched but not yet checkpointed when the host
// dies is redelivered on the next run, so implementations must tolerate
// batches they have seen before.
type Observer interface {
	ProcessChanges(ctx context.Context, oc Context, records []feed.Record) error
}

// Func adapts a function to the Observer interface.
type Func func(ctx context.Context, oc Context, records []feed.Record) error

func (f Func) ProcessChanges(ctx context.Context, oc Context, records []feed.Record) error {
	return f(ctx, oc, records)
}
