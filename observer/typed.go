package observer

import (
	"context"
	"fmt"

	"github.com/hugolhafner/go-changefeed/feed"
	"github.com/hugolhafner/go-changefeed/serde"
)

// TypedHandler consumes a decoded batch.
type TypedHandler[T any] func(ctx context.Context, oc Context, values []T) error

// Typed returns an Observer that decodes each record's value with d before
// handing the whole batch to handler. A decode failure fails the batch. The
// collection identifier is passed to the deserialiser as the topic.
func Typed[T any](d serde.Deserialiser[T], handler TypedHandler[T]) Observer {
	return Func(func(ctx context.Context, oc Context, records []feed.Record) error {
		values := make([]T, 0, len(records))
		for i, r := range records {
			v, err := d.Deserialise(oc.Collection, r.Value)
			if err != nil {
				return fmt.Errorf("decode record %d: %w", i, err)
			}
			values = append(values, v)
		}

		return handler(ctx, oc, values)
	})
}
