// Package feed defines the contracts a change-feed source must satisfy: a
// query client issuing paged fetches against one partition of a collection,
// the pages and records those fetches return, and the error kinds a fetch can
// fail with.
package feed

import (
	"context"
)

// Record is a single mutation from the feed. The payload is opaque to the
// processing loop; it is counted and forwarded, never inspected. Key and
// Metadata carry optional store-provided extras (source offsets, timestamps,
// message keys) for observers that want them.
type Record struct {
	Key      []byte
	Value    []byte
	Metadata map[string]string
}

// Copy returns a deep copy of the record.
func (r Record) Copy() Record {
	keyCopy := make([]byte, len(r.Key))
	copy(keyCopy, r.Key)

	valueCopy := make([]byte, len(r.Value))
	copy(valueCopy, r.Value)

	var metaCopy map[string]string
	if r.Metadata != nil {
		metaCopy = make(map[string]string, len(r.Metadata))
		for k, v := range r.Metadata {
			metaCopy[k] = v
		}
	}

	return Record{
		Key:      keyCopy,
		Value:    valueCopy,
		Metadata: metaCopy,
	}
}

// Page is the result of one fetch: the records in feed order plus the
// continuation token marking the position after them. An empty page still
// carries a valid continuation.
type Page struct {
	Items        []Record
	Continuation string
}

func (p Page) Count() int {
	return len(p.Items)
}

// QueryOptions scope a query to one partition and position.
type QueryOptions struct {
	Partition    string
	Continuation string
	MaxItemCount int
}

// Query is a positioned cursor over one partition's feed. Implementations
// need not be safe for concurrent use; the processing loop issues one
// FetchNext at a time.
type Query interface {
	// HasMoreResults reports whether the query expects further pages. Once
	// false the caller is expected to back off and open a fresh query.
	// Sources with no natural end (a log tail) report true forever.
	HasMoreResults() bool

	// FetchNext returns the next page. Failures carry an error Kind; the
	// caller decides retry versus shutdown from the kind and its own
	// cancellation signal, never from the error shape alone.
	FetchNext(ctx context.Context) (Page, error)

	// Close releases any resources held by the query.
	Close() error
}

// QueryClient creates queries against a collection's change feed.
// Implementations may be shared across partitions; the queries they return
// are not.
type QueryClient interface {
	CreateQuery(collection string, opts QueryOptions) (Query, error)
}
