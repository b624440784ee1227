package mockfeed

import (
	"github.com/hugolhafner/go-changefeed/feed"
)

// RecordBuilder provides a fluent interface for building feed records.
type RecordBuilder struct {
	record feed.Record
}

// Record creates a new RecordBuilder with the given key and value.
func Record(key, value string) *RecordBuilder {
	return &RecordBuilder{
		record: feed.Record{
			Key:   []byte(key),
			Value: []byte(value),
		},
	}
}

// WithMetadata adds a metadata entry to the record.
func (b *RecordBuilder) WithMetadata(key, value string) *RecordBuilder {
	if b.record.Metadata == nil {
		b.record.Metadata = make(map[string]string)
	}
	b.record.Metadata[key] = value
	return b
}

// Build returns the constructed record.
func (b *RecordBuilder) Build() feed.Record {
	return b.record
}

// Item creates a record with just a value.
func Item(value string) feed.Record {
	return feed.Record{Value: []byte(value)}
}

// Items creates records from values.
func Items(values ...string) []feed.Record {
	records := make([]feed.Record, 0, len(values))
	for _, v := range values {
		records = append(records, Item(v))
	}
	return records
}

// PageOf creates a page carrying the given continuation token and one record
// per value.
func PageOf(token string, values ...string) feed.Page {
	return feed.Page{
		Items:        Items(values...),
		Continuation: token,
	}
}

// EmptyPage creates a page with no records that advances the continuation
// token.
func EmptyPage(token string) feed.Page {
	return feed.Page{Continuation: token}
}
