// Package kafkafeed adapts a Kafka topic to the feed and checkpoint
// contracts: the collection is the topic, each topic partition is a feed
// partition, continuation tokens are the next offset to consume encoded base
// 10, and positions are durably recorded as consumer group offsets.
package kafkafeed

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/hugolhafner/go-changefeed/feed"
	"github.com/hugolhafner/go-changefeed/logger"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

var (
	_ feed.QueryClient = (*Client)(nil)
	_ feed.Query       = (*query)(nil)
)

// Metadata keys set on every record this feed emits. Record headers are
// carried alongside under their own keys.
const (
	MetadataOffset    = "kafka.offset"
	MetadataTimestamp = "kafka.timestamp"
)

type ClientConfig struct {
	BootstrapServers []string
	ClientID         string

	// PollTimeout bounds how long a single fetch blocks waiting for records.
	// It is what paces a caught-up partition; an expired wait surfaces as an
	// empty page, not an error.
	PollTimeout time.Duration

	// StartAtEnd makes queries with no continuation begin at the partition's
	// high watermark instead of its first record.
	StartAtEnd bool

	Logger logger.Logger
}

func defaultClientConfig() ClientConfig {
	return ClientConfig{
		BootstrapServers: []string{"localhost:9092"},
		ClientID:         "changefeed",
		PollTimeout:      3 * time.Second,
		Logger:           logger.NewNoopLogger(),
	}
}

// Client creates partition-pinned feed queries over a Kafka topic.
type Client struct {
	config ClientConfig
	logger logger.Logger
}

func NewClient(opts ...ClientOption) (*Client, error) {
	cfg := defaultClientConfig()
	for _, opt := range opts {
		opt.applyClient(&cfg)
	}

	if len(cfg.BootstrapServers) == 0 {
		return nil, errors.New("bootstrap servers must not be empty")
	}

	return &Client{
		config: cfg,
		logger: cfg.Logger.With("component", "kafkafeed"),
	}, nil
}

// CreateQuery dials a consumer pinned to the topic partition, positioned at
// the continuation offset. The query owns the connection; Close releases it.
func (c *Client) CreateQuery(collection string, opts feed.QueryOptions) (feed.Query, error) {
	if collection == "" {
		return nil, errors.New("collection must not be empty")
	}
	if opts.MaxItemCount <= 0 {
		return nil, fmt.Errorf("max item count must be positive, got %d", opts.MaxItemCount)
	}

	partition, err := parsePartition(opts.Partition)
	if err != nil {
		return nil, err
	}

	start := kgo.NewOffset().AtStart()
	if c.config.StartAtEnd {
		start = kgo.NewOffset().AtEnd()
	}
	if opts.Continuation != "" {
		offset, err := parseContinuation(opts.Continuation)
		if err != nil {
			return nil, err
		}
		start = kgo.NewOffset().At(offset)
	}

	cl, err := kgo.NewClient(
		kgo.SeedBrokers(c.config.BootstrapServers...),
		kgo.ClientID(c.config.ClientID),
		kgo.ConsumePartitions(map[string]map[int32]kgo.Offset{
			collection: {partition: start},
		}),
		kgo.WithLogger(newKgoLogger(c.logger)),
	)
	if err != nil {
		return nil, fmt.Errorf("create kgo client: %w", err)
	}

	c.logger.Debug(
		"Feed query created",
		"topic", collection,
		"partition", opts.Partition,
		"continuation", opts.Continuation,
	)

	return &query{
		client:       cl,
		config:       c.config,
		maxItems:     opts.MaxItemCount,
		continuation: opts.Continuation,
	}, nil
}

// query reads one pinned partition. Not safe for concurrent use; the
// processing loop issues at most one fetch at a time.
type query struct {
	client       *kgo.Client
	config       ClientConfig
	maxItems     int
	continuation string
	closeOnce    sync.Once
}

// HasMoreResults always reports true: a Kafka partition is an unbounded
// feed, and the blocking poll inside FetchNext provides the idle pacing.
func (q *query) HasMoreResults() bool {
	return true
}

func (q *query) FetchNext(ctx context.Context) (feed.Page, error) {
	pollCtx, cancel := context.WithTimeout(ctx, q.config.PollTimeout)
	defer cancel()

	fetches := q.client.PollRecords(pollCtx, q.maxItems)
	if errs := fetches.Errors(); len(errs) > 0 {
		for _, fe := range errs {
			if errors.Is(fe.Err, context.DeadlineExceeded) || errors.Is(fe.Err, context.Canceled) {
				// the poll wait expiring is a normal empty read; the caller's
				// own signal triggering is not
				if ctx.Err() != nil {
					return feed.Page{}, feed.Cancelled(ctx.Err())
				}
				continue
			}
			if errors.Is(fe.Err, kgo.ErrClientClosed) {
				return feed.Page{}, feed.Fatal(fmt.Errorf("poll: %w", fe.Err))
			}

			var ke *kerr.Error
			if errors.As(fe.Err, &ke) && !ke.Retriable {
				return feed.Page{}, feed.Fatal(fmt.Errorf("poll %s/%d: %w", fe.Topic, fe.Partition, fe.Err))
			}
			return feed.Page{}, feed.Transient(fmt.Errorf("poll %s/%d: %w", fe.Topic, fe.Partition, fe.Err))
		}
	}

	records := fetches.Records()
	if len(records) == 0 {
		return feed.Page{Continuation: q.continuation}, nil
	}

	items := make([]feed.Record, len(records))
	for i, r := range records {
		items[i] = convertRecord(r)
	}

	q.continuation = formatContinuation(records[len(records)-1].Offset + 1)

	return feed.Page{Items: items, Continuation: q.continuation}, nil
}

func (q *query) Close() error {
	q.closeOnce.Do(q.client.Close)
	return nil
}

func convertRecord(r *kgo.Record) feed.Record {
	md := make(map[string]string, len(r.Headers)+2)
	for _, h := range r.Headers {
		md[h.Key] = string(h.Value)
	}
	md[MetadataOffset] = strconv.FormatInt(r.Offset, 10)
	md[MetadataTimestamp] = r.Timestamp.UTC().Format(time.RFC3339Nano)

	return feed.Record{Key: r.Key, Value: r.Value, Metadata: md}
}
