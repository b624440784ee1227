// Package mockfeed provides a scripted in-memory feed.QueryClient for tests.
// Each partition carries a queue of steps, either pages to return or errors
// to raise, consumed one per FetchNext call across all queries for that
// partition. A drained queue yields empty pages that echo the query's
// continuation, mimicking a caught-up feed.
package mockfeed

import (
	"context"
	"sync"
	"time"

	"github.com/hugolhafner/go-changefeed/feed"
)

var (
	_ feed.QueryClient = (*Client)(nil)
	_ feed.Query       = (*query)(nil)
)

// CreatedQuery records one CreateQuery call for assertions.
type CreatedQuery struct {
	Collection string
	Options    feed.QueryOptions
}

// step is one scripted FetchNext outcome.
type step struct {
	page feed.Page
	err  error
}

type Client struct {
	mu sync.RWMutex

	steps     map[string][]step
	positions map[string]int

	createdQueries []CreatedQuery
	fetchCalls     map[string]int

	fetchDelay time.Duration

	createErr func(collection string, opts feed.QueryOptions) error
	fetchErr  func(partition string) error

	closedQueries int
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		steps:      make(map[string][]step),
		positions:  make(map[string]int),
		fetchCalls: make(map[string]int),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// CreateQuery records the call and returns a query positioned on the
// partition's step queue. MaxItemCount is recorded for assertions, not
// enforced; pages return exactly as scripted.
func (c *Client) CreateQuery(collection string, opts feed.QueryOptions) (feed.Query, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.createErr != nil {
		if err := c.createErr(collection, opts); err != nil {
			return nil, err
		}
	}

	c.createdQueries = append(c.createdQueries, CreatedQuery{Collection: collection, Options: opts})

	return &query{client: c, opts: opts}, nil
}

// AddPage appends a page step to the partition's queue.
func (c *Client) AddPage(partition string, page feed.Page) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.steps[partition] = append(c.steps[partition], step{page: page})
}

// FailFetch appends an error step to the partition's queue. The error is
// raised by the FetchNext call that reaches it, then consumed; later calls
// proceed to the next step.
func (c *Client) FailFetch(partition string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.steps[partition] = append(c.steps[partition], step{err: err})
}

// SetFetchError configures an error returned by every FetchNext call until
// cleared with nil. Unlike FailFetch steps it does not consume the queue.
func (c *Client) SetFetchError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err == nil {
		c.fetchErr = nil
	} else {
		c.fetchErr = func(string) error { return err }
	}
}

// SetFetchErrorFunc configures a function consulted on every FetchNext call
// before the step queue. A nil return lets the call proceed.
func (c *Client) SetFetchErrorFunc(fn func(partition string) error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.fetchErr = fn
}

// SetCreateError configures an error returned by every CreateQuery call
// until cleared with nil.
func (c *Client) SetCreateError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err == nil {
		c.createErr = nil
	} else {
		c.createErr = func(string, feed.QueryOptions) error { return err }
	}
}

// SetCreateErrorFunc configures a function consulted on every CreateQuery
// call. A nil return lets the call proceed.
func (c *Client) SetCreateErrorFunc(fn func(collection string, opts feed.QueryOptions) error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.createErr = fn
}

func (c *Client) fetchNext(ctx context.Context, q *query) (feed.Page, error) {
	c.mu.RLock()
	delay := c.fetchDelay
	c.mu.RUnlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return feed.Page{}, feed.Cancelled(ctx.Err())
		case <-time.After(delay):
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	partition := q.opts.Partition
	c.fetchCalls[partition]++

	if c.fetchErr != nil {
		if err := c.fetchErr(partition); err != nil {
			return feed.Page{}, err
		}
	}

	queue := c.steps[partition]
	pos := c.positions[partition]
	if pos >= len(queue) {
		return feed.Page{Continuation: q.opts.Continuation}, nil
	}

	c.positions[partition]++
	s := queue[pos]
	if s.err != nil {
		return feed.Page{}, s.err
	}

	items := make([]feed.Record, len(s.page.Items))
	for i, r := range s.page.Items {
		items[i] = r.Copy()
	}

	return feed.Page{Items: items, Continuation: s.page.Continuation}, nil
}

func (c *Client) remaining(partition string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.steps[partition]) - c.positions[partition]
}

func (c *Client) queryClosed() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closedQueries++
}

// Queries returns a copy of all recorded CreateQuery calls in order.
func (c *Client) Queries() []CreatedQuery {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]CreatedQuery, len(c.createdQueries))
	copy(result, c.createdQueries)
	return result
}

// QueryCount returns the number of CreateQuery calls.
func (c *Client) QueryCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.createdQueries)
}

// FetchCalls returns the number of FetchNext calls issued for a partition,
// including failed ones.
func (c *Client) FetchCalls(partition string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.fetchCalls[partition]
}

// TotalFetches returns the number of FetchNext calls across all partitions.
func (c *Client) TotalFetches() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := 0
	for _, n := range c.fetchCalls {
		total += n
	}
	return total
}

// ClosedQueries returns how many queries have been closed.
func (c *Client) ClosedQueries() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.closedQueries
}

// Reset clears call tracking and queue positions but keeps the scripted
// steps, allowing the script to replay.
func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.positions = make(map[string]int)
	c.fetchCalls = make(map[string]int)
	c.createdQueries = nil
	c.closedQueries = 0
}

// Clear removes all state including the scripted steps.
func (c *Client) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.steps = make(map[string][]step)
	c.positions = make(map[string]int)
	c.fetchCalls = make(map[string]int)
	c.createdQueries = nil
	c.closedQueries = 0
	c.fetchErr = nil
	c.createErr = nil
}

type query struct {
	client *Client
	opts   feed.QueryOptions
	closed bool
}

func (q *query) HasMoreResults() bool {
	return q.client.remaining(q.opts.Partition) > 0
}

func (q *query) FetchNext(ctx context.Context) (feed.Page, error) {
	return q.client.fetchNext(ctx, q)
}

func (q *query) Close() error {
	if q.closed {
		return nil
	}
	q.closed = true
	q.client.queryClosed()
	return nil
}
