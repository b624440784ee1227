package mockfeed

import (
	"time"

	"github.com/hugolhafner/go-changefeed/feed"
)

// Option is a functional option for configuring a mock Client.
type Option func(*Client)

// WithFetchDelay adds an artificial delay to FetchNext calls. The delay
// respects the fetch context; cancellation mid-delay raises a
// cancellation-kind error.
func WithFetchDelay(d time.Duration) Option {
	return func(c *Client) {
		c.fetchDelay = d
	}
}

// WithFetchError configures an error to be returned by all FetchNext calls.
func WithFetchError(err error) Option {
	return func(c *Client) {
		c.fetchErr = func(string) error { return err }
	}
}

// WithCreateError configures an error to be returned by all CreateQuery calls.
func WithCreateError(err error) Option {
	return func(c *Client) {
		c.createErr = func(string, feed.QueryOptions) error { return err }
	}
}
