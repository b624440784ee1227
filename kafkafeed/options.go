package kafkafeed

import (
	"time"

	"github.com/hugolhafner/go-changefeed/logger"
)

// ClientOption configures a feed Client.
type ClientOption interface {
	applyClient(*ClientConfig)
}

// CheckpointerOption configures a Checkpointer.
type CheckpointerOption interface {
	applyCheckpointer(*CheckpointerConfig)
}

type bootstrapServersOption []string

func (o bootstrapServersOption) applyClient(c *ClientConfig) {
	c.BootstrapServers = []string(o)
}

func (o bootstrapServersOption) applyCheckpointer(c *CheckpointerConfig) {
	c.BootstrapServers = []string(o)
}

// WithBootstrapServers sets the brokers to dial
func WithBootstrapServers(servers []string) bootstrapServersOption {
	return bootstrapServersOption(servers)
}

type clientIDOption string

func (o clientIDOption) applyClient(c *ClientConfig) {
	c.ClientID = string(o)
}

func (o clientIDOption) applyCheckpointer(c *CheckpointerConfig) {
	c.ClientID = string(o)
}

// WithClientID sets the client id reported to the brokers
func WithClientID(id string) clientIDOption {
	return clientIDOption(id)
}

type loggerOption struct {
	l logger.Logger
}

func (o loggerOption) applyClient(c *ClientConfig) {
	if o.l != nil {
		c.Logger = o.l
	}
}

func (o loggerOption) applyCheckpointer(c *CheckpointerConfig) {
	if o.l != nil {
		c.Logger = o.l
	}
}

func WithLogger(l logger.Logger) loggerOption {
	return loggerOption{l: l}
}

type pollTimeoutOption time.Duration

func (o pollTimeoutOption) applyClient(c *ClientConfig) {
	if o > 0 {
		c.PollTimeout = time.Duration(o)
	}
}

// WithPollTimeout bounds how long a fetch blocks waiting for records
func WithPollTimeout(d time.Duration) pollTimeoutOption {
	return pollTimeoutOption(d)
}

type startAtEndOption bool

func (o startAtEndOption) applyClient(c *ClientConfig) {
	c.StartAtEnd = bool(o)
}

// WithStartAtEnd makes queries with no continuation begin at the partition's
// high watermark
func WithStartAtEnd() startAtEndOption {
	return startAtEndOption(true)
}
