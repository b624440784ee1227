package processor

import (
	"github.com/hugolhafner/dskit/backoff"
	"github.com/hugolhafner/go-changefeed/checkpoint"
	"github.com/hugolhafner/go-changefeed/logger"
	changefeedotel "github.com/hugolhafner/go-changefeed/otel"
)

// Option configures a Processor beyond its required collaborators.
type Option func(*config)

// WithLogger sets the logger used for lifecycle and retry events
func WithLogger(l logger.Logger) Option {
	return func(cfg *config) {
		if l != nil {
			cfg.Logger = l
		}
	}
}

// WithTelemetry sets the OpenTelemetry instruments the processor records to
func WithTelemetry(t *changefeedotel.Telemetry) Option {
	return func(cfg *config) {
		if t != nil {
			cfg.Telemetry = t
		}
	}
}

// WithCheckpointPolicy controls how often dispatched batches are checkpointed.
// The default checkpoints after every batch.
func WithCheckpointPolicy(p checkpoint.Policy) Option {
	return func(cfg *config) {
		if p != nil {
			cfg.CheckpointPolicy = p
		}
	}
}

// WithRetryBackoff sets the delay between retries of transient fetch and
// observer failures
func WithRetryBackoff(b backoff.Backoff) Option {
	return func(cfg *config) {
		if b != nil {
			cfg.RetryBackoff = b
		}
	}
}
