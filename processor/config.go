package processor

import (
	"time"

	"github.com/hugolhafner/dskit/backoff"
	"github.com/hugolhafner/go-changefeed/checkpoint"
	"github.com/hugolhafner/go-changefeed/logger"
	changefeedotel "github.com/hugolhafner/go-changefeed/otel"
)

type config struct {
	Logger           logger.Logger
	Telemetry        *changefeedotel.Telemetry
	CheckpointPolicy checkpoint.Policy
	RetryBackoff     backoff.Backoff
}

func defaultConfig() config {
	return config{
		Logger:           logger.NewNoopLogger(),
		Telemetry:        changefeedotel.Noop(),
		CheckpointPolicy: checkpoint.EveryBatch(),
		RetryBackoff:     backoff.NewFixed(time.Second),
	}
}
