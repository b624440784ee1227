package otel

import (
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	traceNoop "go.opentelemetry.io/otel/trace/noop"
)

const scopeName = "github.com/hugolhafner/go-changefeed"

// Telemetry holds all OpenTelemetry instruments for the library.
// When no providers are configured, all instruments are noops with zero overhead
type Telemetry struct {
	Tracer trace.Tracer

	// Fetch metrics
	FetchDuration metric.Float64Histogram
	Retries       metric.Int64Counter

	// Dispatch metrics
	RecordsObserved  metric.Int64Counter
	BatchesObserved  metric.Int64Counter
	DispatchDuration metric.Float64Histogram

	// Checkpoint metrics
	Checkpoints metric.Int64Counter

	// Error and lifecycle metrics
	Errors           metric.Int64Counter
	ProcessorsActive metric.Int64UpDownCounter
}

// NewTelemetry creates a Telemetry instance from the given providers.
// all providers are optional and defaulted to noops if nil
func NewTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) (*Telemetry, error) {
	if tp == nil {
		tp = traceNoop.NewTracerProvider()
	}
	if mp == nil {
		mp = noop.NewMeterProvider()
	}

	tracer := tp.Tracer(scopeName)
	meter := mp.Meter(scopeName)

	fetchDuration, err := meter.Float64Histogram(
		"changefeed.fetch.duration",
		metric.WithDescription("Time per feed fetch"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	retries, err := meter.Int64Counter(
		"changefeed.retries",
		metric.WithDescription("Transient failures absorbed and retried"),
	)
	if err != nil {
		return nil, err
	}

	recordsObserved, err := meter.Int64Counter(
		"changefeed.observer.records",
		metric.WithDescription("Records handed to the observer"),
	)
	if err != nil {
		return nil, err
	}

	batchesObserved, err := meter.Int64Counter(
		"changefeed.observer.batches",
		metric.WithDescription("Batches handed to the observer"),
	)
	if err != nil {
		return nil, err
	}

	dispatchDuration, err := meter.Float64Histogram(
		"changefeed.dispatch.duration",
		metric.WithDescription("Time per observer invocation"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	checkpoints, err := meter.Int64Counter(
		"changefeed.checkpoints",
		metric.WithDescription("Continuation positions durably recorded"),
	)
	if err != nil {
		return nil, err
	}

	errors, err := meter.Int64Counter(
		"changefeed.errors",
		metric.WithDescription("Errors encountered, by phase and kind"),
	)
	if err != nil {
		return nil, err
	}

	processorsActive, err := meter.Int64UpDownCounter(
		"changefeed.processors.active",
		metric.WithDescription("Partition processors currently running"),
	)
	if err != nil {
		return nil, err
	}

	return &Telemetry{
		Tracer:           tracer,
		FetchDuration:    fetchDuration,
		Retries:          retries,
		RecordsObserved:  recordsObserved,
		BatchesObserved:  batchesObserved,
		DispatchDuration: dispatchDuration,
		Checkpoints:      checkpoints,
		Errors:           errors,
		ProcessorsActive: processorsActive,
	}, nil
}

// Noop returns a Telemetry instance with all noop instruments
func Noop() *Telemetry {
	t, _ := NewTelemetry(nil, nil)
	return t
}
