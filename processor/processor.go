// Package processor contains the per-partition processing loop: fetch the
// next page of changes, hand it to the observer, checkpoint the continuation
// token, repeat. One Processor owns exactly one partition; shutdown is driven
// solely by the context handed to Run.
package processor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hugolhafner/go-changefeed/checkpoint"
	"github.com/hugolhafner/go-changefeed/feed"
	"github.com/hugolhafner/go-changefeed/logger"
	"github.com/hugolhafner/go-changefeed/observer"
	changefeedotel "github.com/hugolhafner/go-changefeed/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Settings carries the immutable identity and tuning of a single processor.
type Settings struct {
	// Collection is the feed collection the processor reads from.
	Collection string

	// Partition is the partition this processor owns. Exactly one running
	// processor per partition; the library does not enforce this across
	// processes.
	Partition string

	// MaxItemCount caps the number of records a single fetch may return.
	MaxItemCount int

	// FeedPollDelay is how long to wait before polling again once the feed
	// reports no further results.
	FeedPollDelay time.Duration

	// StartContinuation positions the first query. Empty starts from the
	// beginning of the feed. Hosts resuming a partition typically seed this
	// from a checkpoint.Loader.
	StartContinuation string
}

func (s Settings) validate() error {
	if s.Collection == "" {
		return errors.New("collection must not be empty")
	}
	if s.Partition == "" {
		return errors.New("partition must not be empty")
	}
	if s.MaxItemCount <= 0 {
		return fmt.Errorf("max item count must be positive, got %d", s.MaxItemCount)
	}
	if s.FeedPollDelay < 0 {
		return fmt.Errorf("feed poll delay must not be negative, got %s", s.FeedPollDelay)
	}
	return nil
}

// Processor drives one partition of a change feed. It is single use:
// construct one per partition assignment, run it with Run, and construct a
// replacement to resume the partition after Run returns.
type Processor struct {
	client feed.QueryClient
	obs    observer.Observer
	cp     checkpoint.Checkpointer

	settings Settings
	config   config
	oc       observer.Context

	started atomic.Bool
	state   atomic.Int32

	logger    logger.Logger
	telemetry *changefeedotel.Telemetry
}

// New validates the settings and binds the processor to its collaborators.
func New(
	client feed.QueryClient,
	obs observer.Observer,
	cp checkpoint.Checkpointer,
	settings Settings,
	opts ...Option,
) (*Processor, error) {
	if client == nil {
		return nil, errors.New("query client must not be nil")
	}
	if obs == nil {
		return nil, errors.New("observer must not be nil")
	}
	if cp == nil {
		return nil, errors.New("checkpointer must not be nil")
	}
	if err := settings.validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	l := cfg.Logger.With(
		"component", "processor",
		"collection", settings.Collection,
		"partition", settings.Partition,
	)

	return &Processor{
		client:    client,
		obs:       obs,
		cp:        cp,
		settings:  settings,
		config:    cfg,
		oc:        observer.Context{Collection: settings.Collection, Partition: settings.Partition},
		logger:    l,
		telemetry: cfg.Telemetry,
	}, nil
}

// State reports where the loop currently is. Safe to call concurrently with Run.
func (p *Processor) State() State {
	return State(p.state.Load())
}

func (p *Processor) setState(s State) {
	p.state.Store(int32(s))
}

// Run processes the partition until ctx is cancelled. It blocks, looping
// fetch, dispatch, checkpoint, and returns an error satisfying
// errors.Is(err, ctx.Err()) once cancellation is observed. The only other
// exit is a checkpoint write failing while the signal is still unset, which
// surfaces as a checkpoint.Error.
//
// Fetch and observer failures never end the run on their own: while the
// signal is unset they are retried at the same position after the configured
// backoff, no matter how much the error resembles a cancellation. Only the
// signal handed to Run decides shutdown.
func (p *Processor) Run(ctx context.Context) error {
	if !p.started.CompareAndSwap(false, true) {
		return errors.New("processor already started")
	}

	tel := p.telemetry

	tel.ProcessorsActive.Add(
		ctx, 1, metric.WithAttributes(
			changefeedotel.AttrCollection.String(p.settings.Collection),
			changefeedotel.AttrPartition.String(p.settings.Partition),
		),
	)
	defer tel.ProcessorsActive.Add(
		context.Background(), -1, metric.WithAttributes(
			changefeedotel.AttrCollection.String(p.settings.Collection),
			changefeedotel.AttrPartition.String(p.settings.Partition),
		),
	)

	p.logger.Info(
		"Processor started",
		"continuation", p.settings.StartContinuation,
		"maxItemCount", p.settings.MaxItemCount,
		"feedPollDelay", p.settings.FeedPollDelay,
	)

	var (
		query        feed.Query
		continuation = p.settings.StartContinuation

		// pending is the newest dispatched token the checkpoint policy
		// deferred; it is flushed once on shutdown
		pending    string
		hasPending bool

		errAttempts uint = 0
	)

	defer func() {
		if query != nil {
			if err := query.Close(); err != nil {
				p.logger.Warn("Failed to close feed query", "error", err)
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Context cancelled, shutting down", "continuation", continuation)
			return p.shutdown(ctx, pending, hasPending)
		default:
		}

		p.setState(StateIdle)

		if query == nil || !query.HasMoreResults() {
			if query != nil {
				if err := query.Close(); err != nil {
					p.logger.Warn("Failed to close drained feed query", "error", err)
				}
				query = nil
			}

			q, err := p.client.CreateQuery(p.settings.Collection, feed.QueryOptions{
				Partition:    p.settings.Partition,
				Continuation: continuation,
				MaxItemCount: p.settings.MaxItemCount,
			})
			if err != nil {
				if ctx.Err() != nil {
					p.logger.Info("Context cancelled while creating feed query", "error", err)
					return p.shutdown(ctx, pending, hasPending)
				}

				p.logger.Warn(
					"Failed to create feed query, retrying",
					"continuation", continuation,
					"attempt", errAttempts,
					"error", err,
				)
				if !p.backoffRetry(ctx, errAttempts, changefeedotel.PhaseFetch) {
					return p.shutdown(ctx, pending, hasPending)
				}
				errAttempts++
				continue
			}
			query = q
		}

		p.setState(StateFetching)

		page, err := p.fetchPage(ctx, query)
		if err != nil {
			// the cancellation signal decides whether this ends the run;
			// the error's own shape never does
			if ctx.Err() != nil {
				p.logger.Info("Context cancelled during fetch", "continuation", continuation, "error", err)
				return p.shutdown(ctx, pending, hasPending)
			}

			p.logger.Warn(
				"Fetch failed, retrying at same continuation",
				"continuation", continuation,
				"kind", feed.KindOf(err).String(),
				"attempt", errAttempts,
				"error", err,
			)
			p.setState(StateIdle)
			if !p.backoffRetry(ctx, errAttempts, changefeedotel.PhaseFetch) {
				return p.shutdown(ctx, pending, hasPending)
			}
			errAttempts++
			continue
		}
		errAttempts = 0
		continuation = page.Continuation

		if page.Count() > 0 {
			p.setState(StateDispatching)
			if err := p.dispatchBatch(ctx, page.Items, continuation); err != nil {
				p.logger.Info("Context cancelled while dispatching batch", "continuation", continuation, "error", err)
				return p.shutdown(ctx, pending, hasPending)
			}

			if p.config.CheckpointPolicy.BatchProcessed(page.Count()) {
				p.setState(StateCheckpointing)
				if err := p.checkpointToken(ctx, continuation); err != nil {
					if ctx.Err() != nil {
						p.logger.Error(
							"Failed to checkpoint during cancellation, progress restarts from the last durable token",
							"continuation", continuation,
							"error", err,
						)
						return p.shutdown(ctx, "", false)
					}
					if _, ok := checkpoint.AsError(err); ok {
						return err
					}
					return checkpoint.NewError(p.oc, continuation, err)
				}
				pending, hasPending = "", false
			} else {
				pending, hasPending = continuation, true
			}
		}

		if page.Count() == 0 && !query.HasMoreResults() {
			p.setState(StateBackingOff)
			p.logger.Debug(
				"Feed drained, backing off",
				"continuation", continuation,
				"delay", p.settings.FeedPollDelay,
			)
			select {
			case <-ctx.Done():
				p.logger.Info("Context cancelled during feed poll delay", "continuation", continuation)
				return p.shutdown(ctx, pending, hasPending)
			case <-time.After(p.settings.FeedPollDelay):
			}
		}
	}
}

// fetchPage runs a single fetch attempt with its span and duration metric.
func (p *Processor) fetchPage(ctx context.Context, query feed.Query) (feed.Page, error) {
	tel := p.telemetry
	fetchStart := time.Now()

	ctx, span := tel.Tracer.Start(
		ctx, p.settings.Collection+" fetch",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			changefeedotel.AttrCollection.String(p.settings.Collection),
			changefeedotel.AttrPartition.String(p.settings.Partition),
		),
	)
	defer span.End()

	page, err := query.FetchNext(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		tel.FetchDuration.Record(
			ctx, time.Since(fetchStart).Seconds(), metric.WithAttributes(
				changefeedotel.AttrCollection.String(p.settings.Collection),
				changefeedotel.AttrPartition.String(p.settings.Partition),
				changefeedotel.AttrFetchStatus.String(changefeedotel.StatusError),
			),
		)
		tel.Errors.Add(
			ctx, 1, metric.WithAttributes(
				changefeedotel.AttrCollection.String(p.settings.Collection),
				changefeedotel.AttrPartition.String(p.settings.Partition),
				changefeedotel.AttrPhase.String(changefeedotel.PhaseFetch),
				changefeedotel.AttrErrorKind.String(feed.KindOf(err).String()),
			),
		)
		return feed.Page{}, err
	}

	status := changefeedotel.StatusSuccess
	if page.Count() == 0 {
		status = changefeedotel.StatusEmpty
	}
	tel.FetchDuration.Record(
		ctx, time.Since(fetchStart).Seconds(), metric.WithAttributes(
			changefeedotel.AttrCollection.String(p.settings.Collection),
			changefeedotel.AttrPartition.String(p.settings.Partition),
			changefeedotel.AttrFetchStatus.String(status),
		),
	)

	span.SetAttributes(attribute.Int("changefeed.batch.count", page.Count()))
	return page, nil
}

// dispatchBatch hands a batch to the observer, re-dispatching the same
// records until the observer succeeds or the signal triggers. Only
// cancellation makes it return a non-nil error.
func (p *Processor) dispatchBatch(ctx context.Context, records []feed.Record, continuation string) error {
	tel := p.telemetry
	dispatchStart := time.Now()

	ctx, span := tel.Tracer.Start(
		ctx, p.settings.Collection+" dispatch",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			changefeedotel.AttrCollection.String(p.settings.Collection),
			changefeedotel.AttrPartition.String(p.settings.Partition),
			attribute.Int("changefeed.batch.count", len(records)),
		),
	)
	defer span.End()

	var attempt uint = 0
	for {
		err := p.obs.ProcessChanges(ctx, p.oc, records)
		if err == nil {
			if attempt > 0 {
				span.SetAttributes(attribute.Int("changefeed.dispatch.retry_count", int(attempt)))
			}

			tel.RecordsObserved.Add(
				ctx, int64(len(records)), metric.WithAttributes(
					changefeedotel.AttrCollection.String(p.settings.Collection),
					changefeedotel.AttrPartition.String(p.settings.Partition),
				),
			)
			tel.BatchesObserved.Add(
				ctx, 1, metric.WithAttributes(
					changefeedotel.AttrCollection.String(p.settings.Collection),
					changefeedotel.AttrPartition.String(p.settings.Partition),
				),
			)
			tel.DispatchDuration.Record(
				ctx, time.Since(dispatchStart).Seconds(), metric.WithAttributes(
					changefeedotel.AttrCollection.String(p.settings.Collection),
					changefeedotel.AttrPartition.String(p.settings.Partition),
				),
			)

			p.logger.Debug("Batch dispatched", "count", len(records), "continuation", continuation)
			return nil
		}

		span.RecordError(err)
		tel.Errors.Add(
			ctx, 1, metric.WithAttributes(
				changefeedotel.AttrCollection.String(p.settings.Collection),
				changefeedotel.AttrPartition.String(p.settings.Partition),
				changefeedotel.AttrPhase.String(changefeedotel.PhaseDispatch),
			),
		)

		if ctx.Err() != nil {
			span.SetStatus(codes.Error, ctx.Err().Error())
			return ctx.Err()
		}

		p.logger.Warn(
			"Observer failed to process batch, re-dispatching",
			"count", len(records),
			"continuation", continuation,
			"attempt", attempt,
			"error", err,
		)

		if attempt > 0 && attempt%10 == 0 {
			p.logger.Warn(
				"Batch has seen a high number of dispatch attempts, observer may be stuck",
				"attempt", attempt,
				"continuation", continuation,
			)
		}

		select {
		case <-ctx.Done():
			span.SetStatus(codes.Error, ctx.Err().Error())
			return ctx.Err()
		case <-time.After(p.config.RetryBackoff.Next(attempt)):
		}
		attempt++

		tel.Retries.Add(
			ctx, 1, metric.WithAttributes(
				changefeedotel.AttrCollection.String(p.settings.Collection),
				changefeedotel.AttrPartition.String(p.settings.Partition),
				changefeedotel.AttrPhase.String(changefeedotel.PhaseDispatch),
			),
		)
	}
}

// checkpointToken durably records a continuation position.
func (p *Processor) checkpointToken(ctx context.Context, token string) error {
	tel := p.telemetry

	ctx, span := tel.Tracer.Start(
		ctx, p.settings.Collection+" checkpoint",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			changefeedotel.AttrCollection.String(p.settings.Collection),
			changefeedotel.AttrPartition.String(p.settings.Partition),
		),
	)
	defer span.End()

	if err := p.cp.Checkpoint(ctx, p.oc, token); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		tel.Errors.Add(
			ctx, 1, metric.WithAttributes(
				changefeedotel.AttrCollection.String(p.settings.Collection),
				changefeedotel.AttrPartition.String(p.settings.Partition),
				changefeedotel.AttrPhase.String(changefeedotel.PhaseCheckpoint),
			),
		)
		return err
	}

	tel.Checkpoints.Add(
		ctx, 1, metric.WithAttributes(
			changefeedotel.AttrCollection.String(p.settings.Collection),
			changefeedotel.AttrPartition.String(p.settings.Partition),
		),
	)
	p.logger.Debug("Checkpointed continuation", "continuation", token)
	return nil
}

// backoffRetry waits out the retry backoff for the given attempt, recording
// the retry metric. It reports false when the signal triggered mid wait.
func (p *Processor) backoffRetry(ctx context.Context, attempt uint, phase string) bool {
	p.telemetry.Retries.Add(
		ctx, 1, metric.WithAttributes(
			changefeedotel.AttrCollection.String(p.settings.Collection),
			changefeedotel.AttrPartition.String(p.settings.Partition),
			changefeedotel.AttrPhase.String(phase),
		),
	)

	select {
	case <-ctx.Done():
		return false
	case <-time.After(p.config.RetryBackoff.Next(attempt)):
		return true
	}
}

// shutdown flushes any dispatched-but-deferred token and reports the
// cancellation outcome. The flush runs on a detached timeout so the
// cancelled run context cannot block final progress from being recorded.
func (p *Processor) shutdown(ctx context.Context, pending string, hasPending bool) error {
	p.setState(StateCancelled)

	if hasPending {
		flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := p.checkpointToken(flushCtx, pending); err != nil {
			p.logger.Error("Failed to checkpoint during shutdown", "continuation", pending, "error", err)
		}
	}

	p.logger.Info("Processor shutdown complete")
	return ctx.Err()
}
