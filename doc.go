// Package changefeed is a per-partition change-feed processing library.
//
// A processor repeatedly fetches pages of mutation records from one partition
// of a collection's change feed, dispatches each non-empty batch to an
// observer, and durably checkpoints the continuation token once the batch has
// been processed. Delivery is at least once: after a crash or restart a new
// processor resumes from the last checkpointed token and may replay records
// the observer has already seen.
//
// The behaviour that sets this loop apart is how it treats failure. A fetch
// or observer error only ends the run if the context passed to Run is itself
// done; otherwise the processor retries at the same position after a backoff,
// no matter how much the error resembles a cancellation. Transport layers
// routinely surface timeouts and cancellation-shaped errors for transient
// conditions, and abandoning a partition on those would silently halt
// processing.
//
// The packages compose around small contracts:
//
//   - feed defines the query contracts a source must satisfy, with feed/mock
//     providing a scripted in-memory source for tests.
//   - observer is the batch consumer interface, with Typed decoding payloads
//     through a serde.
//   - checkpoint defines durable position storage (in-memory and Postgres
//     stores included) and the cadence policy deciding when to write.
//   - processor runs the loop itself.
//   - kafkafeed adapts a Kafka topic as both a feed source and a checkpoint
//     store.
//
// See examples/ for runnable wiring.
package changefeed
