//go:build e2e

package e2e

import (
	"context"
	"testing"
	"time"

	"github.com/hugolhafner/go-changefeed/kafkafeed"
	"github.com/hugolhafner/go-changefeed/processor"
	"github.com/stretchr/testify/require"
)

func newKafkaProcessor(
	t *testing.T, broker, topic, group, start string, obs *collectingObserver,
) *processor.Processor {
	t.Helper()

	client, err := kafkafeed.NewClient(
		kafkafeed.WithBootstrapServers([]string{broker}),
		kafkafeed.WithPollTimeout(time.Second),
	)
	require.NoError(t, err)

	checkpointer, err := kafkafeed.NewCheckpointer(
		group,
		kafkafeed.WithBootstrapServers([]string{broker}),
	)
	require.NoError(t, err)
	t.Cleanup(checkpointer.Close)

	p, err := processor.New(
		client,
		obs,
		checkpointer,
		processor.Settings{
			Collection:        topic,
			Partition:         "0",
			MaxItemCount:      100,
			FeedPollDelay:     100 * time.Millisecond,
			StartContinuation: start,
		},
	)
	require.NoError(t, err)

	return p
}

// TestE2E_ProcessorConsumesAndCommits verifies that records produced to a
// topic reach the observer in order and that the processed position lands as
// a committed consumer group offset.
func TestE2E_ProcessorConsumesAndCommits(t *testing.T) {
	broker := ensureContainer(t)

	topic := testTopicName(t, "consume")
	group := testGroupName(t, "consume")
	createTopics(t, broker, 1, topic)

	produceValues(t, broker, topic, "v1", "v2", "v3", "v4", "v5")

	obs := &collectingObserver{}
	p := newKafkaProcessor(t, broker, topic, group, "", obs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- p.Run(ctx)
	}()

	require.Eventually(
		t, func() bool {
			return len(obs.snapshot()) == 5
		}, eventualWait, 100*time.Millisecond, "observer should see all produced records",
	)
	require.Equal(t, []string{"v1", "v2", "v3", "v4", "v5"}, obs.snapshot())

	// every batch is checkpointed, so the commit catches up before shutdown
	require.Eventually(
		t, func() bool {
			return committedOffset(t, broker, group, topic) == 5
		}, eventualWait, 100*time.Millisecond, "commit should reach the produced count",
	)

	cancel()
	waitForShutdown(t, errCh, shutdownWait)
}

// TestE2E_ProcessorResumesFromCommittedOffset verifies that a fresh processor
// seeded from the stored position observes only records produced after the
// previous run committed.
func TestE2E_ProcessorResumesFromCommittedOffset(t *testing.T) {
	broker := ensureContainer(t)

	topic := testTopicName(t, "resume")
	group := testGroupName(t, "resume")
	createTopics(t, broker, 1, topic)

	produceValues(t, broker, topic, "v1", "v2", "v3")

	first := &collectingObserver{}
	p1 := newKafkaProcessor(t, broker, topic, group, "", first)

	ctx1, cancel1 := context.WithCancel(context.Background())
	errCh1 := make(chan error, 1)
	go func() {
		errCh1 <- p1.Run(ctx1)
	}()

	require.Eventually(
		t, func() bool {
			return committedOffset(t, broker, group, topic) == 3
		}, eventualWait, 100*time.Millisecond, "first run should commit the produced count",
	)

	cancel1()
	waitForShutdown(t, errCh1, shutdownWait)
	require.Len(t, first.snapshot(), 3)

	produceValues(t, broker, topic, "v4", "v5")

	checkpointer, err := kafkafeed.NewCheckpointer(
		group,
		kafkafeed.WithBootstrapServers([]string{broker}),
	)
	require.NoError(t, err)
	defer checkpointer.Close()

	start, err := checkpointer.Load(context.Background(), topic, "0")
	require.NoError(t, err)
	require.Equal(t, "3", start)

	second := &collectingObserver{}
	p2 := newKafkaProcessor(t, broker, topic, group, start, second)

	ctx2, cancel2 := context.WithCancel(context.Background())
	errCh2 := make(chan error, 1)
	go func() {
		errCh2 <- p2.Run(ctx2)
	}()

	require.Eventually(
		t, func() bool {
			return len(second.snapshot()) == 2
		}, eventualWait, 100*time.Millisecond, "second run should only see new records",
	)
	require.Equal(t, []string{"v4", "v5"}, second.snapshot())

	require.Eventually(
		t, func() bool {
			return committedOffset(t, broker, group, topic) == 5
		}, eventualWait, 100*time.Millisecond, "commit should advance past the new records",
	)

	cancel2()
	waitForShutdown(t, errCh2, shutdownWait)
}
