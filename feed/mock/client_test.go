//go:build unit

package mockfeed_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hugolhafner/go-changefeed/feed"
	mockfeed "github.com/hugolhafner/go-changefeed/feed/mock"
	"github.com/stretchr/testify/require"
)

func TestClient_ImplementsInterface(t *testing.T) {
	var _ feed.QueryClient = (*mockfeed.Client)(nil)
}

func TestClient_ScriptedPagesInOrder(t *testing.T) {
	client := mockfeed.NewClient()
	client.AddPage("p0", mockfeed.PageOf("tok1", "a", "b"))
	client.AddPage("p0", mockfeed.PageOf("tok2", "c"))

	q, err := client.CreateQuery("orders", feed.QueryOptions{Partition: "p0", Continuation: "tok0", MaxItemCount: 5})
	require.NoError(t, err)
	require.True(t, q.HasMoreResults())

	page, err := q.FetchNext(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, page.Count())
	require.Equal(t, "tok1", page.Continuation)

	page, err = q.FetchNext(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, page.Count())
	require.Equal(t, "tok2", page.Continuation)

	require.False(t, q.HasMoreResults())
}

func TestClient_DrainedQueueEchoesContinuation(t *testing.T) {
	client := mockfeed.NewClient()

	q, err := client.CreateQuery("orders", feed.QueryOptions{Partition: "p0", Continuation: "tok3"})
	require.NoError(t, err)

	page, err := q.FetchNext(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, page.Count())
	require.Equal(t, "tok3", page.Continuation)
}

func TestClient_ErrorStepConsumedOnce(t *testing.T) {
	client := mockfeed.NewClient()
	injected := errors.New("store hiccup")
	client.FailFetch("p0", injected)
	client.AddPage("p0", mockfeed.PageOf("tok1", "a"))

	q, err := client.CreateQuery("orders", feed.QueryOptions{Partition: "p0", Continuation: "tok0"})
	require.NoError(t, err)

	_, err = q.FetchNext(context.Background())
	require.ErrorIs(t, err, injected)
	require.True(t, q.HasMoreResults())

	page, err := q.FetchNext(context.Background())
	require.NoError(t, err)
	require.Equal(t, "tok1", page.Continuation)
	require.Equal(t, 2, client.FetchCalls("p0"))
}

func TestClient_FetchErrorFuncDoesNotConsumeSteps(t *testing.T) {
	client := mockfeed.NewClient()
	client.AddPage("p0", mockfeed.PageOf("tok1", "a"))

	calls := 0
	client.SetFetchErrorFunc(func(partition string) error {
		calls++
		if calls == 1 {
			return errors.New("first call fails")
		}
		return nil
	})

	q, err := client.CreateQuery("orders", feed.QueryOptions{Partition: "p0"})
	require.NoError(t, err)

	_, err = q.FetchNext(context.Background())
	require.Error(t, err)
	require.True(t, q.HasMoreResults())

	page, err := q.FetchNext(context.Background())
	require.NoError(t, err)
	require.Equal(t, "tok1", page.Continuation)
}

func TestClient_RecordsQueries(t *testing.T) {
	client := mockfeed.NewClient()

	_, err := client.CreateQuery("orders", feed.QueryOptions{Partition: "p0", Continuation: "tok0", MaxItemCount: 5})
	require.NoError(t, err)
	_, err = client.CreateQuery("orders", feed.QueryOptions{Partition: "p0", Continuation: "tok1", MaxItemCount: 5})
	require.NoError(t, err)

	queries := client.Queries()
	require.Len(t, queries, 2)
	require.Equal(t, "orders", queries[0].Collection)
	require.Equal(t, "tok0", queries[0].Options.Continuation)
	client.AssertQueryContinuations(t, "p0", "tok0", "tok1")
}

func TestClient_CreateError(t *testing.T) {
	client := mockfeed.NewClient()
	client.SetCreateError(errors.New("no such collection"))

	_, err := client.CreateQuery("orders", feed.QueryOptions{Partition: "p0"})
	require.Error(t, err)

	client.SetCreateError(nil)
	_, err = client.CreateQuery("orders", feed.QueryOptions{Partition: "p0"})
	require.NoError(t, err)
}

func TestClient_CreateErrorFunc(t *testing.T) {
	client := mockfeed.NewClient()

	calls := 0
	client.SetCreateErrorFunc(func(string, feed.QueryOptions) error {
		calls++
		if calls == 1 {
			return errors.New("transient create failure")
		}
		return nil
	})

	_, err := client.CreateQuery("orders", feed.QueryOptions{Partition: "p0"})
	require.Error(t, err)
	require.Equal(t, 0, client.QueryCount())

	_, err = client.CreateQuery("orders", feed.QueryOptions{Partition: "p0"})
	require.NoError(t, err)
	require.Equal(t, 1, client.QueryCount())
}

func TestClient_FetchDelayRespectsContext(t *testing.T) {
	client := mockfeed.NewClient(mockfeed.WithFetchDelay(5 * time.Second))

	q, err := client.CreateQuery("orders", feed.QueryOptions{Partition: "p0"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err = q.FetchNext(ctx)
	require.Error(t, err)
	require.Equal(t, feed.KindCancelled, feed.KindOf(err))
	require.Less(t, time.Since(start), time.Second)
}

func TestClient_PagesAreCopies(t *testing.T) {
	client := mockfeed.NewClient()
	client.AddPage("p0", mockfeed.PageOf("tok1", "original"))
	client.AddPage("p0", mockfeed.PageOf("tok2", "original"))

	q, err := client.CreateQuery("orders", feed.QueryOptions{Partition: "p0"})
	require.NoError(t, err)

	page, err := q.FetchNext(context.Background())
	require.NoError(t, err)
	page.Items[0].Value[0] = 'X'

	page2, err := q.FetchNext(context.Background())
	require.NoError(t, err)
	require.Equal(t, []byte("original"), page2.Items[0].Value)
}

func TestClient_CloseCountsOnce(t *testing.T) {
	client := mockfeed.NewClient()

	q, err := client.CreateQuery("orders", feed.QueryOptions{Partition: "p0"})
	require.NoError(t, err)

	require.NoError(t, q.Close())
	require.NoError(t, q.Close())
	require.Equal(t, 1, client.ClosedQueries())
}

func TestClient_ResetKeepsScript(t *testing.T) {
	client := mockfeed.NewClient()
	client.AddPage("p0", mockfeed.PageOf("tok1", "a"))

	q, err := client.CreateQuery("orders", feed.QueryOptions{Partition: "p0"})
	require.NoError(t, err)
	_, err = q.FetchNext(context.Background())
	require.NoError(t, err)
	require.False(t, q.HasMoreResults())

	client.Reset()
	require.Equal(t, 0, client.QueryCount())
	require.Equal(t, 0, client.FetchCalls("p0"))
	require.True(t, q.HasMoreResults())

	client.Clear()
	require.False(t, q.HasMoreResults())
}

func TestRecordBuilder(t *testing.T) {
	r := mockfeed.Record("k1", "v1").WithMetadata("offset", "42").Build()
	require.Equal(t, []byte("k1"), r.Key)
	require.Equal(t, []byte("v1"), r.Value)
	require.Equal(t, "42", r.Metadata["offset"])
}
