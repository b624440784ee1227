package mockfeed

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// AssertFetchCount verifies the number of FetchNext calls for a partition.
func (c *Client) AssertFetchCount(tb testing.TB, partition string, expected int) {
	tb.Helper()

	actual := c.FetchCalls(partition)
	require.Equal(tb, expected, actual, "expected %d fetches for partition %q, got %d", expected, partition, actual)
}

// AssertQueryCount verifies the number of CreateQuery calls.
func (c *Client) AssertQueryCount(tb testing.TB, expected int) {
	tb.Helper()

	actual := c.QueryCount()
	require.Equal(tb, expected, actual, "expected %d queries, got %d", expected, actual)
}

// AssertQueryContinuations verifies the sequence of continuation tokens that
// queries for a partition were created from, in order.
func (c *Client) AssertQueryContinuations(tb testing.TB, partition string, tokens ...string) {
	tb.Helper()

	var actual []string
	for _, q := range c.Queries() {
		if q.Options.Partition == partition {
			actual = append(actual, q.Options.Continuation)
		}
	}
	require.Equal(tb, tokens, actual, "continuation tokens used for partition %q", partition)
}
