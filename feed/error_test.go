//go:build unit

package feed_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hugolhafner/go-changefeed/feed"
	"github.com/stretchr/testify/require"
)

func TestError_WrapsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := feed.Transient(cause)

	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "transient")
	require.Contains(t, err.Error(), "connection reset")

	fe, ok := feed.AsError(err)
	require.True(t, ok)
	require.Equal(t, feed.KindTransient, fe.Kind)
	require.Equal(t, cause, fe.Cause)
}

func TestError_NilCause(t *testing.T) {
	err := feed.Cancelled(nil)
	require.Equal(t, "feed: cancelled", err.Error())
}

func TestAsError(t *testing.T) {
	_, ok := feed.AsError(nil)
	require.False(t, ok)

	_, ok = feed.AsError(errors.New("plain"))
	require.False(t, ok)

	wrapped := fmt.Errorf("fetch next page: %w", feed.Fatal(errors.New("partition gone")))
	fe, ok := feed.AsError(wrapped)
	require.True(t, ok)
	require.Equal(t, feed.KindFatal, fe.Kind)
}

func TestKindOf(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want feed.Kind
	}{
		{name: "explicit transient", err: feed.Transient(errors.New("x")), want: feed.KindTransient},
		{name: "explicit cancelled", err: feed.Cancelled(context.Canceled), want: feed.KindCancelled},
		{name: "explicit fatal", err: feed.Fatal(errors.New("x")), want: feed.KindFatal},
		{name: "bare context canceled", err: context.Canceled, want: feed.KindCancelled},
		{name: "bare deadline exceeded", err: context.DeadlineExceeded, want: feed.KindCancelled},
		{name: "wrapped context canceled", err: fmt.Errorf("poll: %w", context.Canceled), want: feed.KindCancelled},
		{name: "plain error", err: errors.New("io timeout"), want: feed.KindTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, feed.KindOf(tt.err))
		})
	}
}

func TestRecord_Copy(t *testing.T) {
	r := feed.Record{
		Key:      []byte("k"),
		Value:    []byte("v"),
		Metadata: map[string]string{"offset": "7"},
	}

	c := r.Copy()
	c.Key[0] = 'x'
	c.Value[0] = 'x'
	c.Metadata["offset"] = "8"

	require.Equal(t, []byte("k"), r.Key)
	require.Equal(t, []byte("v"), r.Value)
	require.Equal(t, "7", r.Metadata["offset"])
}
