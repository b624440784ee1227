//go:build unit

package checkpoint_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hugolhafner/go-changefeed/checkpoint"
	"github.com/hugolhafner/go-changefeed/observer"
	"github.com/stretchr/testify/require"
)

func TestMemory_RoundTrip(t *testing.T) {
	m := checkpoint.NewMemory()
	oc := observer.Context{Collection: "orders", Partition: "p0"}

	token, err := m.Load(context.Background(), "orders", "p0")
	require.NoError(t, err)
	require.Empty(t, token)

	require.NoError(t, m.Checkpoint(context.Background(), oc, "tok1"))
	require.NoError(t, m.Checkpoint(context.Background(), oc, "tok2"))

	token, err = m.Load(context.Background(), "orders", "p0")
	require.NoError(t, err)
	require.Equal(t, "tok2", token)

	_, ok := m.Token("orders", "p9")
	require.False(t, ok)
}

func TestMemory_PartitionsIsolated(t *testing.T) {
	m := checkpoint.NewMemory()

	require.NoError(t, m.Checkpoint(context.Background(), observer.Context{Collection: "orders", Partition: "p0"}, "a"))
	require.NoError(t, m.Checkpoint(context.Background(), observer.Context{Collection: "orders", Partition: "p1"}, "b"))
	require.NoError(t, m.Checkpoint(context.Background(), observer.Context{Collection: "users", Partition: "p0"}, "c"))

	token, _ := m.Token("orders", "p0")
	require.Equal(t, "a", token)
	token, _ = m.Token("orders", "p1")
	require.Equal(t, "b", token)
	token, _ = m.Token("users", "p0")
	require.Equal(t, "c", token)
}

func TestMemory_IgnoresCancelledContext(t *testing.T) {
	m := checkpoint.NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	oc := observer.Context{Collection: "orders", Partition: "p0"}
	require.NoError(t, m.Checkpoint(ctx, oc, "tok1"))

	token, _ := m.Token("orders", "p0")
	require.Equal(t, "tok1", token)
}

func TestCheckpointError(t *testing.T) {
	cause := errors.New("connection refused")
	err := checkpoint.NewError(observer.Context{Collection: "orders", Partition: "p0"}, "tok5", cause)

	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), `"p0"`)
	require.Contains(t, err.Error(), `"tok5"`)

	ce, ok := checkpoint.AsError(fmt.Errorf("run: %w", err))
	require.True(t, ok)
	require.Equal(t, "p0", ce.Partition)
	require.Equal(t, "tok5", ce.Token)

	_, ok = checkpoint.AsError(errors.New("plain"))
	require.False(t, ok)
}
