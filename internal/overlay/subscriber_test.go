package overlay_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiinpocket/n3n/editor/internal/assert/helpers"
	"github.com/aiinpocket/n3n/editor/internal/overlay"
	"github.com/aiinpocket/n3n/editor/pkg/api"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.Fail(t, "condition not met before deadline")
}

func TestSubscribeAppliesEvents(t *testing.T) {
	stream := helpers.NewStreamServer(t)
	ov := overlay.New()

	sub, err := overlay.Subscribe(
		context.Background(), stream.URL(), execID, ov, nil,
	)
	require.NoError(t, err)
	defer sub.Close()

	assert.Equal(t, api.ConnConnected, ov.ConnState())
	assert.Equal(t, overlay.PhaseConnecting, ov.Phase())

	stream.Send(helpers.ExecEvent(
		execID, api.EventExecutionStarted, api.ExecRunning,
	))
	stream.Send(helpers.NodeEvent(
		execID, api.EventNodeStarted, "work", api.ExecRunning,
	))

	waitFor(t, func() bool {
		st, ok := ov.Node("work")
		return ok && st.Status == api.ExecRunning
	})
	assert.Equal(t, overlay.PhaseStreaming, ov.Phase())
}

func TestSubscribeTerminalEventEndsStream(t *testing.T) {
	stream := helpers.NewStreamServer(t)
	ov := overlay.New()

	sub, err := overlay.Subscribe(
		context.Background(), stream.URL(), execID, ov, nil,
	)
	require.NoError(t, err)
	defer sub.Close()

	stream.Send(helpers.ExecEvent(
		execID, api.EventExecutionStarted, api.ExecRunning,
	))
	stream.Send(helpers.ExecEvent(
		execID, api.EventExecutionCompleted, api.ExecCompleted,
	))

	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		require.Fail(t, "stream did not end after terminal event")
	}
	assert.Equal(t, overlay.PhaseCompleted, ov.Phase())
	assert.Equal(t, api.ConnDisconnected, ov.ConnState())
}

func TestSubscribeDialFailure(t *testing.T) {
	ov := overlay.New()

	_, err := overlay.Subscribe(
		context.Background(), "ws://127.0.0.1:1/executions", execID, ov, nil,
	)
	require.Error(t, err)

	// The overlay still enters its run so the UI can show a
	// disconnected indicator for the execution
	assert.Equal(t, overlay.PhaseConnecting, ov.Phase())
	assert.Equal(t, execID, ov.ExecutionID())
	assert.Equal(t, api.ConnDisconnected, ov.ConnState())
}

func TestSubscribeDroppedConnectionKeepsState(t *testing.T) {
	stream := helpers.NewStreamServer(t)
	ov := overlay.New()

	sub, err := overlay.Subscribe(
		context.Background(), stream.URL(), execID, ov, nil,
	)
	require.NoError(t, err)
	defer sub.Close()

	stream.Send(helpers.NodeEvent(
		execID, api.EventNodeCompleted, "start", api.ExecCompleted,
	))
	waitFor(t, func() bool {
		_, ok := ov.Node("start")
		return ok
	})

	stream.Close()
	waitFor(t, func() bool {
		return ov.ConnState() == api.ConnDisconnected
	})

	st, ok := ov.Node("start")
	require.True(t, ok)
	assert.Equal(t, api.ExecCompleted, st.Status)
	assert.Equal(t, overlay.PhaseStreaming, ov.Phase())
}

func TestSubscribeSinkObservesEvents(t *testing.T) {
	stream := helpers.NewStreamServer(t)
	ov := overlay.New()

	var mu sync.Mutex
	var seen []api.EventType
	sink := func(ev *api.ExecutionEvent) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, ev.Type)
	}

	sub, err := overlay.Subscribe(
		context.Background(), stream.URL(), execID, ov, sink,
	)
	require.NoError(t, err)
	defer sub.Close()

	stream.Send(helpers.ExecEvent(
		execID, api.EventExecutionStarted, api.ExecRunning,
	))
	stream.Send(helpers.NodeEvent(
		execID, api.EventNodeStarted, "work", api.ExecRunning,
	))
	stream.Send(helpers.ExecEvent(
		execID, api.EventExecutionCompleted, api.ExecCompleted,
	))

	<-sub.Done()
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []api.EventType{
		api.EventExecutionStarted,
		api.EventNodeStarted,
		api.EventExecutionCompleted,
	}, seen)
}

func TestSubscribeCloseIsIdempotent(t *testing.T) {
	stream := helpers.NewStreamServer(t)
	ov := overlay.New()

	sub, err := overlay.Subscribe(
		context.Background(), stream.URL(), execID, ov, nil,
	)
	require.NoError(t, err)

	sub.Close()
	sub.Close()
	assert.Equal(t, api.ConnDisconnected, ov.ConnState())
}
