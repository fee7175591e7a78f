package editor_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiinpocket/n3n/editor/internal/assert/helpers"
	"github.com/aiinpocket/n3n/editor/internal/editor"
	"github.com/aiinpocket/n3n/editor/internal/overlay"
	"github.com/aiinpocket/n3n/editor/internal/persist"
	"github.com/aiinpocket/n3n/editor/pkg/api"
)

func TestSessionInsertNode(t *testing.T) {
	env := helpers.NewTestSession(t, "flow-1", nil)

	node, err := env.Session.InsertNode(
		api.NodeTypeTrigger, api.Position{X: 10, Y: 20},
	)
	require.NoError(t, err)
	assert.NotEmpty(t, node.ID)
	assert.Equal(t, "Trigger", node.Data["label"])
	assert.Equal(t, "manual", node.Data["triggerType"])

	assert.True(t, env.Session.IsDirty())
	assert.True(t, env.Session.CanUndo())
	assert.True(t, env.Timer.IsArmed())
}

func TestSessionInsertNodeUnknownType(t *testing.T) {
	env := helpers.NewTestSession(t, "flow-1", nil)

	_, err := env.Session.InsertNode("sprocket", api.Position{})
	assert.Error(t, err)
	assert.False(t, env.Session.CanUndo())
}

func TestSessionFailedMutationLeavesNoHistory(t *testing.T) {
	env := helpers.NewTestSession(t, "flow-1", helpers.LinearDefinition())

	err := env.Session.AddNode(helpers.TestNode("start", api.NodeTypeAction))
	assert.ErrorIs(t, err, editor.ErrDuplicateNodeID)
	assert.False(t, env.Session.CanUndo())
	assert.False(t, env.Session.IsDirty())
}

func TestSessionConnectAndUndo(t *testing.T) {
	env := helpers.NewTestSession(t, "flow-1", helpers.LinearDefinition())

	_, err := env.Session.Connect(api.Connection{
		Source: "start",
		Target: "done",
		Kind:   api.EdgeKindFailure,
	})
	require.NoError(t, err)
	assert.Len(t, env.Session.Snapshot().Edges, 3)

	require.NoError(t, env.Session.Undo())
	assert.Len(t, env.Session.Snapshot().Edges, 2)

	require.NoError(t, env.Session.Redo())
	assert.Len(t, env.Session.Snapshot().Edges, 3)
}

func TestSessionUpdateNodeDataValidates(t *testing.T) {
	env := helpers.NewTestSession(t, "flow-1", nil)
	node, err := env.Session.InsertNode(api.NodeTypeWait, api.Position{})
	require.NoError(t, err)

	// durationMs must be an integer >= 0 per the catalog schema
	err = env.Session.UpdateNodeData(node.ID, api.NodeData{"durationMs": -5})
	assert.Error(t, err)

	err = env.Session.UpdateNodeData(node.ID, api.NodeData{"durationMs": 250})
	assert.NoError(t, err)
}

func TestSessionDeleteSelection(t *testing.T) {
	env := helpers.NewTestSession(t, "flow-1", helpers.LinearDefinition())

	require.NoError(t, env.Session.Select("work", false))
	require.NoError(t, env.Session.DeleteSelection())

	def := env.Session.Snapshot()
	assert.Len(t, def.Nodes, 2)
	assert.Empty(t, def.Edges)
}

func TestSessionSelectionOnlyBatchDoesNotDirty(t *testing.T) {
	env := helpers.NewTestSession(t, "flow-1", helpers.LinearDefinition())

	err := env.Session.ApplyNodeChanges([]api.NodeChange{
		{Type: api.ChangeSelect, ID: "start", Selected: true},
	})
	require.NoError(t, err)
	assert.False(t, env.Session.IsDirty())
	assert.False(t, env.Session.CanUndo())
	assert.False(t, env.Timer.IsArmed())
}

func TestSessionCopyPaste(t *testing.T) {
	env := helpers.NewTestSession(t, "flow-1", helpers.LinearDefinition())

	require.NoError(t, env.Session.Select("start", false))
	require.NoError(t, env.Session.Select("work", true))
	assert.Equal(t, 2, env.Session.Copy())

	pasted, err := env.Session.Paste()
	require.NoError(t, err)
	assert.Len(t, pasted, 2)
	assert.Len(t, env.Session.Snapshot().Nodes, 5)
}

func TestSessionReplaceDefinition(t *testing.T) {
	env := helpers.NewTestSession(t, "flow-1", nil)

	require.NoError(t,
		env.Session.ReplaceDefinition(helpers.LinearDefinition()))
	assert.Len(t, env.Session.Snapshot().Nodes, 3)
	assert.True(t, env.Session.IsDirty())

	err := env.Session.ReplaceDefinition(&api.FlowDefinition{
		Edges: []*api.Edge{helpers.TestEdge("e", "x", "y")},
	})
	assert.ErrorIs(t, err, api.ErrUnknownEndpoint)
	assert.Len(t, env.Session.Snapshot().Nodes, 3)
}

func TestSessionSaveClearsDirty(t *testing.T) {
	env := helpers.NewTestSession(t, "flow-1", helpers.LinearDefinition())

	_, err := env.Session.InsertNode(api.NodeTypeAction, api.Position{})
	require.NoError(t, err)
	require.True(t, env.Session.IsDirty())

	v, err := env.Session.SaveVersion(context.Background(), "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, api.VersionDraft, v.Status)
	assert.False(t, env.Session.IsDirty())

	// Undo after save leaves the graph touched again
	require.NoError(t, env.Session.Undo())
	assert.True(t, env.Session.IsDirty())
}

func TestSessionAutoSaveDebounce(t *testing.T) {
	env := helpers.NewTestSession(t, "flow-1", nil)

	for range 5 {
		_, err := env.Session.InsertNode(api.NodeTypeAction, api.Position{})
		require.NoError(t, err)
	}

	env.FireAutoSave(t)

	versions, err := env.Store.List(context.Background(), "flow-1")
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, persist.InitialDraftVersion, versions[0].Version)
	assert.Len(t, versions[0].Definition.Nodes, 5)
}

func TestSessionExecutionModeBlocksEditing(t *testing.T) {
	env := helpers.NewTestSession(t, "flow-1", helpers.LinearDefinition())
	ss := helpers.NewStreamServer(t)
	env.Engine.SetStreamURL(ss.URL())

	require.NoError(t, env.Session.Select("work", false))

	executionID, err := env.Session.StartExecution(context.Background())
	require.NoError(t, err)
	assert.True(t, env.Session.IsExecuting())

	// Entering execution mode cleared the selection
	assert.True(t, env.Session.Selection().IDs.IsEmpty())

	err = env.Session.AddNode(helpers.TestNode("x", api.NodeTypeAction))
	assert.ErrorIs(t, err, editor.ErrExecutionActive)
	assert.ErrorIs(t, env.Session.Undo(), editor.ErrExecutionActive)
	_, err = env.Session.Paste()
	assert.ErrorIs(t, err, editor.ErrExecutionActive)

	ss.Send(helpers.ExecEvent(
		executionID, api.EventExecutionCompleted, api.ExecCompleted,
	))
	helpers.WaitFor(t, func() bool {
		return env.Session.Overlay().Phase() == overlay.PhaseCompleted
	})

	// Still read-only until the overlay is dismissed
	err = env.Session.AddNode(helpers.TestNode("x", api.NodeTypeAction))
	assert.ErrorIs(t, err, editor.ErrExecutionActive)
}

func TestSessionOverlayJoinAndExit(t *testing.T) {
	env := helpers.NewTestSession(t, "flow-1", helpers.LinearDefinition())
	ss := helpers.NewStreamServer(t)
	env.Engine.SetStreamURL(ss.URL())

	before := env.Session.Snapshot()
	executionID, err := env.Session.StartExecution(context.Background())
	require.NoError(t, err)

	ss.Send(helpers.NodeEvent(
		executionID, api.EventNodeStarted, "work", api.ExecRunning,
	))
	helpers.WaitFor(t, func() bool {
		st, ok := env.Session.Overlay().Node("work")
		return ok && st.Status == api.ExecRunning
	})

	views := env.Session.NodeViews()
	require.Len(t, views, 3)
	for _, v := range views {
		if v.Node.ID == "work" {
			require.NotNil(t, v.Overlay)
			assert.Equal(t, api.ExecRunning, v.Overlay.Status)
		} else {
			assert.Nil(t, v.Overlay)
		}
	}

	env.Session.ExitExecutionMode()
	assert.False(t, env.Session.IsExecuting())
	assert.Equal(t, overlay.PhaseIdle, env.Session.Overlay().Phase())

	// Graph content is exactly as before execution began
	assert.Equal(t, before, env.Session.Snapshot())

	err = env.Session.AddNode(helpers.TestNode("x", api.NodeTypeAction))
	assert.NoError(t, err)
}

func TestSessionStopExecution(t *testing.T) {
	env := helpers.NewTestSession(t, "flow-1", helpers.LinearDefinition())
	ss := helpers.NewStreamServer(t)
	env.Engine.SetStreamURL(ss.URL())

	executionID, err := env.Session.StartExecution(context.Background())
	require.NoError(t, err)

	require.NoError(t, env.Session.StopExecution(context.Background()))
	assert.Equal(t, []api.ExecutionID{executionID}, env.Engine.Stopped())
	assert.Equal(t, overlay.PhaseStopped, env.Session.Overlay().Phase())
	assert.True(t, env.Session.IsExecuting())
}

func TestSessionStopWithoutExecution(t *testing.T) {
	env := helpers.NewTestSession(t, "flow-1", nil)
	err := env.Session.StopExecution(context.Background())
	assert.ErrorIs(t, err, editor.ErrNotExecuting)
}

func TestSessionEventSink(t *testing.T) {
	env := helpers.NewTestSession(t, "flow-1", helpers.LinearDefinition())
	ss := helpers.NewStreamServer(t)
	env.Engine.SetStreamURL(ss.URL())

	received := make(chan *api.ExecutionEvent, 8)
	env.Session.SetEventSink(func(ev *api.ExecutionEvent) {
		received <- ev
	})

	executionID, err := env.Session.StartExecution(context.Background())
	require.NoError(t, err)

	ss.Send(helpers.NodeEvent(
		executionID, api.EventNodeCompleted, "work", api.ExecCompleted,
	))

	ev := <-received
	assert.Equal(t, api.EventNodeCompleted, ev.Type)
	assert.Equal(t, api.NodeID("work"), ev.NodeID)
}

func TestSessionClosedRejectsMutation(t *testing.T) {
	env := helpers.NewTestSession(t, "flow-1", nil)
	env.Session.Close()

	err := env.Session.AddNode(helpers.TestNode("a", api.NodeTypeTrigger))
	assert.ErrorIs(t, err, editor.ErrSessionClosed)
}
