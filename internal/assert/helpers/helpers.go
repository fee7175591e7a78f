package helpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aiinpocket/n3n/editor/internal/editor"
	"github.com/aiinpocket/n3n/editor/internal/persist"
	"github.com/aiinpocket/n3n/editor/internal/registry"
	"github.com/aiinpocket/n3n/editor/pkg/api"
)

// TestEditorEnv holds all the components needed for editor testing
type TestEditorEnv struct {
	Session  *editor.Session
	Store    *persist.MemoryStore
	Registry *registry.Registry
	Engine   *MockEngine
	Clock    *FakeClock
	Timer    *FakeTimer
}

const waitTick = 5 * time.Millisecond

// NewTestSession creates a fully wired editor session over an in-memory
// store with a fake clock and debounce timer
func NewTestSession(
	t *testing.T, flowID api.FlowID, def *api.FlowDefinition,
) *TestEditorEnv {
	t.Helper()

	reg, err := registry.New()
	require.NoError(t, err)

	env := &TestEditorEnv{
		Store:    persist.NewMemoryStore(),
		Registry: reg,
		Engine:   NewMockEngine(),
		Clock:    NewFakeClock(),
		Timer:    NewFakeTimer(),
	}
	env.Session = editor.NewSession(
		flowID, def, env.Store, reg, env.Engine,
		persist.WithClock(env.Clock.Now, env.Timer.Constructor()),
	)
	t.Cleanup(env.Session.Close)
	return env
}

// FireAutoSave simulates the debounce window elapsing and waits for the
// resulting write to settle
func (env *TestEditorEnv) FireAutoSave(t *testing.T) {
	t.Helper()
	require.True(t, env.Timer.Fire())
	WaitFor(t, func() bool {
		return !env.Session.IsDirty()
	})
}

// WaitFor polls cond until it holds or the deadline passes
func WaitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if cond() {
			return
		}
		select {
		case <-deadline:
			t.Fatal("condition not met before deadline")
		case <-time.After(waitTick):
		}
	}
}

// TestNode builds a node with a fixed ID for deterministic graphs
func TestNode(id api.NodeID, t api.NodeType) *api.Node {
	return &api.Node{
		Data: api.NodeData{api.LabelKey: string(id)},
		ID:   id,
		Type: t,
	}
}

// TestNodeAt builds a node with a fixed ID and position
func TestNodeAt(id api.NodeID, t api.NodeType, x, y float64) *api.Node {
	node := TestNode(id, t)
	node.Position = api.Position{X: x, Y: y}
	return node
}

// TestEdge builds a success edge with a fixed ID
func TestEdge(id api.EdgeID, source, target api.NodeID) *api.Edge {
	return &api.Edge{
		ID:     id,
		Source: source,
		Target: target,
		Kind:   api.EdgeKindSuccess,
	}
}

// LinearDefinition builds trigger -> action -> output with success edges
func LinearDefinition() *api.FlowDefinition {
	return &api.FlowDefinition{
		Nodes: []*api.Node{
			TestNodeAt("start", api.NodeTypeTrigger, 0, 0),
			TestNodeAt("work", api.NodeTypeAction, 200, 0),
			TestNodeAt("done", api.NodeTypeOutput, 400, 0),
		},
		Edges: []*api.Edge{
			TestEdge("e1", "start", "work"),
			TestEdge("e2", "work", "done"),
		},
	}
}
