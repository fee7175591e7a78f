package overlay

import (
	"sync"

	"github.com/aiinpocket/n3n/editor/pkg/api"
)

type (
	// Phase is the overlay's per-execution lifecycle state
	Phase string

	// NodeState is the transient execution status of one node, derived
	// entirely from the event stream and never merged into the node
	NodeState struct {
		Status     api.ExecStatus `json:"status"`
		Error      string         `json:"error,omitempty"`
		DurationMs int64          `json:"duration_ms,omitempty"`
	}

	// Overlay is a read-only side table of execution state keyed by node
	// ID, joined with the editable graph at render time. It is created
	// when an execution starts and discarded when execution mode exits;
	// the underlying nodes and edges are never touched. Safe for
	// concurrent use: the subscriber writes while the render path reads
	Overlay struct {
		nodes       map[api.NodeID]*NodeState
		executionID api.ExecutionID
		phase       Phase
		conn        api.ConnState
		err         string
		mu          sync.RWMutex
	}
)

const (
	PhaseIdle       Phase = "idle"
	PhaseConnecting Phase = "connecting"
	PhaseStreaming  Phase = "streaming"
	PhaseCompleted  Phase = "completed"
	PhaseFailed     Phase = "failed"
	PhaseStopped    Phase = "stopped"
)

// New creates an idle overlay
func New() *Overlay {
	return &Overlay{
		nodes: map[api.NodeID]*NodeState{},
		phase: PhaseIdle,
		conn:  api.ConnDisconnected,
	}
}

// Begin resets the table for a new execution and enters the connecting
// phase. Any state from a previous execution is discarded
func (o *Overlay) Begin(executionID api.ExecutionID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.executionID = executionID
	o.nodes = map[api.NodeID]*NodeState{}
	o.phase = PhaseConnecting
	o.err = ""
}

// Apply projects one stream event onto the table. Events are applied in
// arrival order with no reordering or coalescing; the last writer for a
// node ID wins, while distinct node IDs are independent. Events for
// other executions are ignored
func (o *Overlay) Apply(ev *api.ExecutionEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.phase == PhaseIdle || ev.ExecutionID != o.executionID {
		return
	}

	switch {
	case ev.Type == api.EventExecutionStarted:
		o.phase = PhaseStreaming
	case ev.Type.IsNodeEvent():
		if o.phase == PhaseConnecting {
			o.phase = PhaseStreaming
		}
		o.nodes[ev.NodeID] = &NodeState{
			Status:     ev.Status,
			Error:      ev.Error,
			DurationMs: ev.DurationMs,
		}
	case ev.Type == api.EventExecutionCompleted:
		o.phase = PhaseCompleted
	case ev.Type == api.EventExecutionFailed:
		o.phase = PhaseFailed
		o.err = ev.Error
	case ev.Type == api.EventExecutionCancelled:
		o.phase = PhaseStopped
	}
}

// Stop freezes the table and marks the overlay stopped. Already-received
// node state remains visible until Clear
func (o *Overlay) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.phase == PhaseIdle {
		return
	}
	o.phase = PhaseStopped
}

// Clear tears the overlay down on leaving execution mode, restoring the
// idle phase with an empty table
func (o *Overlay) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.executionID = ""
	o.nodes = map[api.NodeID]*NodeState{}
	o.phase = PhaseIdle
	o.err = ""
	o.conn = api.ConnDisconnected
}

// SetConnState records stream connectivity. A disconnect downgrades the
// indicator without clearing already-received state
func (o *Overlay) SetConnState(state api.ConnState) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.conn = state
}

// ConnState returns the stream's observable connection state
func (o *Overlay) ConnState() api.ConnState {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.conn
}

// Phase returns the overlay's current lifecycle phase
func (o *Overlay) Phase() Phase {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.phase
}

// ExecutionID returns the execution the overlay is tracking
func (o *Overlay) ExecutionID() api.ExecutionID {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.executionID
}

// Error returns the terminal error for a failed execution
func (o *Overlay) Error() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.err
}

// Node returns the overlay entry for one node, if any
func (o *Overlay) Node(id api.NodeID) (NodeState, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	st, ok := o.nodes[id]
	if !ok {
		return NodeState{}, false
	}
	return *st, true
}

// Snapshot returns a copy of the full node state table
func (o *Overlay) Snapshot() map[api.NodeID]NodeState {
	o.mu.RLock()
	defer o.mu.RUnlock()
	res := make(map[api.NodeID]NodeState, len(o.nodes))
	for id, st := range o.nodes {
		res[id] = *st
	}
	return res
}
