package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aiinpocket/n3n/editor/internal/client"
	"github.com/aiinpocket/n3n/editor/internal/overlay"
	"github.com/aiinpocket/n3n/editor/internal/persist"
	"github.com/aiinpocket/n3n/editor/internal/registry"
	"github.com/aiinpocket/n3n/editor/pkg/api"
	"github.com/aiinpocket/n3n/editor/pkg/log"
)

type (
	// Session is one flow's editor state: the graph, its history and
	// clipboard, the persistence coordinator, and the execution overlay.
	// Sessions are explicitly constructed, never ambient, so multiple
	// independent editors can coexist and tests stay deterministic. All
	// graph mutation is serialized through the session mutex; the
	// overlay is a separate resource written only by its subscriber
	Session struct {
		graph     *Graph
		history   *History
		clipboard *Clipboard
		overlay   *overlay.Overlay
		coord     *persist.Coordinator
		registry  *registry.Registry
		exec      client.ExecutionClient
		sub       *overlay.Subscriber
		sink      overlay.EventSink
		flowID    api.FlowID
		executing bool
		closed    bool
		mu        sync.Mutex
	}

	// NodeView joins a node with its overlay state at read time. The
	// overlay entry is nil outside execution mode
	NodeView struct {
		Node    *api.Node          `json:"node"`
		Overlay *overlay.NodeState `json:"overlay,omitempty"`
	}
)

var (
	ErrExecutionActive = errors.New("graph is read-only during execution")
	ErrNotExecuting    = errors.New("no execution in progress")
	ErrSessionClosed   = errors.New("session closed")
)

// NewSession constructs an editor session for one flow. The definition
// is the loaded graph, or nil for a new flow; coordinator options
// control the autosave debounce and draft slot
func NewSession(
	flowID api.FlowID, def *api.FlowDefinition, store persist.VersionStore,
	reg *registry.Registry, exec client.ExecutionClient,
	opts ...persist.Option,
) *Session {
	graph := NewGraphFromDefinition(def)
	history := NewHistory(graph)
	s := &Session{
		graph:     graph,
		history:   history,
		clipboard: NewClipboard(graph, history),
		overlay:   overlay.New(),
		registry:  reg,
		exec:      exec,
		flowID:    flowID,
	}
	s.coord = persist.NewCoordinator(
		flowID, store, s.snapshotLocked, s.markClean, opts...,
	)
	return s
}

// SetEventSink installs an observer for execution events relayed through
// this session's overlay subscription. Must be set before an execution
// starts
func (s *Session) SetEventSink(sink overlay.EventSink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink = sink
}

// FlowID returns the flow this session edits
func (s *Session) FlowID() api.FlowID {
	return s.flowID
}

// InsertNode adds a node of the given catalog type at the position and
// returns it. One history snapshot is taken before the mutation
func (s *Session) InsertNode(
	t api.NodeType, pos api.Position,
) (*api.Node, error) {
	node, err := s.registry.NewNode(t, pos)
	if err != nil {
		return nil, err
	}
	if err := s.AddNode(node); err != nil {
		return nil, err
	}
	return node, nil
}

// AddNode adds a fully specified node to the graph
func (s *Session) AddNode(node *api.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}

	s.history.Push()
	if err := s.graph.AddNode(node); err != nil {
		s.history.Discard()
		return err
	}
	s.coord.NotifyEdit()
	return nil
}

// Connect adds an edge between two existing nodes
func (s *Session) Connect(conn api.Connection) (*api.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return nil, err
	}

	s.history.Push()
	edge, err := s.graph.AddEdge(conn)
	if err != nil {
		s.history.Discard()
		return nil, err
	}
	s.coord.NotifyEdit()
	return edge, nil
}

// RemoveNodes deletes the named nodes and their edges as one
// history-tracked operation
func (s *Session) RemoveNodes(ids ...api.NodeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	s.history.Push()
	s.graph.RemoveNodes(ids...)
	s.coord.NotifyEdit()
	return nil
}

// DeleteSelection removes the currently selected nodes
func (s *Session) DeleteSelection() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}

	sel := s.graph.Selection()
	if sel.IDs.IsEmpty() {
		return nil
	}
	var ids []api.NodeID
	for id := range sel.IDs {
		ids = append(ids, id)
	}

	s.history.Push()
	s.graph.RemoveNodes(ids...)
	s.coord.NotifyEdit()
	return nil
}

// UpdateNodeData validates patch against the node type's config schema
// and shallow-merges it into the node's data. Silently a no-op when the
// node is unknown; config panels may lag a deletion by one render frame
func (s *Session) UpdateNodeData(id api.NodeID, patch api.NodeData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}

	node, ok := s.graph.Node(id)
	if !ok {
		return nil
	}
	merged := node.Data.Merge(patch)
	if err := s.registry.ValidateConfig(node.Type, merged); err != nil {
		return err
	}

	s.history.Push()
	s.graph.UpdateNodeData(id, patch)
	s.coord.NotifyEdit()
	return nil
}

// ApplyNodeChanges applies a direct-manipulation batch. Batches that
// mutate the graph take one history snapshot; selection-only batches
// take none
func (s *Session) ApplyNodeChanges(changes []api.NodeChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}

	if mutatesGraph(changes) {
		s.history.Push()
		if err := s.graph.ApplyNodeChanges(changes); err != nil {
			s.history.Discard()
			return err
		}
		s.coord.NotifyEdit()
		return nil
	}
	return s.graph.ApplyNodeChanges(changes)
}

// ApplyEdgeChanges applies a batched edge update
func (s *Session) ApplyEdgeChanges(changes []api.EdgeChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	if len(changes) == 0 {
		return nil
	}

	s.history.Push()
	if err := s.graph.ApplyEdgeChanges(changes); err != nil {
		s.history.Discard()
		return err
	}
	s.coord.NotifyEdit()
	return nil
}

// ReplaceDefinition swaps the entire graph for the given definition as
// one tracked mutation. Used when a detached client submits its own
// copy of the graph alongside a save
func (s *Session) ReplaceDefinition(def *api.FlowDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	if err := def.Validate(); err != nil {
		return err
	}

	s.history.Push()
	s.graph.Restore(def)
	s.coord.NotifyEdit()
	return nil
}

// Undo restores the state before the most recent mutation. The graph
// remains dirty even if undo returns it to the last-saved content; the
// dirty flag tracks touches, not content equality
func (s *Session) Undo() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	if !s.history.CanUndo() {
		return nil
	}

	s.history.Undo()
	s.coord.NotifyEdit()
	return nil
}

// Redo re-applies the most recently undone mutation
func (s *Session) Redo() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	if !s.history.CanRedo() {
		return nil
	}

	s.history.Redo()
	s.coord.NotifyEdit()
	return nil
}

// CanUndo reports whether an undo is available
func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanUndo()
}

// CanRedo reports whether a redo is available
func (s *Session) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanRedo()
}

// Copy snapshots the selection into the clipboard without mutating the
// graph; no history entry is taken
func (s *Session) Copy() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clipboard.Copy()
}

// Cut copies the selection and removes it as one tracked mutation
func (s *Session) Cut() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return 0, err
	}

	count := s.clipboard.Cut()
	if count > 0 {
		s.coord.NotifyEdit()
	}
	return count, nil
}

// Paste inserts a translated copy of the clipboard and selects it
func (s *Session) Paste() ([]api.NodeID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return nil, err
	}

	pasted := s.clipboard.Paste()
	if len(pasted) > 0 {
		s.coord.NotifyEdit()
	}
	return pasted, nil
}

// Duplicate copies and pastes the selection as one operation
func (s *Session) Duplicate() ([]api.NodeID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return nil, err
	}

	dup := s.clipboard.Duplicate()
	if len(dup) > 0 {
		s.coord.NotifyEdit()
	}
	return dup, nil
}

// Select makes a node the primary selection
func (s *Session) Select(id api.NodeID, additive bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.Select(id, additive)
}

// ClearSelection empties the selection, as on a background click
func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graph.ClearSelection()
}

// Selection returns the current selection state
func (s *Session) Selection() Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.Selection()
}

// Snapshot returns a deep copy of the current graph
func (s *Session) Snapshot() *api.FlowDefinition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.Snapshot()
}

// NodeViews returns the graph's nodes joined with overlay state. Outside
// execution mode the overlay column is empty
func (s *Session) NodeViews() []*NodeView {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := make([]*NodeView, 0, len(s.graph.Nodes()))
	for _, n := range s.graph.Nodes() {
		view := &NodeView{Node: n}
		if st, ok := s.overlay.Node(n.ID); ok {
			view.Overlay = &st
		}
		res = append(res, view)
	}
	return res
}

// Validate analyzes the current graph for structural problems
func (s *Session) Validate() *api.ValidationResponse {
	return Validate(s.Snapshot())
}

// IsDirty reports whether the graph was touched since the last write
func (s *Session) IsDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.IsDirty()
}

// SaveVersion validates the label and saves the current graph as a new
// draft version. A successful save clears the dirty flag
func (s *Session) SaveVersion(
	ctx context.Context, label string,
) (*api.FlowVersion, error) {
	return s.coord.SaveVersion(ctx, label)
}

// PublishVersion promotes a saved draft to the flow's single published
// version
func (s *Session) PublishVersion(
	ctx context.Context, label string,
) (*api.FlowVersion, error) {
	return s.coord.PublishVersion(ctx, label)
}

// Overlay exposes the execution overlay for rendering
func (s *Session) Overlay() *overlay.Overlay {
	return s.overlay
}

// IsExecuting reports whether the session is in execution mode
func (s *Session) IsExecuting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.executing
}

// StartExecution starts a remote execution of the flow and subscribes to
// its event stream. Entering execution mode clears the selection and
// disables graph mutation until the overlay is exited
func (s *Session) StartExecution(
	ctx context.Context,
) (api.ExecutionID, error) {
	executionID, err := s.exec.StartExecution(ctx, s.flowID, "")
	if err != nil {
		return "", err
	}
	if err := s.ResumeExecution(ctx, executionID); err != nil {
		return "", err
	}
	return executionID, nil
}

// ResumeExecution enters execution mode for an already-running
// execution, as when its ID arrives through the URL
func (s *Session) ResumeExecution(
	ctx context.Context, executionID api.ExecutionID,
) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.sub != nil {
		s.sub.Close()
		s.sub = nil
	}
	s.graph.ClearSelection()
	s.executing = true
	sink := s.sink
	s.mu.Unlock()

	sub, err := overlay.Subscribe(
		ctx, s.exec.StreamURL(executionID), executionID, s.overlay, sink,
	)
	if err != nil {
		// Stay in execution mode with a disconnected indicator; state
		// already shown must not be lost
		slog.Warn("Execution stream unavailable",
			log.FlowID(s.flowID),
			log.ExecutionID(executionID),
			log.Error(err))
		return fmt.Errorf("%w", err)
	}

	s.mu.Lock()
	s.sub = sub
	s.mu.Unlock()

	slog.Info("Execution started",
		log.FlowID(s.flowID),
		log.ExecutionID(executionID))
	return nil
}

// StopExecution cancels the remote execution and freezes the overlay.
// The session remains in execution mode until ExitExecutionMode
func (s *Session) StopExecution(ctx context.Context) error {
	s.mu.Lock()
	if !s.executing {
		s.mu.Unlock()
		return ErrNotExecuting
	}
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()

	executionID := s.overlay.ExecutionID()
	if sub != nil {
		sub.Close()
	}
	s.overlay.Stop()

	if err := s.exec.StopExecution(ctx, executionID); err != nil {
		return err
	}
	slog.Info("Execution stopped",
		log.FlowID(s.flowID),
		log.ExecutionID(executionID))
	return nil
}

// ExitExecutionMode tears down the overlay and restores the editable
// view. Node identity, positions, and config are exactly as they were
// before execution began
func (s *Session) ExitExecutionMode() {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	s.executing = false
	s.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
	s.overlay.Clear()
}

// Close cancels pending autosaves and tears down any execution
// subscription
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	sub := s.sub
	s.sub = nil
	s.executing = false
	s.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
	s.coord.Close()
}

func (s *Session) editable() error {
	if s.closed {
		return ErrSessionClosed
	}
	if s.executing {
		return ErrExecutionActive
	}
	return nil
}

func (s *Session) snapshotLocked() *api.FlowDefinition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.Snapshot()
}

func (s *Session) markClean() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graph.MarkClean()
}

func mutatesGraph(changes []api.NodeChange) bool {
	for _, ch := range changes {
		if ch.Type != api.ChangeSelect {
			return true
		}
	}
	return false
}
