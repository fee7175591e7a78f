package editor

import "github.com/aiinpocket/n3n/editor/pkg/api"

// History is a linear undo/redo stack of graph snapshots. Callers push a
// snapshot before performing a logical mutation; UI flows that batch
// several store calls into one user action push exactly once. All
// operations are pure in-memory and silently safe on empty stacks
type History struct {
	graph *Graph
	undo  []*api.FlowDefinition
	redo  []*api.FlowDefinition
	depth int
}

// DefaultHistoryDepth bounds the undo stack; the oldest entry is dropped
// first when the bound is exceeded
const DefaultHistoryDepth = 100

// NewHistory creates a history manager over the given graph
func NewHistory(graph *Graph) *History {
	return &History{
		graph: graph,
		depth: DefaultHistoryDepth,
	}
}

// Push records the current graph state onto the undo stack. Any new edit
// invalidates the redo stack; redo is only valid immediately after an
// undo with no intervening mutation
func (h *History) Push() {
	h.undo = append(h.undo, h.graph.Snapshot())
	if len(h.undo) > h.depth {
		h.undo = h.undo[1:]
	}
	h.redo = nil
}

// Undo restores the most recently pushed snapshot, moving the current
// state onto the redo stack. A no-op when the undo stack is empty
func (h *History) Undo() {
	if len(h.undo) == 0 {
		return
	}
	last := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, h.graph.Snapshot())
	h.graph.Restore(last)
}

// Redo re-applies the most recently undone state. A no-op when the redo
// stack is empty
func (h *History) Redo() {
	if len(h.redo) == 0 {
		return
	}
	last := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, h.graph.Snapshot())
	h.graph.Restore(last)
}

// Discard drops the most recently pushed snapshot without restoring it,
// used when the mutation the snapshot was taken for did not happen
func (h *History) Discard() {
	if len(h.undo) == 0 {
		return
	}
	h.undo = h.undo[:len(h.undo)-1]
}

// CanUndo reports whether an undo is available
func (h *History) CanUndo() bool {
	return len(h.undo) > 0
}

// CanRedo reports whether a redo is available
func (h *History) CanRedo() bool {
	return len(h.redo) > 0
}

// Clear drops both stacks, as when a different flow is loaded
func (h *History) Clear() {
	h.undo = nil
	h.redo = nil
}
