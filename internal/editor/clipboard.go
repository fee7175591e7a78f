package editor

import (
	"github.com/aiinpocket/n3n/editor/internal/util"
	"github.com/aiinpocket/n3n/editor/pkg/api"
)

// Clipboard implements copy, cut, paste, and duplicate of selected
// subgraphs. The buffer holds a deep copy of a previously selected node
// set plus only those edges whose endpoints are both in that set;
// cross-boundary edges are dropped, never partially copied. The buffer
// survives across pastes and is overwritten on every copy or cut
type Clipboard struct {
	graph   *Graph
	history *History
	buffer  *api.FlowDefinition
}

// PasteOffset is the fixed position delta applied to pasted nodes so
// copies are visually distinguishable from their originals
const PasteOffset = 40.0

// NewClipboard creates a clipboard over the given graph and history
func NewClipboard(graph *Graph, history *History) *Clipboard {
	return &Clipboard{
		graph:   graph,
		history: history,
	}
}

// Copy snapshots the selected nodes and their internal edges into the
// buffer. Non-mutating: the graph and history are untouched
func (c *Clipboard) Copy() int {
	selected := c.graph.SelectedNodes()
	if len(selected) == 0 {
		return 0
	}

	ids := util.Set[api.NodeID]{}
	buf := &api.FlowDefinition{}
	for _, n := range selected {
		ids.Add(n.ID)
		buf.Nodes = append(buf.Nodes, n.Clone())
	}
	for _, e := range c.graph.Edges() {
		if ids.Contains(e.Source) && ids.Contains(e.Target) {
			buf.Edges = append(buf.Edges, e.Clone())
		}
	}

	c.buffer = buf
	return len(buf.Nodes)
}

// Cut copies the selection and then removes it as one history-tracked
// mutation
func (c *Clipboard) Cut() int {
	count := c.Copy()
	if count == 0 {
		return 0
	}

	var ids []api.NodeID
	for _, n := range c.buffer.Nodes {
		ids = append(ids, n.ID)
	}
	c.history.Push()
	c.graph.RemoveNodes(ids...)
	return count
}

// Paste inserts a translated copy of the buffer as one history-tracked
// mutation and selects the pasted nodes. Every pasted node receives a
// freshly generated ID and an offset position; edge endpoints are
// remapped through a translation map built during this paste, so each
// call produces a structurally distinct, internally consistent copy
func (c *Clipboard) Paste() []api.NodeID {
	if c.buffer == nil || len(c.buffer.Nodes) == 0 {
		return nil
	}

	translate := make(map[api.NodeID]api.NodeID, len(c.buffer.Nodes))
	var pasted []api.NodeID

	c.history.Push()
	for _, n := range c.buffer.Nodes {
		node := n.Clone()
		node.ID = api.NewNodeID()
		node.Position.X += PasteOffset
		node.Position.Y += PasteOffset
		translate[n.ID] = node.ID
		// Buffer IDs are unique and fresh IDs cannot collide
		_ = c.graph.addNode(node)
		pasted = append(pasted, node.ID)
	}
	for _, e := range c.buffer.Edges {
		edge := e.Clone()
		edge.ID = api.NewEdgeID()
		edge.Source = translate[e.Source]
		edge.Target = translate[e.Target]
		c.graph.edges = append(c.graph.edges, edge)
	}
	c.graph.dirty = true

	c.graph.SelectMany(pasted...)
	return pasted
}

// Duplicate copies the selection and pastes it as one operation. The
// duplicated nodes become the new selection
func (c *Clipboard) Duplicate() []api.NodeID {
	if c.Copy() == 0 {
		return nil
	}
	return c.Paste()
}

// HasContent reports whether a paste would insert anything
func (c *Clipboard) HasContent() bool {
	return c.buffer != nil && len(c.buffer.Nodes) > 0
}
