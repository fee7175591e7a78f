package editor

import (
	"errors"
	"fmt"
	"slices"

	"github.com/aiinpocket/n3n/editor/internal/util"
	"github.com/aiinpocket/n3n/editor/pkg/api"
)

type (
	// Graph owns the canonical node and edge collections for one editor
	// session, along with selection state and the dirty flag. It is the
	// single source of truth: all mutation goes through its methods so
	// history snapshots remain valid. Not safe for concurrent use; the
	// owning Session serializes access
	Graph struct {
		nodes   []*api.Node
		edges   []*api.Edge
		byID    map[api.NodeID]*api.Node
		sel     Selection
		dirty   bool
	}

	// Selection tracks the selected node set and the primary node. The
	// primary is always a member of the set when non-empty
	Selection struct {
		Primary api.NodeID
		IDs     util.Set[api.NodeID]
	}
)

var (
	ErrDuplicateNodeID = errors.New("duplicate node ID")
	ErrDuplicateEdge   = errors.New("duplicate edge")
	ErrNodeNotFound    = errors.New("node not found")
)

// NewGraph creates an empty graph
func NewGraph() *Graph {
	return &Graph{
		byID: map[api.NodeID]*api.Node{},
		sel: Selection{
			IDs: util.Set[api.NodeID]{},
		},
	}
}

// NewGraphFromDefinition creates a graph populated from a saved snapshot.
// The definition is deep-copied and the graph starts clean
func NewGraphFromDefinition(def *api.FlowDefinition) *Graph {
	g := NewGraph()
	if def != nil {
		g.restore(def.Clone())
	}
	return g
}

// AddNode validates and appends a node, then marks the graph dirty. The
// node ID must not already be present
func (g *Graph) AddNode(node *api.Node) error {
	if err := g.addNode(node); err != nil {
		return err
	}
	g.dirty = true
	return nil
}

// AddEdge validates a connection against the current node set and appends
// the resulting edge. Both endpoints must exist and the same
// source+target+kind combination must not already be connected
func (g *Graph) AddEdge(conn api.Connection) (*api.Edge, error) {
	if err := conn.Validate(); err != nil {
		return nil, err
	}
	edge := &api.Edge{
		ID:     api.NewEdgeID(),
		Source: conn.Source,
		Target: conn.Target,
		Kind:   conn.Kind,
	}
	if err := g.checkEdge(edge); err != nil {
		return nil, err
	}
	g.edges = append(g.edges, edge)
	g.dirty = true
	return edge, nil
}

// ApplyNodeChanges applies a batch of direct-manipulation updates
// atomically, with a single dirty-flag transition. Selection-only batches
// do not touch the dirty flag since selection is never persisted
func (g *Graph) ApplyNodeChanges(changes []api.NodeChange) error {
	seen := util.Set[api.NodeID]{}
	for _, ch := range changes {
		if ch.Type != api.ChangeAdd {
			continue
		}
		if ch.Node == nil {
			continue
		}
		if err := ch.Node.Validate(); err != nil {
			return err
		}
		if _, ok := g.byID[ch.Node.ID]; ok || seen.Contains(ch.Node.ID) {
			return fmt.Errorf("%w: %s", ErrDuplicateNodeID, ch.Node.ID)
		}
		seen.Add(ch.Node.ID)
	}

	mutated := false
	for _, ch := range changes {
		switch ch.Type {
		case api.ChangeAdd:
			if ch.Node == nil {
				continue
			}
			_ = g.addNode(ch.Node)
			mutated = true
		case api.ChangeRemove:
			if g.removeNode(ch.ID) {
				mutated = true
			}
		case api.ChangePosition:
			if node, ok := g.byID[ch.ID]; ok && ch.Position != nil {
				node.Position = *ch.Position
				mutated = true
			}
		case api.ChangeSelect:
			g.setSelected(ch.ID, ch.Selected)
		}
	}
	if mutated {
		g.dirty = true
	}
	return nil
}

// ApplyEdgeChanges applies a batch of edge updates atomically. Added
// edges are held to the same rules as AddEdge: both endpoints must exist
// and the source+target+kind combination must be new. A bad add rejects
// the whole batch before anything mutates
func (g *Graph) ApplyEdgeChanges(changes []api.EdgeChange) error {
	seen := util.Set[api.Connection]{}
	for _, ch := range changes {
		if ch.Type != api.ChangeAdd || ch.Edge == nil {
			continue
		}
		if err := g.checkEdge(ch.Edge); err != nil {
			return err
		}
		conn := api.Connection{
			Source: ch.Edge.Source,
			Target: ch.Edge.Target,
			Kind:   ch.Edge.Kind,
		}
		if seen.Contains(conn) {
			return fmt.Errorf("%w: %s->%s",
				ErrDuplicateEdge, conn.Source, conn.Target)
		}
		seen.Add(conn)
	}

	mutated := false
	for _, ch := range changes {
		switch ch.Type {
		case api.ChangeAdd:
			if ch.Edge != nil {
				g.edges = append(g.edges, ch.Edge.Clone())
				mutated = true
			}
		case api.ChangeRemove:
			before := len(g.edges)
			g.edges = slices.DeleteFunc(g.edges, func(e *api.Edge) bool {
				return e.ID == ch.ID
			})
			if len(g.edges) != before {
				mutated = true
			}
		}
	}
	if mutated {
		g.dirty = true
	}
	return nil
}

// RemoveNodes removes the named nodes and every edge touching them in one
// atomic step, so no dangling edge can survive. Unknown IDs are ignored
func (g *Graph) RemoveNodes(ids ...api.NodeID) {
	removed := false
	for _, id := range ids {
		if g.removeNode(id) {
			removed = true
		}
	}
	if removed {
		g.dirty = true
	}
}

// UpdateNodeData shallow-merges patch into the node's data and marks the
// graph dirty. A no-op if the node is unknown; config panels may lag a
// deletion by one render frame
func (g *Graph) UpdateNodeData(id api.NodeID, patch api.NodeData) {
	node, ok := g.byID[id]
	if !ok {
		return
	}
	node.Data = node.Data.Merge(patch)
	g.dirty = true
}

// Node returns the node with the given ID, if present
func (g *Graph) Node(id api.NodeID) (*api.Node, bool) {
	node, ok := g.byID[id]
	return node, ok
}

// Nodes returns the node collection in insertion order
func (g *Graph) Nodes() []*api.Node {
	return g.nodes
}

// Edges returns the edge collection in insertion order
func (g *Graph) Edges() []*api.Edge {
	return g.edges
}

// Snapshot returns an immutable deep copy of the current graph
func (g *Graph) Snapshot() *api.FlowDefinition {
	def := &api.FlowDefinition{
		Nodes: g.nodes,
		Edges: g.edges,
	}
	return def.Clone()
}

// Restore replaces the graph contents with the provided snapshot, as on
// undo or redo. The graph is marked dirty: the flag tracks touches since
// the last write, not content equality with the saved state
func (g *Graph) Restore(def *api.FlowDefinition) {
	g.restore(def.Clone())
	g.dirty = true
}

// IsDirty reports whether the graph was touched since the last successful
// persistence operation
func (g *Graph) IsDirty() bool {
	return g.dirty
}

// MarkClean clears the dirty flag after a successful write
func (g *Graph) MarkClean() {
	g.dirty = false
}

// Select makes the given node the primary selection. Additive extends the
// current set; otherwise the selection is replaced
func (g *Graph) Select(id api.NodeID, additive bool) error {
	if _, ok := g.byID[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	if !additive {
		g.sel.IDs = util.Set[api.NodeID]{}
	}
	g.sel.IDs.Add(id)
	g.sel.Primary = id
	return nil
}

// SelectMany replaces the selection with the given set, using the first
// element as the primary
func (g *Graph) SelectMany(ids ...api.NodeID) {
	g.sel.IDs = util.Set[api.NodeID]{}
	g.sel.Primary = ""
	for _, id := range ids {
		if _, ok := g.byID[id]; !ok {
			continue
		}
		g.sel.IDs.Add(id)
		if g.sel.Primary == "" {
			g.sel.Primary = id
		}
	}
}

// ClearSelection empties the selection, as on a background click or on
// entering execution mode
func (g *Graph) ClearSelection() {
	g.sel.IDs = util.Set[api.NodeID]{}
	g.sel.Primary = ""
}

// Selection returns the current selection state
func (g *Graph) Selection() Selection {
	return Selection{
		Primary: g.sel.Primary,
		IDs:     g.sel.IDs.Clone(),
	}
}

// SelectedNodes returns the selected nodes in insertion order
func (g *Graph) SelectedNodes() []*api.Node {
	var res []*api.Node
	for _, n := range g.nodes {
		if g.sel.IDs.Contains(n.ID) {
			res = append(res, n)
		}
	}
	return res
}

func (g *Graph) addNode(node *api.Node) error {
	if err := node.Validate(); err != nil {
		return err
	}
	if _, ok := g.byID[node.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateNodeID, node.ID)
	}
	n := node.Clone()
	g.nodes = append(g.nodes, n)
	g.byID[n.ID] = n
	return nil
}

func (g *Graph) checkEdge(edge *api.Edge) error {
	if _, ok := g.byID[edge.Source]; !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, edge.Source)
	}
	if _, ok := g.byID[edge.Target]; !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, edge.Target)
	}
	for _, e := range g.edges {
		if e.Source == edge.Source && e.Target == edge.Target &&
			e.Kind == edge.Kind {
			return fmt.Errorf("%w: %s->%s",
				ErrDuplicateEdge, edge.Source, edge.Target)
		}
	}
	return nil
}

func (g *Graph) removeNode(id api.NodeID) bool {
	if _, ok := g.byID[id]; !ok {
		return false
	}
	delete(g.byID, id)
	g.nodes = slices.DeleteFunc(g.nodes, func(n *api.Node) bool {
		return n.ID == id
	})
	g.edges = slices.DeleteFunc(g.edges, func(e *api.Edge) bool {
		return e.Source == id || e.Target == id
	})
	g.sel.IDs.Remove(id)
	if g.sel.Primary == id {
		g.sel.Primary = ""
	}
	return true
}

func (g *Graph) setSelected(id api.NodeID, selected bool) {
	if _, ok := g.byID[id]; !ok {
		return
	}
	if selected {
		g.sel.IDs.Add(id)
		if g.sel.Primary == "" {
			g.sel.Primary = id
		}
		return
	}
	g.sel.IDs.Remove(id)
	if g.sel.Primary == id {
		g.sel.Primary = ""
	}
}

func (g *Graph) restore(def *api.FlowDefinition) {
	g.nodes = def.Nodes
	g.edges = def.Edges
	g.byID = make(map[api.NodeID]*api.Node, len(def.Nodes))
	for _, n := range g.nodes {
		g.byID[n.ID] = n
	}
	g.sel.IDs = util.Set[api.NodeID]{}
	g.sel.Primary = ""
}
