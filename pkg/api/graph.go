package api

import (
	"errors"
	"fmt"
)

type (
	// NodeType selects rendering and config schema for a node
	NodeType string

	// EdgeKind describes the execution semantics of an edge
	EdgeKind string

	// NodeData holds arbitrary typed node configuration, including a label
	NodeData map[string]any

	// Position is a node's location on the canvas
	Position struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}

	// Node is a unit of work in the automation graph. The ID is generated
	// at creation time and immutable for the node's lifetime
	Node struct {
		Data     NodeData `json:"data"`
		ID       NodeID   `json:"id"`
		Type     NodeType `json:"type"`
		Position Position `json:"position"`
	}

	// Edge is a directed connection between two nodes. Source and target
	// must reference existing node IDs
	Edge struct {
		ID     EdgeID   `json:"id"`
		Source NodeID   `json:"source"`
		Target NodeID   `json:"target"`
		Kind   EdgeKind `json:"kind"`
	}

	// Connection contains the parameters for creating a new edge
	Connection struct {
		Source NodeID   `json:"source"`
		Target NodeID   `json:"target"`
		Kind   EdgeKind `json:"kind"`
	}

	// FlowDefinition is a complete snapshot of a flow graph
	FlowDefinition struct {
		Nodes []*Node `json:"nodes"`
		Edges []*Edge `json:"edges"`
	}
)

const (
	NodeTypeTrigger         NodeType = "trigger"
	NodeTypeAction          NodeType = "action"
	NodeTypeCondition       NodeType = "condition"
	NodeTypeLoop            NodeType = "loop"
	NodeTypeWait            NodeType = "wait"
	NodeTypeOutput          NodeType = "output"
	NodeTypeExternalService NodeType = "externalService"
	NodeTypeCustom          NodeType = "custom"
)

const (
	EdgeKindSuccess     EdgeKind = "success"
	EdgeKindFailure     EdgeKind = "failure"
	EdgeKindConditional EdgeKind = "conditional"
)

// LabelKey is the NodeData key holding the node's display label
const LabelKey = "label"

var (
	ErrNodeIDEmpty     = errors.New("node ID empty")
	ErrDuplicateNodeID = errors.New("duplicate node ID")
	ErrInvalidNodeType = errors.New("invalid node type")
	ErrEdgeSourceEmpty = errors.New("edge source empty")
	ErrEdgeTargetEmpty = errors.New("edge target empty")
	ErrUnknownEndpoint = errors.New("edge references unknown node")
)

// NodeTypes lists all recognized node types
var NodeTypes = []NodeType{
	NodeTypeTrigger, NodeTypeAction, NodeTypeCondition, NodeTypeLoop,
	NodeTypeWait, NodeTypeOutput, NodeTypeExternalService, NodeTypeCustom,
}

// Validate checks that a node carries an ID and a recognized type
func (n *Node) Validate() error {
	if n.ID == "" {
		return ErrNodeIDEmpty
	}
	if !n.Type.IsValid() {
		return ErrInvalidNodeType
	}
	return nil
}

// Clone returns a deep copy of the node
func (n *Node) Clone() *Node {
	res := *n
	res.Data = n.Data.Clone()
	return &res
}

// Label returns the node's display label, or an empty string
func (n *Node) Label() string {
	if label, ok := n.Data[LabelKey].(string); ok {
		return label
	}
	return ""
}

// IsValid returns true if the node type is one of the recognized types
func (t NodeType) IsValid() bool {
	for _, nt := range NodeTypes {
		if t == nt {
			return true
		}
	}
	return false
}

// Validate checks that a connection names both endpoints
func (c *Connection) Validate() error {
	if c.Source == "" {
		return ErrEdgeSourceEmpty
	}
	if c.Target == "" {
		return ErrEdgeTargetEmpty
	}
	return nil
}

// Clone returns a copy of the edge
func (e *Edge) Clone() *Edge {
	res := *e
	return &res
}

// Clone returns a deep copy of the node data, descending into nested maps
// and slices so a snapshot is never invalidated by a later in-place edit
func (d NodeData) Clone() NodeData {
	if d == nil {
		return nil
	}
	res := make(NodeData, len(d))
	for k, v := range d {
		res[k] = cloneValue(v)
	}
	return res
}

// Merge shallow-merges patch into a copy of the data
func (d NodeData) Merge(patch NodeData) NodeData {
	res := d.Clone()
	if res == nil {
		res = make(NodeData, len(patch))
	}
	for k, v := range patch {
		res[k] = cloneValue(v)
	}
	return res
}

// Validate checks structural integrity of a definition: every node
// valid and uniquely identified, every edge endpoint resolvable
func (f *FlowDefinition) Validate() error {
	ids := make(map[NodeID]struct{}, len(f.Nodes))
	for _, n := range f.Nodes {
		if err := n.Validate(); err != nil {
			return err
		}
		if _, ok := ids[n.ID]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateNodeID, n.ID)
		}
		ids[n.ID] = struct{}{}
	}
	for _, e := range f.Edges {
		if _, ok := ids[e.Source]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownEndpoint, e.Source)
		}
		if _, ok := ids[e.Target]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownEndpoint, e.Target)
		}
	}
	return nil
}

// Clone returns a deep copy of the definition
func (f *FlowDefinition) Clone() *FlowDefinition {
	res := &FlowDefinition{
		Nodes: make([]*Node, len(f.Nodes)),
		Edges: make([]*Edge, len(f.Edges)),
	}
	for i, n := range f.Nodes {
		res.Nodes[i] = n.Clone()
	}
	for i, e := range f.Edges {
		res.Edges[i] = e.Clone()
	}
	return res
}

func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		res := make(map[string]any, len(v))
		for k, e := range v {
			res[k] = cloneValue(e)
		}
		return res
	case NodeData:
		return v.Clone()
	case []any:
		res := make([]any, len(v))
		for i, e := range v {
			res[i] = cloneValue(e)
		}
		return res
	default:
		return v
	}
}
