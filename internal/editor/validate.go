package editor

import (
	"fmt"

	"github.com/aiinpocket/n3n/editor/pkg/api"
)

// Validate analyzes a flow definition for structural problems: dangling
// edge endpoints, self-loops, cycles, and missing entry points are
// errors; missing exit points and unreachable nodes are warnings. When
// the graph is a DAG, a topological execution order is included
func Validate(def *api.FlowDefinition) *api.ValidationResponse {
	res := &api.ValidationResponse{}
	if def == nil || len(def.Nodes) == 0 {
		res.Errors = append(res.Errors, "flow has no nodes")
		return res
	}

	nodes := make(map[api.NodeID]*api.Node, len(def.Nodes))
	for _, n := range def.Nodes {
		nodes[n.ID] = n
	}

	inDegree := make(map[api.NodeID]int, len(def.Nodes))
	outDegree := make(map[api.NodeID]int, len(def.Nodes))
	adjacency := map[api.NodeID][]api.NodeID{}
	for _, e := range def.Edges {
		if _, ok := nodes[e.Source]; !ok {
			res.Errors = append(res.Errors, fmt.Sprintf(
				"edge references non-existent source node: %s", e.Source))
			continue
		}
		if _, ok := nodes[e.Target]; !ok {
			res.Errors = append(res.Errors, fmt.Sprintf(
				"edge references non-existent target node: %s", e.Target))
			continue
		}
		if e.Source == e.Target {
			res.Errors = append(res.Errors, fmt.Sprintf(
				"self-loop detected on node: %s", e.Source))
			continue
		}
		inDegree[e.Target]++
		outDegree[e.Source]++
		adjacency[e.Source] = append(adjacency[e.Source], e.Target)
	}

	for _, n := range def.Nodes {
		if inDegree[n.ID] == 0 {
			res.EntryPoints = append(res.EntryPoints, n.ID)
		}
		if outDegree[n.ID] == 0 {
			res.ExitPoints = append(res.ExitPoints, n.ID)
		}
	}

	if len(res.EntryPoints) == 0 {
		res.Errors = append(res.Errors,
			"flow has no entry points; every node has an incoming edge")
	}
	if len(res.ExitPoints) == 0 {
		res.Warnings = append(res.Warnings,
			"flow has no exit points; every node has an outgoing edge")
	}

	order, acyclic := topoSort(def.Nodes, inDegree, adjacency)
	if !acyclic {
		res.Errors = append(res.Errors,
			"cycle detected; flow must be a directed acyclic graph")
	} else {
		res.ExecutionOrder = order
	}

	if acyclic {
		for _, id := range unreachable(def.Nodes, adjacency) {
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"node %s is unreachable from any trigger", id))
		}
	}

	res.Valid = len(res.Errors) == 0
	return res
}

// topoSort runs Kahn's algorithm; ok is false when a cycle remains
func topoSort(
	nodes []*api.Node, inDegree map[api.NodeID]int,
	adjacency map[api.NodeID][]api.NodeID,
) ([]api.NodeID, bool) {
	degrees := make(map[api.NodeID]int, len(nodes))
	var queue []api.NodeID
	for _, n := range nodes {
		degrees[n.ID] = inDegree[n.ID]
		if degrees[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}

	var order []api.NodeID
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)
		for _, next := range adjacency[id] {
			degrees[next]--
			if degrees[next] == 0 {
				queue = append(queue, next)
			}
		}
	}
	return order, len(order) == len(nodes)
}

// unreachable lists nodes with no path from any trigger node. Skipped
// entirely when the flow has no triggers, since nothing is reachable then
func unreachable(
	nodes []*api.Node, adjacency map[api.NodeID][]api.NodeID,
) []api.NodeID {
	var stack []api.NodeID
	for _, n := range nodes {
		if n.Type == api.NodeTypeTrigger {
			stack = append(stack, n.ID)
		}
	}
	if len(stack) == 0 {
		return nil
	}

	seen := map[api.NodeID]bool{}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			continue
		}
		seen[id] = true
		stack = append(stack, adjacency[id]...)
	}

	var res []api.NodeID
	for _, n := range nodes {
		if !seen[n.ID] {
			res = append(res, n.ID)
		}
	}
	return res
}
