package api

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

type (
	// FlowID is a unique identifier for a flow
	FlowID string

	// NodeID is a unique identifier for a node within a flow graph
	NodeID string

	// EdgeID is a unique identifier for an edge within a flow graph
	EdgeID string

	// ExecutionID identifies one remote execution of a flow
	ExecutionID string
)

// InvalidIDChars matches characters not permitted in flow IDs. Valid
// characters are: letters, digits, underscore, dot, hyphen, plus, space
var InvalidIDChars = regexp.MustCompile(`[^a-zA-Z0-9_.\-+ ]`)

// NewNodeID generates a fresh node identifier. Paste and duplicate always
// mint new IDs so repeated pastes never collide with their originals
func NewNodeID() NodeID {
	return NodeID(uuid.NewString())
}

// NewEdgeID generates a fresh edge identifier
func NewEdgeID() EdgeID {
	return EdgeID(uuid.NewString())
}

// SanitizeID lowercases an ID, removes invalid characters, replaces spaces
// with hyphens, and trims leading and trailing hyphens
func SanitizeID[T ~string](id T) T {
	lower := strings.ToLower(string(id))
	sanitized := InvalidIDChars.ReplaceAllString(lower, "")
	sanitized = strings.ReplaceAll(sanitized, " ", "-")
	return T(strings.Trim(sanitized, "-"))
}
