package api

type (
	// ChangeType discriminates the members of a direct-manipulation batch
	ChangeType string

	// NodeChange is one element of a batched node update produced by direct
	// manipulation (drag, marquee-select). A batch is applied atomically
	NodeChange struct {
		Node     *Node      `json:"node,omitempty"`
		Position *Position  `json:"position,omitempty"`
		ID       NodeID     `json:"id"`
		Type     ChangeType `json:"type"`
		Selected bool       `json:"selected,omitempty"`
	}

	// EdgeChange is one element of a batched edge update
	EdgeChange struct {
		Edge *Edge      `json:"edge,omitempty"`
		ID   EdgeID     `json:"id"`
		Type ChangeType `json:"type"`
	}
)

const (
	ChangeAdd      ChangeType = "add"
	ChangeRemove   ChangeType = "remove"
	ChangePosition ChangeType = "position"
	ChangeSelect   ChangeType = "select"
)
