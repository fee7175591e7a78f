package api

type (
	// SaveVersionRequest contains parameters for saving a flow version
	SaveVersionRequest struct {
		Definition *FlowDefinition `json:"definition"`
		Version    string          `json:"version"`
	}

	// FlowResponse is returned when loading a flow's graph
	FlowResponse struct {
		Definition       *FlowDefinition `json:"definition"`
		FlowID           FlowID          `json:"flow_id"`
		Version          string          `json:"version,omitempty"`
		PublishedVersion string          `json:"published_version,omitempty"`
	}

	// VersionListResponse contains a flow's saved versions, newest first
	VersionListResponse struct {
		Versions []*FlowVersion `json:"versions"`
		Count    int            `json:"count"`
	}

	// ExecutionStartedResponse is returned when an execution starts
	ExecutionStartedResponse struct {
		ExecutionID ExecutionID `json:"execution_id"`
		FlowID      FlowID      `json:"flow_id"`
	}

	// ValidationResponse reports structural analysis of a flow graph
	ValidationResponse struct {
		Errors         []string `json:"errors,omitempty"`
		Warnings       []string `json:"warnings,omitempty"`
		EntryPoints    []NodeID `json:"entry_points,omitempty"`
		ExitPoints     []NodeID `json:"exit_points,omitempty"`
		ExecutionOrder []NodeID `json:"execution_order,omitempty"`
		Valid          bool     `json:"valid"`
	}

	// HealthResponse reports service liveness
	HealthResponse struct {
		Service string `json:"service"`
		Version string `json:"version"`
		Status  string `json:"status"`
	}

	// MessageResponse contains a simple message string
	MessageResponse struct {
		Message string `json:"message"`
	}

	// ErrorResponse contains error details for failed requests
	ErrorResponse struct {
		Error  string `json:"error"`
		Status int    `json:"status,omitempty"`
	}
)
