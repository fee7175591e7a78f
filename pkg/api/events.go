package api

import "time"

type (
	// EventType identifies an execution event on the wire
	EventType string

	// ExecStatus is the transient execution status of a single node, or of
	// the execution as a whole for terminal events
	ExecStatus string

	// ExecutionEvent is one event on an execution's push stream. Node-level
	// events carry a NodeID; terminal events leave it empty
	ExecutionEvent struct {
		Timestamp   time.Time      `json:"timestamp"`
		Data        map[string]any `json:"data,omitempty"`
		ExecutionID ExecutionID    `json:"execution_id"`
		Type        EventType      `json:"type"`
		Status      ExecStatus     `json:"status"`
		NodeID      NodeID         `json:"node_id,omitempty"`
		Error       string         `json:"error,omitempty"`
		DurationMs  int64          `json:"duration_ms,omitempty"`
	}

	// ConnState is the observable state of the event stream connection
	ConnState string
)

const (
	EventExecutionStarted   EventType = "EXECUTION_STARTED"
	EventNodeStarted        EventType = "NODE_STARTED"
	EventNodeCompleted      EventType = "NODE_COMPLETED"
	EventNodeFailed         EventType = "NODE_FAILED"
	EventExecutionCompleted EventType = "EXECUTION_COMPLETED"
	EventExecutionFailed    EventType = "EXECUTION_FAILED"
	EventExecutionCancelled EventType = "EXECUTION_CANCELLED"
)

const (
	ExecIdle      ExecStatus = "idle"
	ExecRunning   ExecStatus = "running"
	ExecCompleted ExecStatus = "completed"
	ExecFailed    ExecStatus = "failed"
	ExecCancelled ExecStatus = "cancelled"
)

const (
	ConnConnected    ConnState = "connected"
	ConnDisconnected ConnState = "disconnected"
)

// IsTerminal returns true for events that end an execution's stream
func (t EventType) IsTerminal() bool {
	switch t {
	case EventExecutionCompleted, EventExecutionFailed,
		EventExecutionCancelled:
		return true
	default:
		return false
	}
}

// IsNodeEvent returns true for events scoped to a single node
func (t EventType) IsNodeEvent() bool {
	switch t {
	case EventNodeStarted, EventNodeCompleted, EventNodeFailed:
		return true
	default:
		return false
	}
}
