package helpers

import (
	"context"
	"fmt"
	"sync"

	"github.com/aiinpocket/n3n/editor/pkg/api"
)

// MockEngine is a mock implementation of client.ExecutionClient for
// testing. It mints sequential execution IDs and records every control
// call
type MockEngine struct {
	started   []api.FlowID
	stopped   []api.ExecutionID
	startErr  error
	stopErr   error
	streamURL string
	nextID    int
	mu        sync.Mutex
}

// NewMockEngine creates a mock engine client. The stream URL defaults to
// an address nothing listens on, so subscriptions fail fast unless a
// stream server is attached
func NewMockEngine() *MockEngine {
	return &MockEngine{
		streamURL: "ws://127.0.0.1:1/executions",
	}
}

// SetStreamURL points the engine's event stream at a test server
func (m *MockEngine) SetStreamURL(url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streamURL = url
}

// SetStartError configures StartExecution to fail
func (m *MockEngine) SetStartError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startErr = err
}

// SetStopError configures StopExecution to fail
func (m *MockEngine) SetStopError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopErr = err
}

// StartExecution records the call and returns a fresh execution ID
func (m *MockEngine) StartExecution(
	_ context.Context, flowID api.FlowID, _ string,
) (api.ExecutionID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return "", m.startErr
	}
	m.nextID++
	m.started = append(m.started, flowID)
	return api.ExecutionID(fmt.Sprintf("exec-%d", m.nextID)), nil
}

// StopExecution records the call
func (m *MockEngine) StopExecution(
	_ context.Context, executionID api.ExecutionID,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopErr != nil {
		return m.stopErr
	}
	m.stopped = append(m.stopped, executionID)
	return nil
}

// StreamURL returns the configured stream endpoint
func (m *MockEngine) StreamURL(api.ExecutionID) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.streamURL
}

// Started returns the flow IDs whose executions were started
func (m *MockEngine) Started() []api.FlowID {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make([]api.FlowID, len(m.started))
	copy(res, m.started)
	return res
}

// Stopped returns the execution IDs that were stopped
func (m *MockEngine) Stopped() []api.ExecutionID {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make([]api.ExecutionID, len(m.stopped))
	copy(res, m.stopped)
	return res
}
