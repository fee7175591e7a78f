package helpers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/aiinpocket/n3n/editor/pkg/api"
)

// StreamServer serves scripted execution events over WebSocket, standing
// in for the engine's per-execution event stream
type StreamServer struct {
	srv      *httptest.Server
	events   chan *api.ExecutionEvent
	upgrader websocket.Upgrader
	once     sync.Once
}

// NewStreamServer starts a WebSocket server that relays events pushed
// through Send to every connected client in order
func NewStreamServer(t *testing.T) *StreamServer {
	t.Helper()

	s := &StreamServer{
		events: make(chan *api.ExecutionEvent, 64),
	}
	s.srv = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// URL returns the server's ws:// endpoint
func (s *StreamServer) URL() string {
	return strings.Replace(s.srv.URL, "http", "ws", 1)
}

// Send queues an event for delivery
func (s *StreamServer) Send(ev *api.ExecutionEvent) {
	s.events <- ev
}

// Close ends the stream and shuts the server down
func (s *StreamServer) Close() {
	s.once.Do(func() {
		close(s.events)
		s.srv.Close()
	})
}

func (s *StreamServer) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	// Drain the connection so control frames are processed
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for ev := range s.events {
		if err := conn.WriteJSON(ev); err != nil {
			return
		}
	}
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(
		websocket.CloseNormalClosure, "",
	))
}

// NodeEvent builds a node lifecycle event
func NodeEvent(
	executionID api.ExecutionID, t api.EventType, nodeID api.NodeID,
	status api.ExecStatus,
) *api.ExecutionEvent {
	return &api.ExecutionEvent{
		ExecutionID: executionID,
		Type:        t,
		NodeID:      nodeID,
		Status:      status,
	}
}

// ExecEvent builds an execution lifecycle event
func ExecEvent(
	executionID api.ExecutionID, t api.EventType, status api.ExecStatus,
) *api.ExecutionEvent {
	return &api.ExecutionEvent{
		ExecutionID: executionID,
		Type:        t,
		Status:      status,
	}
}
