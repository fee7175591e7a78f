package overlay

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aiinpocket/n3n/editor/pkg/api"
	"github.com/aiinpocket/n3n/editor/pkg/log"
)

// Subscriber consumes an execution's push stream over WebSocket and
// projects each event onto the overlay. It is the only writer to the
// overlay table, which keeps the observe-only invariant trivial to hold.
// A dropped connection surfaces as a disconnected indicator and leaves
// already-received state intact
type Subscriber struct {
	overlay   *Overlay
	conn      *websocket.Conn
	sink      EventSink
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// EventSink observes each event after it is applied to the overlay,
// typically to relay it to downstream consumers
type EventSink func(*api.ExecutionEvent)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Subscribe dials the stream endpoint for one execution, begins the
// overlay, and starts reading events. The overlay enters the connecting
// phase even when the dial fails, so a disconnected indicator can render
func Subscribe(
	ctx context.Context, url string, executionID api.ExecutionID,
	ov *Overlay, sink EventSink,
) (*Subscriber, error) {
	ov.Begin(executionID)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		ov.SetConnState(api.ConnDisconnected)
		return nil, err
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	s := &Subscriber{
		overlay: ov,
		conn:    conn,
		sink:    sink,
		done:    make(chan struct{}),
	}
	ov.SetConnState(api.ConnConnected)
	s.wg.Go(s.readEvents)
	s.wg.Go(s.keepAlive)
	return s, nil
}

// Close tears down the subscription. Overlay state already applied is
// frozen until the overlay itself is cleared
func (s *Subscriber) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait),
		)
		_ = s.conn.Close()
	})
	s.wg.Wait()
}

// Done is closed when the stream ends for any reason
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

func (s *Subscriber) readEvents() {
	defer s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})

	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var ev api.ExecutionEvent
		if err := s.conn.ReadJSON(&ev); err != nil {
			select {
			case <-s.done:
			default:
				slog.Warn("Execution stream dropped",
					log.ExecutionID(s.overlay.ExecutionID()),
					log.Error(err))
			}
			s.overlay.SetConnState(api.ConnDisconnected)
			return
		}

		s.overlay.Apply(&ev)
		if s.sink != nil {
			s.sink(&ev)
		}
		if ev.Type.IsTerminal() {
			s.overlay.SetConnState(api.ConnDisconnected)
			return
		}
	}
}

func (s *Subscriber) keepAlive() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(writeWait)
			err := s.conn.WriteControl(
				websocket.PingMessage, nil, deadline,
			)
			if err != nil {
				return
			}
		}
	}
}
