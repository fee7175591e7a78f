package server

import (
	"sync"

	"github.com/kode4food/caravan"
	"github.com/kode4food/caravan/topic"

	"github.com/aiinpocket/n3n/editor/pkg/api"
)

// Hub fans execution events out from editor sessions to WebSocket
// clients. Each client attaches its own consumer and filters by
// execution ID
type Hub struct {
	events    topic.Topic[*api.ExecutionEvent]
	prod      topic.Producer[*api.ExecutionEvent]
	closeOnce sync.Once
}

// NewHub creates an empty event hub
func NewHub() *Hub {
	events := caravan.NewTopic[*api.ExecutionEvent]()
	return &Hub{
		events: events,
		prod:   events.NewProducer(),
	}
}

// Publish delivers an execution event to every attached consumer
func (h *Hub) Publish(ev *api.ExecutionEvent) {
	h.prod.Send() <- ev
}

// NewConsumer attaches a consumer to the event stream. The caller owns
// the consumer and must close it
func (h *Hub) NewConsumer() topic.Consumer[*api.ExecutionEvent] {
	return h.events.NewConsumer()
}

// Close shuts down the hub's producer
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		h.prod.Close()
	})
}
