package events

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"
)

// Message is the envelope broadcast to table subscribers
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub broadcasts hand records to table subscribers. It implements Recorder
// so it can be attached to an engine directly.
type Hub struct {
	mu          sync.Mutex
	subscribers map[string]map[*Subscriber]bool
	logger      logrus.FieldLogger
}

// NewHub returns a new Hub
func NewHub(logger logrus.FieldLogger) *Hub {
	return &Hub{
		subscribers: make(map[string]map[*Subscriber]bool),
		logger:      logger,
	}
}

// Subscriber receives broadcast messages for a single table
type Subscriber struct {
	hub       *Hub
	tableUUID string

	// C delivers encoded messages. Slow consumers are dropped rather than
	// allowed to stall the broadcast.
	C chan []byte

	closeOnce sync.Once
}

// Subscribe registers a new subscriber for the table
func (h *Hub) Subscribe(tableUUID string) *Subscriber {
	sub := &Subscriber{
		hub:       h,
		tableUUID: tableUUID,
		C:         make(chan []byte, 256),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subscribers[tableUUID] == nil {
		h.subscribers[tableUUID] = make(map[*Subscriber]bool)
	}
	h.subscribers[tableUUID][sub] = true

	return sub
}

// Close removes the subscriber from the hub
func (s *Subscriber) Close() {
	s.closeOnce.Do(func() {
		s.hub.mu.Lock()
		defer s.hub.mu.Unlock()

		delete(s.hub.subscribers[s.tableUUID], s)
		if len(s.hub.subscribers[s.tableUUID]) == 0 {
			delete(s.hub.subscribers, s.tableUUID)
		}

		close(s.C)
	})
}

// HandAction implements Recorder
func (h *Hub) HandAction(_ context.Context, record *ActionRecord) error {
	return h.broadcast(record.TableUUID, &Message{Type: "hand-action", Data: record})
}

// HandCompleted implements Recorder
func (h *Hub) HandCompleted(_ context.Context, record *CompletionRecord) error {
	return h.broadcast(record.TableUUID, &Message{Type: "hand-completed", Data: record})
}

func (h *Hub) broadcast(tableUUID string, msg *Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subscribers[tableUUID] {
		select {
		case sub.C <- payload:
		default:
			h.logger.WithField("table", tableUUID).Warn("dropping message for slow subscriber")
		}
	}

	return nil
}

// SubscriberCount returns the number of subscribers for the table
func (h *Hub) SubscriberCount(tableUUID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.subscribers[tableUUID])
}
