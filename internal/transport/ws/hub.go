// Package ws streams conversation lifecycle events to operators over WebSocket.
package ws

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"surveybot/internal/events"
	"surveybot/internal/logger"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	MsgHello MessageType = "hello"
	MsgEvent MessageType = "event"
)

// Message is the WebSocket envelope format
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Connection is one operator feed client
type Connection struct {
	OperatorID string
	Send       chan []byte
}

// Hub fans bus events out to every connected operator
type Hub struct {
	clients map[*Connection]struct{}
	mu      sync.RWMutex

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan []byte
	done       chan struct{}

	logger *logger.Logger
}

// NewHub creates a hub; call Run to start it
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Connection]struct{}),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
		logger:     log,
	}
}

// Run serves registrations and broadcasts until ctx is cancelled, then closes every client
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for conn := range h.clients {
				delete(h.clients, conn)
				close(conn.Send)
			}
			h.mu.Unlock()
			return nil

		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = struct{}{}
			h.mu.Unlock()
			h.logger.Info("Operator connected to feed", zap.String("operator_id", conn.OperatorID))

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				close(conn.Send)
				h.logger.Info("Operator disconnected from feed", zap.String("operator_id", conn.OperatorID))
			}
			h.mu.Unlock()

		case data := <-h.broadcast:
			h.mu.RLock()
			for conn := range h.clients {
				select {
				case conn.Send <- data:
				default:
					// Drop message if buffer full
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a connection. It returns false once the hub has stopped.
func (h *Hub) Register(conn *Connection) bool {
	select {
	case h.register <- conn:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Clients returns the number of connected operators
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Forward is an events.Handler that queues ev for every operator
func (h *Hub) Forward(ctx context.Context, ev *events.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	data, err := json.Marshal(&Message{Type: MsgEvent, Payload: payload})
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- data:
		return nil
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe feeds the hub from every survey subject on bus
func (h *Hub) Subscribe(bus events.Bus) (events.Subscription, error) {
	return bus.Subscribe(events.SubjectSurveyAll, h.Forward)
}
