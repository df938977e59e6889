package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// MessageType names a websocket message
type MessageType string

const (
	MsgReport     MessageType = "report"
	MsgLiveStatus MessageType = "live_status"
)

const sendBuffer = 32

// Message is the websocket envelope
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Client is one subscriber
type Client struct {
	ID   string
	Send chan []byte
}

// Hub fans live reports out to connected websocket clients. Slow clients
// drop messages rather than block the live loop.
type Hub struct {
	clients map[*Client]struct{}
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}
	stopOnce   sync.Once
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
	}
}

// Run serves registrations and broadcasts until ctx is cancelled, then
// closes every client's send channel.
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			h.mu.Unlock()
			slog.Debug("Stream client connected", "client_id", c.ID)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.Send)
				slog.Debug("Stream client disconnected", "client_id", c.ID)
			}
			h.mu.Unlock()

		case data := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.Send <- data:
				default:
					// drop if the client is not keeping up
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) shutdown() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.mu.Lock()
		defer h.mu.Unlock()
		for c := range h.clients {
			delete(h.clients, c)
			close(c.Send)
		}
	})
}

// Register adds a client; it returns false once the hub has stopped
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// NewClient allocates a client with the standard send buffer
func NewClient(id string) *Client {
	return &Client{ID: id, Send: make(chan []byte, sendBuffer)}
}

// Publish encodes payload in an envelope and queues it for every client.
// It never blocks: when the broadcast queue is full the message is dropped.
func (h *Hub) Publish(msgType MessageType, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(Message{Type: msgType, Payload: body})
	if err != nil {
		return fmt.Errorf("failed to encode %s message: %w", msgType, err)
	}

	select {
	case h.broadcast <- data:
	case <-h.done:
	default:
		slog.Warn("Stream broadcast queue full, dropping message", "type", msgType)
	}
	return nil
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
