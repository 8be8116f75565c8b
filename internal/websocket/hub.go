package websocket

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

var ErrHubStopped = errors.New("websocket hub stopped")

// Hub tracks one live connection per user and routes messages to them.
type Hub struct {
	clients map[string]*Client
	mu      sync.RWMutex

	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	logger *zap.Logger
}

// Message is the envelope written to clients.
type Message struct {
	UserID  string      `json:"-"`
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[string]*Client),
		broadcast:  make(chan *Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run routes messages until ctx is cancelled, then closes every connection.
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.route(message)
		}
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	close(h.done)
	for id, client := range h.clients {
		close(client.send)
		delete(h.clients, id)
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old, exists := h.clients[client.userID]; exists {
		close(old.send)
		h.logger.Info("Replaced existing WebSocket connection",
			zap.String("userId", client.userID))
	}

	h.clients[client.userID] = client
	h.logger.Info("WebSocket client registered",
		zap.String("userId", client.userID),
		zap.Int("totalClients", len(h.clients)))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// A replaced connection was already closed by registerClient.
	if current, exists := h.clients[client.userID]; exists && current == client {
		delete(h.clients, client.userID)
		close(client.send)
		h.logger.Info("WebSocket client unregistered",
			zap.String("userId", client.userID),
			zap.Int("totalClients", len(h.clients)))
	}
}

func (h *Hub) route(message *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if client, exists := h.clients[message.UserID]; exists {
		h.offer(client, message)
	}
}

func (h *Hub) offer(client *Client, message *Message) {
	select {
	case client.send <- message:
	default:
		h.logger.Warn("Client send channel full, dropping message",
			zap.String("userId", client.userID),
			zap.String("type", message.Type))
	}
}

// Online reports whether the user currently has a connection.
func (h *Hub) Online(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

// SendToUser queues a message for one user. Offline users are skipped silently.
func (h *Hub) SendToUser(ctx context.Context, userID, msgType string, payload interface{}) error {
	return h.enqueue(ctx, &Message{UserID: userID, Type: msgType, Payload: payload})
}

func (h *Hub) enqueue(ctx context.Context, message *Message) error {
	select {
	case h.broadcast <- message:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}
