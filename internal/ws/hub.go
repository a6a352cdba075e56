// Package ws is the transport adapter between WebSocket clients and the
// connection registry. Sockets are ephemeral attachments to a logical
// session; the registry, not the socket, decides whether a session is
// active.
package ws

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/blackroad/websocket-manager/internal/model"
)

// FrameType represents the type of a WebSocket frame payload.
type FrameType string

const (
	// Client -> Server frame types
	FrameTypePing FrameType = "ping"

	// Server -> Client frame types
	FrameTypePong    FrameType = "pong"
	FrameTypeMessage FrameType = "message"
	FrameTypeHistory FrameType = "history"
	FrameTypeError   FrameType = "error"
)

// Frame is the JSON payload exchanged over an attached socket.
type Frame struct {
	Type      FrameType        `json:"type"`
	LatencyMs *int64           `json:"latencyMs,omitempty"`
	Message   *model.Message   `json:"message,omitempty"`
	Messages  []*model.Message `json:"messages,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// Client represents one WebSocket attachment to a session.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	sessionID string
	send      chan []byte
	mu        sync.Mutex
	closed    bool
}

// NewClient creates a new WebSocket client.
func NewClient(hub *Hub, conn *websocket.Conn, sessionID string) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		sessionID: sessionID,
		send:      make(chan []byte, 256),
	}
}

// Send queues a payload to be sent to the client.
func (c *Client) Send(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	select {
	case c.send <- data:
	default:
		// Buffer full, close the client
		c.closeLocked()
	}
}

// SendFrame marshals and queues a frame.
func (c *Client) SendFrame(frame *Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	c.Send(data)
	return nil
}

// Close closes the client connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// IsClosed returns true if the client is closed.
func (c *Client) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// SessionID returns the session ID this client is attached to.
func (c *Client) SessionID() string {
	return c.sessionID
}

// Conn returns the underlying WebSocket connection.
func (c *Client) Conn() *websocket.Conn {
	return c.conn
}

// SendChan returns the send channel for the client.
func (c *Client) SendChan() <-chan []byte {
	return c.send
}

// Hub fans frames out to every socket attached to one session.
type Hub struct {
	sessionID string
	clients   map[*Client]bool
	mu        sync.RWMutex

	// Callbacks
	onFrame func(client *Client, frame *Frame)
	onClose func()
}

// NewHub creates a new Hub for the given session.
func NewHub(sessionID string) *Hub {
	return &Hub{
		sessionID: sessionID,
		clients:   make(map[*Client]bool),
	}
}

// SessionID returns the session ID for this hub.
func (h *Hub) SessionID() string {
	return h.sessionID
}

// SetOnFrame sets the callback for incoming frames.
func (h *Hub) SetOnFrame(callback func(client *Client, frame *Frame)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onFrame = callback
}

// SetOnClose sets the callback for when all sockets detach.
func (h *Hub) SetOnClose(callback func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onClose = callback
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = true
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	delete(h.clients, client)
	clientCount := len(h.clients)
	onClose := h.onClose
	h.mu.Unlock()

	client.Close()

	if clientCount == 0 && onClose != nil {
		onClose()
	}
}

// Broadcast sends a payload to all attached clients.
func (h *Hub) Broadcast(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		client.Send(data)
	}
}

// BroadcastFrame sends a frame to all attached clients.
func (h *Hub) BroadcastFrame(frame *Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	h.Broadcast(data)
	return nil
}

// ClientCount returns the number of attached clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleFrame dispatches an incoming frame from a client.
func (h *Hub) HandleFrame(client *Client, frame *Frame) {
	h.mu.RLock()
	callback := h.onFrame
	h.mu.RUnlock()

	if callback != nil {
		callback(client, frame)
	}
}

// Close closes all attached clients and the hub.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.clients = make(map[*Client]bool)
	h.mu.Unlock()

	for _, client := range clients {
		client.Close()
	}
}

// HubManager manages hubs for different sessions.
type HubManager struct {
	hubs map[string]*Hub
	mu   sync.RWMutex
}

// NewHubManager creates a new HubManager.
func NewHubManager() *HubManager {
	return &HubManager{
		hubs: make(map[string]*Hub),
	}
}

// GetOrCreate returns an existing hub or creates a new one for the session.
func (m *HubManager) GetOrCreate(sessionID string) *Hub {
	m.mu.Lock()
	defer m.mu.Unlock()

	if hub, ok := m.hubs[sessionID]; ok {
		return hub
	}

	hub := NewHub(sessionID)
	m.hubs[sessionID] = hub
	return hub
}

// Get returns the hub for the session, or nil if not found.
func (m *HubManager) Get(sessionID string) *Hub {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hubs[sessionID]
}

// Remove removes the hub for the session.
func (m *HubManager) Remove(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if hub, ok := m.hubs[sessionID]; ok {
		hub.Close()
		delete(m.hubs, sessionID)
	}
}

// Close closes all hubs.
func (m *HubManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, hub := range m.hubs {
		hub.Close()
	}
	m.hubs = make(map[string]*Hub)
}
