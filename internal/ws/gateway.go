package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/blackroad/websocket-manager/internal/buffer"
	"github.com/blackroad/websocket-manager/internal/model"
	"github.com/blackroad/websocket-manager/internal/registry"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 8192
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict origins once the frontend host is known
		return true
	},
}

// Gateway attaches WebSocket clients to registered sessions. It never
// mutates session lifecycle on its own: a socket closing does not
// disconnect the session, and liveness stays with the registry heartbeats.
type Gateway struct {
	hubManager *HubManager
	registry   *registry.Registry
	replay     *buffer.Replay
}

// NewGateway creates a new Gateway.
func NewGateway(reg *registry.Registry, replay *buffer.Replay) *Gateway {
	return &Gateway{
		hubManager: NewHubManager(),
		registry:   reg,
		replay:     replay,
	}
}

// HandleConnection upgrades an HTTP request to a WebSocket attachment for
// sessionID. The session must be active in the registry.
func (g *Gateway) HandleConnection(w http.ResponseWriter, r *http.Request, sessionID string) error {
	if _, ok := g.registry.Get(sessionID); !ok {
		http.Error(w, "Connection not found", http.StatusNotFound)
		return nil
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	hub := g.hubManager.GetOrCreate(sessionID)
	client := NewClient(hub, conn, sessionID)
	hub.Register(client)

	hub.SetOnFrame(g.handleFrame)
	hub.SetOnClose(func() {
		g.hubManager.Remove(sessionID)
	})

	g.sendReplay(client, sessionID)

	go g.writePump(client)
	go g.readPump(client, hub)

	return nil
}

// Push delivers a persisted message to any sockets attached to its
// recipient and records it for replay. Called by the delivery service
// after each store write.
func (g *Gateway) Push(msg *model.Message) {
	g.replay.Add(msg)

	hub := g.hubManager.Get(msg.RecipientID)
	if hub == nil {
		return
	}

	frame := &Frame{
		Type:    FrameTypeMessage,
		Message: msg,
	}
	if err := hub.BroadcastFrame(frame); err != nil {
		log.Printf("Failed to push message to session %s: %v", msg.RecipientID, err)
	}
}

// sendReplay hands a newly attached client the recent deliveries for its
// session.
func (g *Gateway) sendReplay(client *Client, sessionID string) {
	recent := g.replay.Recent(sessionID)
	if len(recent) == 0 {
		return
	}

	frame := &Frame{
		Type:     FrameTypeHistory,
		Messages: recent,
	}
	if err := client.SendFrame(frame); err != nil {
		log.Printf("Failed to send replay to session %s: %v", sessionID, err)
	}
}

// handleFrame processes incoming frames from clients.
func (g *Gateway) handleFrame(client *Client, frame *Frame) {
	switch frame.Type {
	case FrameTypePing:
		g.handlePing(client, frame)
	}
}

// handlePing records a heartbeat for the attached session and answers with
// a pong. A session the registry no longer tracks gets an error frame.
func (g *Gateway) handlePing(client *Client, frame *Frame) {
	ok, err := g.registry.UpdateHeartbeat(context.Background(), client.SessionID(), frame.LatencyMs)
	if err != nil {
		log.Printf("Failed to update heartbeat for session %s: %v", client.SessionID(), err)
		client.SendFrame(&Frame{Type: FrameTypeError, Error: "heartbeat update failed"})
		return
	}
	if !ok {
		client.SendFrame(&Frame{Type: FrameTypeError, Error: "connection not found"})
		return
	}

	client.SendFrame(&Frame{Type: FrameTypePong})
}

// readPump pumps frames from the WebSocket connection to the hub.
func (g *Gateway) readPump(client *Client, hub *Hub) {
	defer func() {
		hub.Unregister(client)
		client.Conn().Close()
	}()

	client.Conn().SetReadLimit(maxMessageSize)
	client.Conn().SetReadDeadline(time.Now().Add(pongWait))
	client.Conn().SetPongHandler(func(string) error {
		client.Conn().SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := client.Conn().ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var frame Frame
		if err := json.Unmarshal(payload, &frame); err != nil {
			log.Printf("Failed to unmarshal frame: %v", err)
			continue
		}

		hub.HandleFrame(client, &frame)
	}
}

// writePump pumps queued payloads from the hub to the WebSocket connection.
func (g *Gateway) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn().Close()
	}()

	for {
		select {
		case payload, ok := <-client.SendChan():
			client.Conn().SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				client.Conn().WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One frame per WebSocket message so clients can JSON-parse
			// each payload independently
			if err := client.Conn().WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

			n := len(client.SendChan())
			for i := 0; i < n; i++ {
				queued := <-client.SendChan()
				client.Conn().SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.Conn().WriteMessage(websocket.TextMessage, queued); err != nil {
					return
				}
			}
		case <-ticker.C:
			client.Conn().SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn().WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close closes all hubs and attached clients.
func (g *Gateway) Close() {
	g.hubManager.Close()
}
