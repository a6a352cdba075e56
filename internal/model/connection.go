package model

import (
	"encoding/json"
	"time"
)

// ConnectionStatus represents the lifecycle state of a connection.
type ConnectionStatus string

const (
	ConnectionStatusActive       ConnectionStatus = "active"
	ConnectionStatusDisconnected ConnectionStatus = "disconnected"
)

// Connection represents one logical WebSocket session owned by an agent.
// A session is identified by its SessionID independently of any transport
// socket; many sessions may share an agent.
type Connection struct {
	SessionID      string            `json:"sessionId"`
	Agent          string            `json:"agent"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	ConnectedAt    time.Time         `json:"connectedAt"`
	LastHeartbeat  time.Time         `json:"lastHeartbeat"`
	DisconnectedAt *time.Time        `json:"disconnectedAt,omitempty"`
	Status         ConnectionStatus  `json:"status"`
	MessageCount   int64             `json:"messageCount"`
}

// MetadataToJSON converts the Metadata map to a JSON string for storage.
func (c *Connection) MetadataToJSON() (string, error) {
	if c.Metadata == nil {
		return "{}", nil
	}
	data, err := json.Marshal(c.Metadata)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// MetadataFromJSON parses a JSON string into the Metadata map.
func (c *Connection) MetadataFromJSON(data string) error {
	if data == "" || data == "{}" {
		c.Metadata = nil
		return nil
	}
	return json.Unmarshal([]byte(data), &c.Metadata)
}

// Clone returns a copy of the connection that shares no mutable state
// with the original. Registry snapshots hand out clones so callers never
// observe in-place updates.
func (c *Connection) Clone() *Connection {
	clone := *c
	if c.Metadata != nil {
		clone.Metadata = make(map[string]string, len(c.Metadata))
		for k, v := range c.Metadata {
			clone.Metadata[k] = v
		}
	}
	if c.DisconnectedAt != nil {
		t := *c.DisconnectedAt
		clone.DisconnectedAt = &t
	}
	return &clone
}

// Uptime returns how long the connection has been registered.
func (c *Connection) Uptime() time.Duration {
	return time.Since(c.ConnectedAt)
}

// RegisterConnectionRequest represents a request to register a connection.
type RegisterConnectionRequest struct {
	SessionID string            `json:"sessionId"`
	Agent     string            `json:"agent" binding:"required"`
	Metadata  map[string]string `json:"metadata"`
}

// Validate validates the register connection request.
func (r *RegisterConnectionRequest) Validate() error {
	if r.Agent == "" {
		return ErrAgentRequired
	}
	return nil
}
