package model

import "time"

// HeartbeatLogEntry is one append-only record of a heartbeat call.
type HeartbeatLogEntry struct {
	SessionID string    `json:"sessionId"`
	Timestamp time.Time `json:"timestamp"`
	LatencyMs *int64    `json:"latencyMs,omitempty"`
}

// SweepResult partitions the sessions observed by one heartbeat sweep.
type SweepResult struct {
	Active   []string `json:"active"`
	TimedOut []string `json:"timedOut"`
}

// ConnectionStats is an aggregate view over the registry and the store.
type ConnectionStats struct {
	ActiveConnections  int            `json:"activeConnections"`
	TotalEverConnected int64          `json:"totalEverConnected"`
	TotalMessages      int64          `json:"totalMessages"`
	Agents             map[string]int `json:"agents"`
}
