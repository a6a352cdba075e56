// Package logger records registry lifecycle events as a JSON-Lines audit
// trail. The trail is a diagnostic aid for the server surface; the durable
// store remains the system of record.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// AuditEvent is one line of the audit trail.
type AuditEvent struct {
	Timestamp time.Time `json:"ts"`
	Event     string    `json:"event"`
	SessionID string    `json:"sessionId,omitempty"`
	Agent     string    `json:"agent,omitempty"`
	MsgType   string    `json:"msgType,omitempty"`
	Delivered int       `json:"delivered,omitempty"`
	TimedOut  int       `json:"timedOut,omitempty"`
}

// AuditLogger appends audit events to a writer, one JSON object per line.
type AuditLogger struct {
	writer io.Writer
	file   *os.File // only set if we own the file
	mu     sync.Mutex
}

// NewAuditLogger creates an AuditLogger that appends to the given file path.
func NewAuditLogger(filePath string) (*AuditLogger, error) {
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	return &AuditLogger{
		writer: file,
		file:   file,
	}, nil
}

// NewAuditLoggerWithWriter creates an AuditLogger that writes to the given
// writer. This is useful for testing.
func NewAuditLoggerWithWriter(w io.Writer) *AuditLogger {
	return &AuditLogger{writer: w}
}

// Connect records a session registration.
func (l *AuditLogger) Connect(sessionID, agent string) error {
	return l.write(AuditEvent{Event: "connect", SessionID: sessionID, Agent: agent})
}

// Disconnect records a session removal.
func (l *AuditLogger) Disconnect(sessionID string) error {
	return l.write(AuditEvent{Event: "disconnect", SessionID: sessionID})
}

// Broadcast records a fan-out and how many sessions it reached.
func (l *AuditLogger) Broadcast(msgType string, delivered int) error {
	return l.write(AuditEvent{Event: "broadcast", MsgType: msgType, Delivered: delivered})
}

// Sweep records the outcome of one heartbeat sweep.
func (l *AuditLogger) Sweep(timedOut int) error {
	return l.write(AuditEvent{Event: "sweep", TimedOut: timedOut})
}

func (l *AuditLogger) write(event AuditEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	event.Timestamp = time.Now().UTC()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}

	if _, err := l.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write audit event: %w", err)
	}

	return nil
}

// Close closes the underlying file, if the logger owns one.
func (l *AuditLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
