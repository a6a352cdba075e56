// Package registry maintains the in-memory index of active sessions,
// mirrored to the durable store. The registry is the source of truth for
// which sessions are active right now; the store keeps the full history.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blackroad/websocket-manager/internal/model"
	"github.com/blackroad/websocket-manager/internal/repository"
)

// Registry indexes active connections by session ID.
//
// All mutating operations are serialized by a single mutex and follow a
// persist-then-index order: a failed store write never changes the index.
// Read operations return clones, so a caller holding a snapshot never
// observes a partially applied update.
type Registry struct {
	conns      *repository.ConnectionRepository
	heartbeats *repository.HeartbeatRepository

	mu     sync.RWMutex
	active map[string]*model.Connection
}

// New constructs a Registry and hydrates the index with every store record
// whose status is active. A store failure here is fatal: the registry is
// not usable without a complete hydration.
func New(ctx context.Context, conns *repository.ConnectionRepository, heartbeats *repository.HeartbeatRepository) (*Registry, error) {
	r := &Registry{
		conns:      conns,
		heartbeats: heartbeats,
		active:     make(map[string]*model.Connection),
	}

	stored, err := conns.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to hydrate registry: %w", err)
	}

	for _, conn := range stored {
		r.active[conn.SessionID] = conn
	}

	return r, nil
}

// Add registers a connection, or reactivates it if the session ID was seen
// before. Reactivation resets the connection timestamps and message
// counter; nil metadata preserves whatever the store holds, non-nil
// metadata replaces it. Duplicate session IDs are never an error.
func (r *Registry) Add(ctx context.Context, sessionID, agent string, metadata map[string]string) (*model.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if metadata == nil {
		if existing, ok := r.active[sessionID]; ok {
			metadata = existing.Metadata
		} else {
			stored, err := r.conns.GetBySessionID(ctx, sessionID)
			if err != nil && !errors.Is(err, model.ErrConnectionNotFound) {
				return nil, err
			}
			if err == nil {
				metadata = stored.Metadata
			}
		}
	}

	now := time.Now().UTC()
	conn := &model.Connection{
		SessionID:     sessionID,
		Agent:         agent,
		Metadata:      metadata,
		ConnectedAt:   now,
		LastHeartbeat: now,
		Status:        model.ConnectionStatusActive,
		MessageCount:  0,
	}

	if err := r.conns.UpsertActive(ctx, conn); err != nil {
		return nil, err
	}

	r.active[sessionID] = conn
	return conn.Clone(), nil
}

// Remove marks an active connection as disconnected and evicts it from the
// index. Removing an unknown or already disconnected session returns false;
// that is a normal outcome, not an error.
func (r *Registry) Remove(ctx context.Context, sessionID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.active[sessionID]; !ok {
		return false, nil
	}

	if err := r.conns.MarkDisconnected(ctx, sessionID, time.Now().UTC()); err != nil {
		return false, err
	}

	delete(r.active, sessionID)
	return true, nil
}

// Get returns the active connection for sessionID, if any. Disconnected
// records kept in the store are not visible here.
func (r *Registry) Get(sessionID string) (*model.Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.active[sessionID]
	if !ok {
		return nil, false
	}
	return conn.Clone(), true
}

// GetAll returns a snapshot of all active connections. Order is
// unspecified; callers must not rely on it.
func (r *Registry) GetAll() []*model.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*model.Connection, 0, len(r.active))
	for _, conn := range r.active {
		conns = append(conns, conn.Clone())
	}
	return conns
}

// Count returns the number of active connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.active)
}

// UpdateHeartbeat records a heartbeat for an active session: the stored
// last_heartbeat is updated and one heartbeat_log entry is appended.
// Returns false if the session is not active.
func (r *Registry) UpdateHeartbeat(ctx context.Context, sessionID string, latencyMs *int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.active[sessionID]
	if !ok {
		return false, nil
	}

	now := time.Now().UTC()
	if err := r.conns.UpdateHeartbeat(ctx, sessionID, now); err != nil {
		return false, err
	}

	entry := &model.HeartbeatLogEntry{
		SessionID: sessionID,
		Timestamp: now,
		LatencyMs: latencyMs,
	}
	if err := r.heartbeats.Insert(ctx, entry); err != nil {
		return false, err
	}

	conn.LastHeartbeat = now
	return true, nil
}

// IncrementMessageCount bumps the delivery counter for an active session in
// the store and the index. Returns false for a session that is not active;
// the counter of a disconnected record is never touched.
func (r *Registry) IncrementMessageCount(ctx context.Context, sessionID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.active[sessionID]
	if !ok {
		return false, nil
	}

	if err := r.conns.IncrementMessageCount(ctx, sessionID); err != nil {
		if errors.Is(err, model.ErrConnectionNotFound) {
			// Store already disconnected the row out from under us.
			return false, nil
		}
		return false, err
	}

	conn.MessageCount++
	return true, nil
}
