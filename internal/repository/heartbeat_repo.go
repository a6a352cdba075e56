package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/blackroad/websocket-manager/internal/model"
)

// HeartbeatRepository provides append-only access to the heartbeat log.
type HeartbeatRepository struct {
	db *sql.DB
}

// NewHeartbeatRepository creates a new HeartbeatRepository.
func NewHeartbeatRepository(db *sql.DB) *HeartbeatRepository {
	return &HeartbeatRepository{db: db}
}

// Insert appends one heartbeat log entry.
func (r *HeartbeatRepository) Insert(ctx context.Context, entry *model.HeartbeatLogEntry) error {
	query := `
		INSERT INTO heartbeat_log (session_id, ts, latency_ms)
		VALUES (?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query, entry.SessionID, entry.Timestamp, entry.LatencyMs)
	if err != nil {
		return fmt.Errorf("failed to insert heartbeat log entry: %w", err)
	}

	return nil
}

// CountBySession returns the number of logged heartbeats for a session.
func (r *HeartbeatRepository) CountBySession(ctx context.Context, sessionID string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM heartbeat_log WHERE session_id = ?`, sessionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count heartbeat log entries: %w", err)
	}

	return count, nil
}
