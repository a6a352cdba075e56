package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/blackroad/websocket-manager/internal/model"
)

// ConnectionRepository provides data access for connections.
type ConnectionRepository struct {
	db *sql.DB
}

// NewConnectionRepository creates a new ConnectionRepository.
func NewConnectionRepository(db *sql.DB) *ConnectionRepository {
	return &ConnectionRepository{db: db}
}

// UpsertActive inserts a connection or, if the session ID already exists,
// rewrites the row as active. Reactivation clears disconnected_at and
// overwrites the counters with the values carried by conn.
func (r *ConnectionRepository) UpsertActive(ctx context.Context, conn *model.Connection) error {
	metadataJSON, err := conn.MetadataToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize metadata: %w", err)
	}

	query := `
		INSERT INTO connections (session_id, agent, metadata, connected_at, last_heartbeat, status, message_count, disconnected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, NULL)
		ON CONFLICT(session_id) DO UPDATE SET
			agent           = excluded.agent,
			metadata        = excluded.metadata,
			connected_at    = excluded.connected_at,
			last_heartbeat  = excluded.last_heartbeat,
			status          = excluded.status,
			message_count   = excluded.message_count,
			disconnected_at = NULL
	`

	_, err = r.db.ExecContext(ctx, query,
		conn.SessionID,
		conn.Agent,
		metadataJSON,
		conn.ConnectedAt,
		conn.LastHeartbeat,
		conn.Status,
		conn.MessageCount,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert connection: %w", err)
	}

	return nil
}

// GetBySessionID retrieves a connection by its session ID regardless of status.
func (r *ConnectionRepository) GetBySessionID(ctx context.Context, sessionID string) (*model.Connection, error) {
	query := `
		SELECT session_id, agent, metadata, connected_at, last_heartbeat, status, message_count, disconnected_at
		FROM connections
		WHERE session_id = ?
	`

	conn, err := scanConnection(r.db.QueryRowContext(ctx, query, sessionID))
	if err == sql.ErrNoRows {
		return nil, model.ErrConnectionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}

	return conn, nil
}

// ListActive retrieves all connections with status 'active'.
func (r *ConnectionRepository) ListActive(ctx context.Context) ([]*model.Connection, error) {
	query := `
		SELECT session_id, agent, metadata, connected_at, last_heartbeat, status, message_count, disconnected_at
		FROM connections
		WHERE status = ?
	`

	rows, err := r.db.QueryContext(ctx, query, model.ConnectionStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list active connections: %w", err)
	}
	defer rows.Close()

	var conns []*model.Connection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}
		conns = append(conns, conn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating connections: %w", err)
	}

	return conns, nil
}

// MarkDisconnected sets the status to 'disconnected' and records the time.
func (r *ConnectionRepository) MarkDisconnected(ctx context.Context, sessionID string, at time.Time) error {
	query := `
		UPDATE connections
		SET status = ?, disconnected_at = ?
		WHERE session_id = ?
	`

	result, err := r.db.ExecContext(ctx, query, model.ConnectionStatusDisconnected, at, sessionID)
	if err != nil {
		return fmt.Errorf("failed to mark connection disconnected: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return model.ErrConnectionNotFound
	}

	return nil
}

// UpdateHeartbeat sets the last heartbeat time for a connection.
func (r *ConnectionRepository) UpdateHeartbeat(ctx context.Context, sessionID string, at time.Time) error {
	query := `
		UPDATE connections
		SET last_heartbeat = ?
		WHERE session_id = ?
	`

	result, err := r.db.ExecContext(ctx, query, at, sessionID)
	if err != nil {
		return fmt.Errorf("failed to update heartbeat: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return model.ErrConnectionNotFound
	}

	return nil
}

// IncrementMessageCount atomically increments the message counter of an
// active connection. The status guard keeps a racing disconnect from
// resurrecting a closed record.
func (r *ConnectionRepository) IncrementMessageCount(ctx context.Context, sessionID string) error {
	query := `
		UPDATE connections
		SET message_count = message_count + 1
		WHERE session_id = ? AND status = ?
	`

	result, err := r.db.ExecContext(ctx, query, sessionID, model.ConnectionStatusActive)
	if err != nil {
		return fmt.Errorf("failed to increment message count: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return model.ErrConnectionNotFound
	}

	return nil
}

// CountAll returns the number of distinct sessions ever recorded,
// regardless of status.
func (r *ConnectionRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM connections`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count connections: %w", err)
	}

	return count, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanConnection.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanConnection(row rowScanner) (*model.Connection, error) {
	conn := &model.Connection{}
	var metadataJSON string
	var disconnectedAt sql.NullTime

	err := row.Scan(
		&conn.SessionID,
		&conn.Agent,
		&metadataJSON,
		&conn.ConnectedAt,
		&conn.LastHeartbeat,
		&conn.Status,
		&conn.MessageCount,
		&disconnectedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := conn.MetadataFromJSON(metadataJSON); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}

	if disconnectedAt.Valid {
		conn.DisconnectedAt = &disconnectedAt.Time
	}

	return conn, nil
}
