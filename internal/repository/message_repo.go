package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/blackroad/websocket-manager/internal/model"
)

// MessageRepository provides data access for messages.
type MessageRepository struct {
	db *sql.DB
}

// NewMessageRepository creates a new MessageRepository.
func NewMessageRepository(db *sql.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Insert stores a message. Messages are written once and never updated.
func (r *MessageRepository) Insert(ctx context.Context, msg *model.Message) error {
	query := `
		INSERT INTO messages (message_id, msg_type, sender_id, recipient_id, content, sent_at, delivered)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		msg.MessageID,
		msg.Type,
		msg.SenderID,
		msg.RecipientID,
		msg.Content,
		msg.SentAt,
		msg.Delivered,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	return nil
}

// List retrieves messages ordered most recent first, truncated to limit.
// If sessionID is non-empty the result is restricted to rows where that
// session is the sender or the recipient.
func (r *MessageRepository) List(ctx context.Context, sessionID string, limit int) ([]*model.Message, error) {
	var rows *sql.Rows
	var err error

	if sessionID != "" {
		query := `
			SELECT message_id, msg_type, sender_id, recipient_id, content, sent_at, delivered
			FROM messages
			WHERE recipient_id = ? OR sender_id = ?
			ORDER BY sent_at DESC, id DESC
			LIMIT ?
		`
		rows, err = r.db.QueryContext(ctx, query, sessionID, sessionID, limit)
	} else {
		query := `
			SELECT message_id, msg_type, sender_id, recipient_id, content, sent_at, delivered
			FROM messages
			ORDER BY sent_at DESC, id DESC
			LIMIT ?
		`
		rows, err = r.db.QueryContext(ctx, query, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []*model.Message
	for rows.Next() {
		msg := &model.Message{}
		var senderID sql.NullString

		err := rows.Scan(
			&msg.MessageID,
			&msg.Type,
			&senderID,
			&msg.RecipientID,
			&msg.Content,
			&msg.SentAt,
			&msg.Delivered,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}

		if senderID.Valid {
			msg.SenderID = &senderID.String
		}

		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}

// Count returns the total number of messages ever persisted.
func (r *MessageRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}

	return count, nil
}
