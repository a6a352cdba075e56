// Package query exposes read-only views over the store and the registry.
// Nothing in this package mutates state.
package query

import (
	"context"

	"github.com/blackroad/websocket-manager/internal/model"
	"github.com/blackroad/websocket-manager/internal/repository"
)

// DefaultHistoryLimit bounds history queries when the caller passes no limit.
const DefaultHistoryLimit = 50

// HistoryReader reads delivered messages back out of the store.
type HistoryReader struct {
	messages *repository.MessageRepository
}

// NewHistoryReader creates a HistoryReader.
func NewHistoryReader(messages *repository.MessageRepository) *HistoryReader {
	return &HistoryReader{messages: messages}
}

// MessageHistory returns up to limit messages, most recent first. With a
// non-empty sessionID only messages sent by or delivered to that session
// are returned.
func (h *HistoryReader) MessageHistory(ctx context.Context, sessionID string, limit int) ([]*model.Message, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return h.messages.List(ctx, sessionID, limit)
}
