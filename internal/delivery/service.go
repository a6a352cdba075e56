// Package delivery computes broadcast and point-to-point target sets from
// the registry and persists one message row per delivery.
package delivery

import (
	"context"

	"github.com/blackroad/websocket-manager/internal/model"
	"github.com/blackroad/websocket-manager/internal/registry"
	"github.com/blackroad/websocket-manager/internal/repository"
	"github.com/blackroad/websocket-manager/pkg/filter"
)

// Delivered is invoked once per persisted message. The ws gateway hooks in
// here to push payloads to attached sockets; nil is fine.
type Delivered func(msg *model.Message)

// Service delivers messages to sessions tracked by the registry.
type Service struct {
	registry  *registry.Registry
	messages  *repository.MessageRepository
	delivered Delivered
}

// NewService creates a delivery service bound to a registry and message store.
func NewService(reg *registry.Registry, messages *repository.MessageRepository) *Service {
	return &Service{
		registry: reg,
		messages: messages,
	}
}

// OnDelivered registers a callback fired after each message is persisted.
func (s *Service) OnDelivered(fn Delivered) {
	s.delivered = fn
}

// Broadcast delivers content to every active connection accepted by f.
// The target set is fixed by a single registry snapshot taken up front:
// sessions connecting or disconnecting mid-broadcast neither join nor
// leave it. A target that disconnects between the snapshot and its store
// write still gets a message row; that staleness window is accepted.
//
// Returns the session IDs that received the message, in snapshot order.
// Zero targets is a normal outcome and yields an empty slice.
func (s *Service) Broadcast(ctx context.Context, content string, f filter.Filter, msgType string, senderID *string) ([]string, error) {
	if f == nil {
		f = filter.All()
	}
	if msgType == "" {
		msgType = model.MessageTypeBroadcast
	}

	snapshot := s.registry.GetAll()

	delivered := make([]string, 0, len(snapshot))
	for _, conn := range snapshot {
		if !f.Match(conn) {
			continue
		}

		msg := model.NewMessage(conn.SessionID, content, msgType, senderID)
		msg.Delivered = true

		if err := s.messages.Insert(ctx, msg); err != nil {
			return delivered, err
		}
		if _, err := s.registry.IncrementMessageCount(ctx, conn.SessionID); err != nil {
			return delivered, err
		}

		delivered = append(delivered, conn.SessionID)
		if s.delivered != nil {
			s.delivered(msg)
		}
	}

	return delivered, nil
}

// Send delivers content to a single active session. An unknown or
// disconnected target returns (nil, nil) and leaves no trace in the store.
func (s *Service) Send(ctx context.Context, sessionID, content, msgType string, senderID *string) (*model.Message, error) {
	if _, ok := s.registry.Get(sessionID); !ok {
		return nil, nil
	}

	msg := model.NewMessage(sessionID, content, msgType, senderID)
	msg.Delivered = true

	if err := s.messages.Insert(ctx, msg); err != nil {
		return nil, err
	}
	if _, err := s.registry.IncrementMessageCount(ctx, sessionID); err != nil {
		return nil, err
	}

	if s.delivered != nil {
		s.delivered(msg)
	}
	return msg, nil
}
