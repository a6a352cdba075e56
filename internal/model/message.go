package model

import (
	"time"

	"github.com/google/uuid"
)

// Default message type labels. The type field is free-form; these cover
// the cases produced by the built-in surfaces.
const (
	MessageTypeData      = "data"
	MessageTypeBroadcast = "broadcast"
	MessageTypePing      = "ping"
	MessageTypePayment   = "payment_event"
)

// Message represents one delivery attempt to a single recipient session.
// A broadcast produces one Message per target. Messages are written once
// and never mutated.
type Message struct {
	MessageID   string    `json:"messageId"`
	Type        string    `json:"type"`
	SenderID    *string   `json:"senderId,omitempty"`
	RecipientID string    `json:"recipientId"`
	Content     string    `json:"content"`
	SentAt      time.Time `json:"sentAt"`
	Delivered   bool      `json:"delivered"`
}

// NewMessage builds a message addressed to recipientID with a generated
// message ID. Content is treated as an opaque, already-serialized payload.
func NewMessage(recipientID, content, msgType string, senderID *string) *Message {
	if msgType == "" {
		msgType = MessageTypeData
	}
	return &Message{
		MessageID:   uuid.New().String(),
		Type:        msgType,
		SenderID:    senderID,
		RecipientID: recipientID,
		Content:     content,
		SentAt:      time.Now().UTC(),
	}
}
