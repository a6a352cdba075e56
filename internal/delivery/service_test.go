package delivery

import (
	"context"
	"testing"

	"github.com/blackroad/websocket-manager/internal/db"
	"github.com/blackroad/websocket-manager/internal/model"
	"github.com/blackroad/websocket-manager/internal/registry"
	"github.com/blackroad/websocket-manager/internal/repository"
	"github.com/blackroad/websocket-manager/pkg/filter"
)

func setupTestService(t *testing.T) (*Service, *registry.Registry, *repository.MessageRepository, func()) {
	database, err := db.NewTestDB()
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}

	connRepo := repository.NewConnectionRepository(database)
	hbRepo := repository.NewHeartbeatRepository(database)
	msgRepo := repository.NewMessageRepository(database)

	reg, err := registry.New(context.Background(), connRepo, hbRepo)
	if err != nil {
		database.Close()
		t.Fatalf("Failed to create registry: %v", err)
	}

	svc := NewService(reg, msgRepo)

	cleanup := func() {
		database.Close()
	}

	return svc, reg, msgRepo, cleanup
}

func TestService_Broadcast(t *testing.T) {
	svc, reg, msgRepo, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()

	for _, id := range []string{"sess-1", "sess-2", "sess-3"} {
		if _, err := reg.Add(ctx, id, "claude-code", nil); err != nil {
			t.Fatalf("Failed to add connection: %v", err)
		}
	}
	if _, err := reg.Add(ctx, "sess-4", "cursor", nil); err != nil {
		t.Fatalf("Failed to add connection: %v", err)
	}

	t.Run("unfiltered broadcast reaches every active connection", func(t *testing.T) {
		delivered, err := svc.Broadcast(ctx, "deploy finished", nil, "", nil)
		if err != nil {
			t.Fatalf("Failed to broadcast: %v", err)
		}
		if len(delivered) != 4 {
			t.Errorf("Expected 4 deliveries, got %d", len(delivered))
		}

		count, err := msgRepo.Count(ctx)
		if err != nil {
			t.Fatalf("Failed to count messages: %v", err)
		}
		if count != 4 {
			t.Errorf("Expected 4 persisted messages, got %d", count)
		}
	})

	t.Run("each target's counter is incremented once", func(t *testing.T) {
		for _, id := range []string{"sess-1", "sess-2", "sess-3", "sess-4"} {
			conn, ok := reg.Get(id)
			if !ok {
				t.Fatalf("Connection %s disappeared", id)
			}
			if conn.MessageCount != 1 {
				t.Errorf("Expected message count 1 for %s, got %d", id, conn.MessageCount)
			}
		}
	})

	t.Run("agent filter restricts the target set", func(t *testing.T) {
		delivered, err := svc.Broadcast(ctx, "claude only", filter.ByAgent("claude-code"), "", nil)
		if err != nil {
			t.Fatalf("Failed to broadcast: %v", err)
		}
		if len(delivered) != 3 {
			t.Errorf("Expected 3 deliveries, got %d", len(delivered))
		}
		for _, id := range delivered {
			if id == "sess-4" {
				t.Error("Filter admitted a connection owned by another agent")
			}
		}
	})

	t.Run("empty type defaults to broadcast", func(t *testing.T) {
		if _, err := svc.Broadcast(ctx, "typed", nil, "", nil); err != nil {
			t.Fatalf("Failed to broadcast: %v", err)
		}

		messages, err := msgRepo.List(ctx, "", 1)
		if err != nil {
			t.Fatalf("Failed to list messages: %v", err)
		}
		if len(messages) != 1 || messages[0].Type != model.MessageTypeBroadcast {
			t.Errorf("Expected most recent message type 'broadcast', got %+v", messages)
		}
	})

	t.Run("broadcast with no targets yields an empty slice", func(t *testing.T) {
		delivered, err := svc.Broadcast(ctx, "nobody home", filter.ByAgent("no-such-agent"), "", nil)
		if err != nil {
			t.Fatalf("Failed to broadcast: %v", err)
		}
		if delivered == nil {
			t.Error("Expected an empty slice, got nil")
		}
		if len(delivered) != 0 {
			t.Errorf("Expected 0 deliveries, got %d", len(delivered))
		}
	})
}

func TestService_Send(t *testing.T) {
	svc, reg, msgRepo, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()

	if _, err := reg.Add(ctx, "sess-1", "claude-code", nil); err != nil {
		t.Fatalf("Failed to add connection: %v", err)
	}

	t.Run("send to active connection", func(t *testing.T) {
		sender := "sess-9"
		msg, err := svc.Send(ctx, "sess-1", "hello", model.MessageTypeData, &sender)
		if err != nil {
			t.Fatalf("Failed to send: %v", err)
		}
		if msg == nil {
			t.Fatal("Expected a message, got nil")
		}
		if msg.RecipientID != "sess-1" {
			t.Errorf("Expected recipient 'sess-1', got '%s'", msg.RecipientID)
		}
		if msg.SenderID == nil || *msg.SenderID != "sess-9" {
			t.Errorf("Expected sender 'sess-9', got %v", msg.SenderID)
		}
		if !msg.Delivered {
			t.Error("Expected message to be marked delivered")
		}

		conn, _ := reg.Get("sess-1")
		if conn.MessageCount != 1 {
			t.Errorf("Expected message count 1, got %d", conn.MessageCount)
		}
	})

	t.Run("send to unknown session is a silent no-op", func(t *testing.T) {
		msg, err := svc.Send(ctx, "no-such-session", "hello", "", nil)
		if err != nil {
			t.Fatalf("Send returned an error: %v", err)
		}
		if msg != nil {
			t.Errorf("Expected nil message, got %+v", msg)
		}

		count, err := msgRepo.Count(ctx)
		if err != nil {
			t.Fatalf("Failed to count messages: %v", err)
		}
		if count != 1 {
			t.Errorf("Expected no new store rows, got %d total", count)
		}
	})

	t.Run("send to disconnected session is a silent no-op", func(t *testing.T) {
		if _, err := reg.Remove(ctx, "sess-1"); err != nil {
			t.Fatalf("Failed to remove connection: %v", err)
		}

		msg, err := svc.Send(ctx, "sess-1", "hello again", "", nil)
		if err != nil {
			t.Fatalf("Send returned an error: %v", err)
		}
		if msg != nil {
			t.Errorf("Expected nil message, got %+v", msg)
		}
	})
}

func TestService_OnDelivered(t *testing.T) {
	svc, reg, _, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()

	if _, err := reg.Add(ctx, "sess-1", "claude-code", nil); err != nil {
		t.Fatalf("Failed to add connection: %v", err)
	}
	if _, err := reg.Add(ctx, "sess-2", "claude-code", nil); err != nil {
		t.Fatalf("Failed to add connection: %v", err)
	}

	var pushed []*model.Message
	svc.OnDelivered(func(msg *model.Message) {
		pushed = append(pushed, msg)
	})

	if _, err := svc.Broadcast(ctx, "fanout", nil, "", nil); err != nil {
		t.Fatalf("Failed to broadcast: %v", err)
	}
	if _, err := svc.Send(ctx, "sess-1", "direct", "", nil); err != nil {
		t.Fatalf("Failed to send: %v", err)
	}

	if len(pushed) != 3 {
		t.Errorf("Expected 3 callback invocations, got %d", len(pushed))
	}
}
