package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/blackroad/websocket-manager/internal/db"
	"github.com/blackroad/websocket-manager/internal/model"
)

func newTestConnection(sessionID, agent string) *model.Connection {
	now := time.Now().UTC()
	return &model.Connection{
		SessionID:     sessionID,
		Agent:         agent,
		ConnectedAt:   now,
		LastHeartbeat: now,
		Status:        model.ConnectionStatusActive,
	}
}

func TestConnectionRepository_UpsertActive(t *testing.T) {
	database, err := db.NewTestDB()
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer database.Close()

	repo := NewConnectionRepository(database)
	ctx := context.Background()

	t.Run("insert new connection", func(t *testing.T) {
		conn := newTestConnection("sess-1", "claude-code")
		conn.Metadata = map[string]string{"env": "prod"}

		if err := repo.UpsertActive(ctx, conn); err != nil {
			t.Fatalf("Failed to upsert connection: %v", err)
		}

		stored, err := repo.GetBySessionID(ctx, "sess-1")
		if err != nil {
			t.Fatalf("Failed to get connection: %v", err)
		}
		if stored.Agent != "claude-code" {
			t.Errorf("Expected agent 'claude-code', got '%s'", stored.Agent)
		}
		if stored.Metadata["env"] != "prod" {
			t.Errorf("Expected metadata to round-trip, got %v", stored.Metadata)
		}
	})

	t.Run("upsert rewrites the existing row", func(t *testing.T) {
		if err := repo.MarkDisconnected(ctx, "sess-1", time.Now().UTC()); err != nil {
			t.Fatalf("Failed to mark disconnected: %v", err)
		}

		conn := newTestConnection("sess-1", "cursor")
		if err := repo.UpsertActive(ctx, conn); err != nil {
			t.Fatalf("Failed to upsert connection: %v", err)
		}

		stored, err := repo.GetBySessionID(ctx, "sess-1")
		if err != nil {
			t.Fatalf("Failed to get connection: %v", err)
		}
		if stored.Status != model.ConnectionStatusActive {
			t.Errorf("Expected status 'active', got '%s'", stored.Status)
		}
		if stored.DisconnectedAt != nil {
			t.Error("Expected disconnected_at cleared by the upsert")
		}
		if stored.Agent != "cursor" {
			t.Errorf("Expected agent 'cursor', got '%s'", stored.Agent)
		}

		count, err := repo.CountAll(ctx)
		if err != nil {
			t.Fatalf("Failed to count connections: %v", err)
		}
		if count != 1 {
			t.Errorf("Expected a single row after upsert, got %d", count)
		}
	})
}

func TestConnectionRepository_GetBySessionID(t *testing.T) {
	database, err := db.NewTestDB()
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer database.Close()

	repo := NewConnectionRepository(database)
	ctx := context.Background()

	_, err = repo.GetBySessionID(ctx, "no-such-session")
	if !errors.Is(err, model.ErrConnectionNotFound) {
		t.Errorf("Expected ErrConnectionNotFound, got %v", err)
	}
}

func TestConnectionRepository_ListActive(t *testing.T) {
	database, err := db.NewTestDB()
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer database.Close()

	repo := NewConnectionRepository(database)
	ctx := context.Background()

	for _, id := range []string{"sess-1", "sess-2", "sess-3"} {
		if err := repo.UpsertActive(ctx, newTestConnection(id, "claude-code")); err != nil {
			t.Fatalf("Failed to upsert connection: %v", err)
		}
	}
	if err := repo.MarkDisconnected(ctx, "sess-2", time.Now().UTC()); err != nil {
		t.Fatalf("Failed to mark disconnected: %v", err)
	}

	active, err := repo.ListActive(ctx)
	if err != nil {
		t.Fatalf("Failed to list active connections: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("Expected 2 active connections, got %d", len(active))
	}
	for _, conn := range active {
		if conn.SessionID == "sess-2" {
			t.Error("Disconnected session showed up in the active list")
		}
	}
}

func TestConnectionRepository_IncrementMessageCount(t *testing.T) {
	database, err := db.NewTestDB()
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer database.Close()

	repo := NewConnectionRepository(database)
	ctx := context.Background()

	if err := repo.UpsertActive(ctx, newTestConnection("sess-1", "claude-code")); err != nil {
		t.Fatalf("Failed to upsert connection: %v", err)
	}

	t.Run("increment active connection", func(t *testing.T) {
		if err := repo.IncrementMessageCount(ctx, "sess-1"); err != nil {
			t.Fatalf("Failed to increment: %v", err)
		}

		stored, err := repo.GetBySessionID(ctx, "sess-1")
		if err != nil {
			t.Fatalf("Failed to get connection: %v", err)
		}
		if stored.MessageCount != 1 {
			t.Errorf("Expected message count 1, got %d", stored.MessageCount)
		}
	})

	t.Run("disconnected row is guarded", func(t *testing.T) {
		if err := repo.MarkDisconnected(ctx, "sess-1", time.Now().UTC()); err != nil {
			t.Fatalf("Failed to mark disconnected: %v", err)
		}

		err := repo.IncrementMessageCount(ctx, "sess-1")
		if !errors.Is(err, model.ErrConnectionNotFound) {
			t.Errorf("Expected ErrConnectionNotFound for a disconnected row, got %v", err)
		}

		stored, err := repo.GetBySessionID(ctx, "sess-1")
		if err != nil {
			t.Fatalf("Failed to get connection: %v", err)
		}
		if stored.MessageCount != 1 {
			t.Errorf("Expected counter untouched, got %d", stored.MessageCount)
		}
	})
}

func TestConnectionRepository_MarkDisconnected(t *testing.T) {
	database, err := db.NewTestDB()
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer database.Close()

	repo := NewConnectionRepository(database)
	ctx := context.Background()

	err = repo.MarkDisconnected(ctx, "no-such-session", time.Now().UTC())
	if !errors.Is(err, model.ErrConnectionNotFound) {
		t.Errorf("Expected ErrConnectionNotFound, got %v", err)
	}
}
