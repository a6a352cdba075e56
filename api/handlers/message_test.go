package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackroad/websocket-manager/internal/model"
)

func TestMessageHandler_Broadcast(t *testing.T) {
	env := setupTestEnv(t, "")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := env.registry.Add(ctx, fmt.Sprintf("claude-%d", i), "claude-code", nil)
		require.NoError(t, err)
	}
	_, err := env.registry.Add(ctx, "cursor-0", "cursor", nil)
	require.NoError(t, err)

	t.Run("broadcast to everyone", func(t *testing.T) {
		w := env.request(t, http.MethodPost, "/api/messages/broadcast", gin.H{
			"content": "deploy finished",
		})

		require.Equal(t, http.StatusOK, w.Code)

		var resp BroadcastResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 4, resp.Count)
		assert.Len(t, resp.Delivered, 4)
	})

	t.Run("broadcast restricted to one agent", func(t *testing.T) {
		w := env.request(t, http.MethodPost, "/api/messages/broadcast", gin.H{
			"content": "claude only",
			"agent":   "claude-code",
		})

		require.Equal(t, http.StatusOK, w.Code)

		var resp BroadcastResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 3, resp.Count)
		assert.NotContains(t, resp.Delivered, "cursor-0")
	})

	t.Run("missing content is rejected", func(t *testing.T) {
		w := env.request(t, http.MethodPost, "/api/messages/broadcast", gin.H{})
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestMessageHandler_Send(t *testing.T) {
	env := setupTestEnv(t, "")

	_, err := env.registry.Add(context.Background(), "sess-1", "claude-code", nil)
	require.NoError(t, err)

	t.Run("send to active connection", func(t *testing.T) {
		w := env.request(t, http.MethodPost, "/api/messages/send", gin.H{
			"sessionId": "sess-1",
			"content":   "hello",
			"senderId":  "sess-9",
		})

		require.Equal(t, http.StatusCreated, w.Code)

		var resp MessageResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "sess-1", resp.RecipientID)
		assert.Equal(t, model.MessageTypeData, resp.Type)
		require.NotNil(t, resp.SenderID)
		assert.Equal(t, "sess-9", *resp.SenderID)
		assert.True(t, resp.Delivered)
	})

	t.Run("send to unknown connection", func(t *testing.T) {
		w := env.request(t, http.MethodPost, "/api/messages/send", gin.H{
			"sessionId": "nope",
			"content":   "hello",
		})

		require.Equal(t, http.StatusNotFound, w.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "CONNECTION_NOT_FOUND", resp.Error.Code)
	})
}

func TestMessageHandler_History(t *testing.T) {
	env := setupTestEnv(t, "")
	ctx := context.Background()

	_, err := env.registry.Add(ctx, "sess-1", "claude-code", nil)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := env.delivery.Send(ctx, "sess-1", fmt.Sprintf("msg-%d", i), "", nil)
		require.NoError(t, err)
	}

	t.Run("history with limit", func(t *testing.T) {
		w := env.request(t, http.MethodGet, "/api/messages?limit=3", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp []MessageResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(t, resp, 3)
	})

	t.Run("history filtered by session", func(t *testing.T) {
		w := env.request(t, http.MethodGet, "/api/messages?sessionId=sess-1", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp []MessageResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(t, resp, 5)
	})

	t.Run("invalid limit is rejected", func(t *testing.T) {
		w := env.request(t, http.MethodGet, "/api/messages?limit=zero", nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestStatsHandler_Get(t *testing.T) {
	env := setupTestEnv(t, "")
	ctx := context.Background()

	_, err := env.registry.Add(ctx, "sess-1", "claude-code", nil)
	require.NoError(t, err)
	_, err = env.registry.Add(ctx, "sess-2", "claude-code", nil)
	require.NoError(t, err)
	_, err = env.delivery.Send(ctx, "sess-1", "hello", "", nil)
	require.NoError(t, err)

	w := env.request(t, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats model.ConnectionStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.ActiveConnections)
	assert.Equal(t, int64(2), stats.TotalEverConnected)
	assert.Equal(t, int64(1), stats.TotalMessages)
	assert.Equal(t, 2, stats.Agents["claude-code"])
}
