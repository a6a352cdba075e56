package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func postWebhook(env *testEnv, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/payment", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func TestWebhookHandler_Payment(t *testing.T) {
	secret := "test-secret"
	env := setupTestEnv(t, secret)

	_, err := env.registry.Add(context.Background(), "sess-1", "claude-code", nil)
	require.NoError(t, err)

	payload := []byte(`{"event":"invoice.paid","amount":4200}`)

	t.Run("valid signature broadcasts the payload", func(t *testing.T) {
		w := postWebhook(env, payload, signBody(secret, payload))
		require.Equal(t, http.StatusOK, w.Code)

		var resp BroadcastResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 1, resp.Count)
		assert.Contains(t, resp.Delivered, "sess-1")
	})

	t.Run("missing signature is rejected", func(t *testing.T) {
		w := postWebhook(env, payload, "")
		require.Equal(t, http.StatusUnauthorized, w.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "INVALID_SIGNATURE", resp.Error.Code)
	})

	t.Run("wrong signature is rejected", func(t *testing.T) {
		w := postWebhook(env, payload, signBody("wrong-secret", payload))
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("tampered body is rejected", func(t *testing.T) {
		w := postWebhook(env, []byte(`{"event":"invoice.paid","amount":9999}`), signBody(secret, payload))
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestWebhookHandler_Disabled(t *testing.T) {
	env := setupTestEnv(t, "")

	payload := []byte(`{"event":"invoice.paid"}`)
	w := postWebhook(env, payload, signBody("anything", payload))

	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "WEBHOOK_DISABLED", resp.Error.Code)
}
