package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, status int, body string) (*httptest.Server, *map[string]any) {
	t.Helper()

	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	return srv, &captured
}

const okBody = `{
	"id": "msg_01",
	"type": "message",
	"role": "assistant",
	"model": "claude-haiku-4-5-20251001",
	"content": [{"type": "text", "text": "  - Pricing page added \"Pro plan\"\n"}],
	"stop_reason": "end_turn",
	"usage": {"input_tokens": 12, "output_tokens": 9}
}`

func TestClient_Complete(t *testing.T) {
	srv, captured := newTestServer(t, http.StatusOK, okBody)
	client := New(Config{APIKey: "test-key", BaseURL: srv.URL})

	text, err := client.Complete(context.Background(), "be brief", "+ Pro plan", 200)
	require.NoError(t, err)
	assert.Equal(t, `- Pricing page added "Pro plan"`, text)

	assert.Equal(t, DefaultModel, (*captured)["model"])
	assert.EqualValues(t, 200, (*captured)["max_tokens"])
	assert.NotNil(t, (*captured)["system"])
}

func TestClient_Complete_APIError(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusTooManyRequests,
		`{"type":"error","error":{"type":"rate_limit_error","message":"quota exceeded for this key"}}`)
	client := New(Config{APIKey: "test-key", BaseURL: srv.URL})

	_, err := client.Complete(context.Background(), "", "diff", 200)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, "quota exceeded for this key", apiErr.Message)
}

func TestClient_NotConfigured(t *testing.T) {
	client := New(Config{})

	_, err := client.Complete(context.Background(), "", "diff", 200)
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = client.Ping(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestClient_Ping(t *testing.T) {
	srv, captured := newTestServer(t, http.StatusOK, okBody)
	client := New(Config{APIKey: "test-key", BaseURL: srv.URL, Model: "claude-test"})

	model, err := client.Ping(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "claude-haiku-4-5-20251001", model)
	assert.EqualValues(t, 10, (*captured)["max_tokens"])
	assert.Equal(t, "claude-test", (*captured)["model"])
}
