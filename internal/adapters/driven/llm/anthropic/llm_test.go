package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

func sse(w http.ResponseWriter, event, data string) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}

func textDelta(text string) string {
	return fmt.Sprintf(`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":%q}}`, text)
}

func collect(t *testing.T, svc *LLMService, msgs []driven.ChatMessage) (string, error) {
	t.Helper()
	var sb strings.Builder
	for part, err := range svc.ChatStream(context.Background(), msgs, driven.ChatOptions{}) {
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(part)
	}
	return sb.String(), nil
}

func TestChatStream_TextDeltas(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))

		var req messagesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)
		assert.Equal(t, DefaultMaxTokens, req.MaxTokens)
		assert.Equal(t, "rules one\n\nrules two", req.System)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)

		sse(w, "message_start", `{"type":"message_start","message":{"id":"m1"}}`)
		sse(w, "content_block_start", `{"type":"content_block_start","index":0}`)
		sse(w, "ping", `{"type":"ping"}`)
		sse(w, "content_block_delta", textDelta("Hello"))
		sse(w, "content_block_delta", textDelta(" there"))
		sse(w, "content_block_stop", `{"type":"content_block_stop","index":0}`)
		sse(w, "message_delta", `{"type":"message_delta","delta":{"stop_reason":"end_turn"}}`)
		sse(w, "message_stop", `{"type":"message_stop"}`)
	}))
	defer server.Close()

	svc, err := NewLLMService(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	text, err := collect(t, svc, []driven.ChatMessage{
		{Role: "system", Content: "rules one"},
		{Role: "system", Content: "rules two"},
		{Role: "user", Content: "hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello there", text)
}

func TestChatStream_ErrorEvent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		sse(w, "content_block_delta", textDelta("Hel"))
		sse(w, "error", `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`)
	}))
	defer server.Close()

	svc, err := NewLLMService(Config{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	text, err := collect(t, svc, nil)
	assert.Equal(t, "Hel", text)
	require.ErrorIs(t, err, domain.ErrGenerationFailure)
	assert.Contains(t, err.Error(), "overloaded_error")
}

func TestChatStream_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"invalid x-api-key"}}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	svc, err := NewLLMService(Config{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = collect(t, svc, nil)
	require.ErrorIs(t, err, domain.ErrGenerationFailure)
	assert.Contains(t, err.Error(), "status 401")
}

func TestChatStream_MissingStop(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		sse(w, "content_block_delta", textDelta("cut"))
	}))
	defer server.Close()

	svc, err := NewLLMService(Config{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = collect(t, svc, nil)
	assert.ErrorIs(t, err, domain.ErrGenerationFailure)
}

func TestNewLLMService(t *testing.T) {
	_, err := NewLLMService(Config{})
	assert.Error(t, err)

	svc, err := NewLLMService(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, svc.ModelName())
	assert.Equal(t, "anthropic", svc.Provider())
	assert.Equal(t, DefaultBaseURL, svc.baseURL)
}

func TestPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	svc, err := NewLLMService(Config{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)
	assert.NoError(t, svc.Ping(context.Background()))
}
