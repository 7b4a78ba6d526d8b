package groq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatCompletionStreamSendsRequest(t *testing.T) {
	var got ChatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer gsk_test_key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hello\"}}]}\n\ndata: [DONE]\n\n")
	}))
	defer server.Close()

	client := NewClient(server.URL, "gsk_test_key")
	stream, err := client.ChatCompletionStream(context.Background(), ChatCompletionRequest{
		Model: "llama-3.1-8b-instant",
		Messages: []ChatMessage{
			{Role: "system", Content: "be helpful"},
			{Role: "user", Content: "hi"},
		},
	})
	require.NoError(t, err)
	defer stream.Close()

	fragment, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "Hello", fragment)

	_, err = stream.Recv()
	assert.ErrorIs(t, err, io.EOF)

	assert.True(t, got.Stream, "stream flag must be set")
	assert.Equal(t, "llama-3.1-8b-instant", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
}

func TestChatCompletionStreamStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"boom"}}`, http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, "gsk_test_key")
	stream, err := client.ChatCompletionStream(context.Background(), ChatCompletionRequest{Model: "m"})
	require.Nil(t, stream)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.Equal(t, "API Error: 500 Internal Server Error", statusErr.Error())
	assert.Contains(t, statusErr.Body, "boom")
}

func TestChatCompletionStreamCanceledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(server.URL, "gsk_test_key")
	_, err := client.ChatCompletionStream(ctx, ChatCompletionRequest{Model: "m"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"object":"list","data":[{"id":"mixtral","owned_by":"Mistral","active":true},{"id":"llama-3.1-8b-instant","owned_by":"Meta","active":true}]}`)
	}))
	defer server.Close()

	models, err := NewClient(server.URL+"/", "gsk_test_key").ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "llama-3.1-8b-instant", models[0].ID)
	assert.Equal(t, "mixtral", models[1].ID)
}

func TestIsConfiguredAndMasking(t *testing.T) {
	tests := []struct {
		key        string
		configured bool
		masked     string
	}{
		{key: "", configured: false, masked: "(not set)"},
		{key: placeholderAPIKey, configured: false, masked: "(not set)"},
		{key: "short", configured: true, masked: "****"},
		{key: "gsk_abcdefghijkl", configured: true, masked: "gsk_...ijkl"},
	}

	for _, tt := range tests {
		c := NewClient("", tt.key)
		if c.IsConfigured() != tt.configured {
			t.Errorf("IsConfigured(%q) = %v, want %v", tt.key, c.IsConfigured(), tt.configured)
		}
		if got := c.APIKeyMasked(); got != tt.masked {
			t.Errorf("APIKeyMasked(%q) = %q, want %q", tt.key, got, tt.masked)
		}
	}
}
