package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"ai-chat-be/pkg/llm"

	"github.com/stretchr/testify/assert"
)

func TestChatParsesCompletion(t *testing.T) {
	var gotBody chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"content":"All good."}}]}`)
	}))
	defer server.Close()

	provider := NewOpenAIProvider("test-key", server.URL+"/v1", "gpt-4o-mini", 0.7)

	reply, err := provider.Chat(context.Background(), []llm.Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "status?"},
	})
	assert.NoError(t, err)
	assert.Equal(t, "All good.", reply)
	assert.Equal(t, "gpt-4o-mini", gotBody.Model)
	assert.Equal(t, 0.7, gotBody.Temperature)
	assert.False(t, gotBody.Stream)
	assert.Len(t, gotBody.Messages, 2)
}

func TestChatSurfacesApiErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"rate limited"}}`)
	}))
	defer server.Close()

	provider := NewOpenAIProvider("test-key", server.URL, "gpt-4o-mini", 0)

	_, err := provider.Chat(context.Background(), []llm.Message{{Role: "user", Content: "hi"}})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestChatStreamAccumulatesDeltas(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.True(t, body.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n")
		fmt.Fprint(w, ": keep-alive comment\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"!\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	provider := NewOpenAIProvider("", server.URL, "gpt-4o-mini", 0)

	var chunks []string
	full, err := provider.ChatStream(context.Background(), []llm.Message{{Role: "user", Content: "greet"}},
		func(chunk string) error {
			chunks = append(chunks, chunk)
			return nil
		})
	assert.NoError(t, err)
	assert.Equal(t, "Hello!", full)
	assert.Equal(t, []string{"Hel", "lo", "!"}, chunks)
}

func TestChatStreamHandlerAbort(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"one\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"two\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	provider := NewOpenAIProvider("", server.URL, "gpt-4o-mini", 0)

	stop := fmt.Errorf("that's enough")
	partial, err := provider.ChatStream(context.Background(), []llm.Message{{Role: "user", Content: "count"}},
		func(chunk string) error { return stop })
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, "one", partial)
}
