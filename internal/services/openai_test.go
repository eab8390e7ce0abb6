package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/nexus-gamemaster/pkg/chat"
)

func TestOpenAIService_Chat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-test", req.Model)
		assert.Len(t, req.Messages, 2)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-test",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"story\":\"Go?\"}"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 5, "completion_tokens": 5, "total_tokens": 10}
		}`))
	}))
	defer server.Close()

	cfg := openai.DefaultConfig("sk-test")
	cfg.BaseURL = server.URL + "/v1"
	svc := NewOpenAIServiceWithConfig(cfg, "gpt-test", slog.New(slog.NewTextHandler(io.Discard, nil)))

	resp, err := svc.Chat(context.Background(), []chat.ChatMessage{
		{Role: chat.ChatRoleSystem, Content: "rules"},
		{Role: chat.ChatRoleUser, Content: "HERO: Aria"},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"story":"Go?"}`, resp.Message)
}

func TestOpenAIService_ChatEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","choices":[]}`))
	}))
	defer server.Close()

	cfg := openai.DefaultConfig("sk-test")
	cfg.BaseURL = server.URL + "/v1"
	svc := NewOpenAIServiceWithConfig(cfg, "", slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := svc.Chat(context.Background(), []chat.ChatMessage{{Role: chat.ChatRoleUser, Content: "x"}})
	assert.Error(t, err)
}

func TestOpenAIService_ChatNoMessages(t *testing.T) {
	svc := NewOpenAIService("sk-test", "", slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := svc.Chat(context.Background(), nil)
	assert.Error(t, err)
}

func TestOpenAIService_InitModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path != "/v1/models/gpt-test" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"message":"model not found","type":"invalid_request_error"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"gpt-test","object":"model","owned_by":"openai"}`))
	}))
	defer server.Close()

	cfg := openai.DefaultConfig("sk-test")
	cfg.BaseURL = server.URL + "/v1"
	svc := NewOpenAIServiceWithConfig(cfg, "gpt-test", slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.NoError(t, svc.InitModel(context.Background(), ""))
	assert.Error(t, svc.InitModel(context.Background(), "gpt-missing"))
}
