package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jwebster45206/nexus-gamemaster/pkg/chat"
)

func TestNewAnthropicService(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	service := NewAnthropicService("test-api-key", "", log)

	if service.apiKey != "test-api-key" {
		t.Errorf("Expected API key %s, got %s", "test-api-key", service.apiKey)
	}
	if service.modelName != DefaultAnthropicModel {
		t.Errorf("Expected default model %s, got %s", DefaultAnthropicModel, service.modelName)
	}
	if service.httpClient == nil {
		t.Error("Expected HTTP client to be initialized")
	}
}

func TestSplitChatMessages(t *testing.T) {
	tests := []struct {
		name                   string
		messages               []chat.ChatMessage
		expectedSystem         string
		expectedNonSystemCount int
	}{
		{
			name: "single system message",
			messages: []chat.ChatMessage{
				{Role: chat.ChatRoleSystem, Content: "You are a dungeon master."},
				{Role: chat.ChatRoleUser, Content: "HERO: Aria"},
			},
			expectedSystem:         "You are a dungeon master.",
			expectedNonSystemCount: 1,
		},
		{
			name: "multiple system messages",
			messages: []chat.ChatMessage{
				{Role: chat.ChatRoleSystem, Content: "You are a dungeon master."},
				{Role: chat.ChatRoleUser, Content: "HERO: Aria"},
				{Role: chat.ChatRoleSystem, Content: "Respond in JSON."},
			},
			expectedSystem:         "You are a dungeon master.\n\nRespond in JSON.",
			expectedNonSystemCount: 1,
		},
		{
			name: "no system messages",
			messages: []chat.ChatMessage{
				{Role: chat.ChatRoleUser, Content: "Hello"},
				{Role: chat.ChatRoleAgent, Content: "Hi there!"},
			},
			expectedSystem:         "",
			expectedNonSystemCount: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			systemPrompt, nonSystemMessages := splitChatMessages(tt.messages)

			if systemPrompt != tt.expectedSystem {
				t.Errorf("Expected system prompt '%s', got '%s'", tt.expectedSystem, systemPrompt)
			}
			if len(nonSystemMessages) != tt.expectedNonSystemCount {
				t.Errorf("Expected %d non-system messages, got %d", tt.expectedNonSystemCount, len(nonSystemMessages))
			}
			for _, msg := range nonSystemMessages {
				if msg.Role == chat.ChatRoleSystem {
					t.Error("Found system message in non-system messages")
				}
			}
		})
	}
}

func TestAnthropicService_Chat(t *testing.T) {
	var captured AnthropicChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("Expected api key header, got %q", r.Header.Get("x-api-key"))
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{
			"id": "msg_01",
			"type": "message",
			"role": "assistant",
			"content": [{"type": "text", "text": "{\"story\":\"Hi?\"}"}],
			"model": "claude-test",
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 20}
		}`))
	}))
	defer server.Close()

	service := NewAnthropicService("test-key", "claude-test", slog.New(slog.NewTextHandler(io.Discard, nil)))
	service.baseURL = server.URL

	resp, err := service.Chat(context.Background(), []chat.ChatMessage{
		{Role: chat.ChatRoleSystem, Content: "rules"},
		{Role: chat.ChatRoleUser, Content: "HERO: Aria"},
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if resp.Message != `{"story":"Hi?"}` {
		t.Errorf("Unexpected message %q", resp.Message)
	}
	if captured.System != "rules" {
		t.Errorf("Expected system prompt to be split out, got %q", captured.System)
	}
	if len(captured.Messages) != 1 {
		t.Errorf("Expected 1 conversation message, got %d", len(captured.Messages))
	}
}

func TestAnthropicService_ChatErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error":{"type":"api_error","message":"boom"}}`},
		{"api error in body", http.StatusOK, `{"error":{"type":"overloaded_error","message":"busy"}}`},
		{"no text blocks", http.StatusOK, `{"content":[]}`},
		{"malformed body", http.StatusOK, `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			service := NewAnthropicService("k", "m", slog.New(slog.NewTextHandler(io.Discard, nil)))
			service.baseURL = server.URL

			_, err := service.Chat(context.Background(), []chat.ChatMessage{{Role: chat.ChatRoleUser, Content: "x"}})
			if err == nil {
				t.Error("Expected an error")
			}
		})
	}
}

func TestAnthropicService_InitModel(t *testing.T) {
	tests := []struct {
		name    string
		model   string
		status  int
		wantErr bool
	}{
		{"configured model", "", http.StatusOK, false},
		{"unknown model", "claude-nope", http.StatusNotFound, true},
		{"bad key", "", http.StatusUnauthorized, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := tt.model
			if want == "" {
				want = DefaultAnthropicModel
			}
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet {
					t.Errorf("Expected GET, got %s", r.Method)
				}
				if r.URL.Path != "/models/"+want {
					t.Errorf("Expected path /models/%s, got %s", want, r.URL.Path)
				}
				if r.Header.Get("x-api-key") != "k" {
					t.Errorf("Expected x-api-key header, got %q", r.Header.Get("x-api-key"))
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"type":"model","id":"` + want + `"}`))
			}))
			defer server.Close()

			service := NewAnthropicService("k", "", slog.New(slog.NewTextHandler(io.Discard, nil)))
			service.baseURL = server.URL

			err := service.InitModel(context.Background(), tt.model)
			if tt.wantErr && err == nil {
				t.Error("Expected an error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}
