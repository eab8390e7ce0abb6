package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jwebster45206/nexus-gamemaster/pkg/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGemini(t *testing.T, handler http.HandlerFunc) *GeminiService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	g := NewGeminiService("gem-key", "", slog.New(slog.NewTextHandler(io.Discard, nil)))
	g.baseURL = server.URL
	return g
}

func TestGeminiService_Chat(t *testing.T) {
	var captured GeminiRequest
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/"+DefaultGeminiModel+":generateContent", r.URL.Path)
		assert.Equal(t, "gem-key", r.Header.Get("x-goog-api-key"))
		assert.Empty(t, r.URL.RawQuery)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		_, _ = w.Write([]byte(`{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "{\"story\":"}, {"text": "\"A?\"}"}]}, "finishReason": "STOP"}],
			"modelVersion": "gemini-2.5-pro"
		}`))
	})

	resp, err := g.Chat(context.Background(), []chat.ChatMessage{
		{Role: chat.ChatRoleSystem, Content: "rules"},
		{Role: chat.ChatRoleUser, Content: "HERO: Aria"},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"story":"A?"}`, resp.Message)
	assert.Equal(t, "gemini-2.5-pro", resp.Model)

	require.NotNil(t, captured.SystemInstruction)
	assert.Equal(t, "rules", captured.SystemInstruction.Parts[0].Text)
	require.Len(t, captured.Contents, 1)
	assert.Equal(t, "user", captured.Contents[0].Role)
	assert.Equal(t, "application/json", captured.GenerationConfig.ResponseMimeType)
}

func TestGeminiService_ChatErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"bad status", http.StatusTooManyRequests, `{"error":{"code":429,"message":"quota"}}`},
		{"blocked prompt", http.StatusOK, `{"promptFeedback":{"blockReason":"SAFETY"}}`},
		{"no candidates", http.StatusOK, `{"candidates":[]}`},
		{"empty parts", http.StatusOK, `{"candidates":[{"content":{"parts":[]},"finishReason":"MAX_TOKENS"}]}`},
		{"malformed", http.StatusOK, `<html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := g.Chat(context.Background(), []chat.ChatMessage{{Role: chat.ChatRoleUser, Content: "x"}})
			assert.Error(t, err)
		})
	}
}

func TestGeminiService_ChatRequiresConversation(t *testing.T) {
	g := NewGeminiService("k", "m", slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := g.Chat(context.Background(), []chat.ChatMessage{{Role: chat.ChatRoleSystem, Content: "only rules"}})
	assert.Error(t, err)
}

func TestToGeminiRole(t *testing.T) {
	assert.Equal(t, "model", toGeminiRole(chat.ChatRoleAgent))
	assert.Equal(t, "user", toGeminiRole(chat.ChatRoleUser))
}

func TestGeminiService_TransportErrorOmitsKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	g := NewGeminiService("SECRET-KEY-123", "", slog.New(slog.NewTextHandler(io.Discard, nil)))
	g.baseURL = server.URL

	_, err := g.Chat(context.Background(), []chat.ChatMessage{{Role: chat.ChatRoleUser, Content: "x"}})
	require.Error(t, err)
	assert.False(t, strings.Contains(err.Error(), "SECRET-KEY-123"), err.Error())

	err = g.InitModel(context.Background(), "")
	require.Error(t, err)
	assert.False(t, strings.Contains(err.Error(), "SECRET-KEY-123"), err.Error())
}

func TestGeminiService_InitModel(t *testing.T) {
	tests := []struct {
		name    string
		model   string
		status  int
		wantErr bool
	}{
		{"configured model", "", http.StatusOK, false},
		{"explicit model", "gemini-2.5-flash", http.StatusOK, false},
		{"unknown model", "gemini-nope", http.StatusNotFound, true},
		{"bad key", "", http.StatusForbidden, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := tt.model
			if want == "" {
				want = DefaultGeminiModel
			}
			g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/models/"+want, r.URL.Path)
				assert.Equal(t, "gem-key", r.Header.Get("x-goog-api-key"))
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"name":"models/` + want + `"}`))
			})

			err := g.InitModel(context.Background(), tt.model)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
