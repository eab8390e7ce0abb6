package services

import (
	"context"
	"sync"

	"github.com/jwebster45206/nexus-gamemaster/pkg/chat"
)

// MockLLMAPI is a mock implementation of LLMService for testing
type MockLLMAPI struct {
	ChatFunc func(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error)

	// Track calls for testing
	ChatCalls []ChatCall

	mu sync.Mutex // protects all fields above
}

type ChatCall struct {
	Messages []chat.ChatMessage
}

// Ensure MockLLMAPI implements LLMService
var _ LLMService = (*MockLLMAPI)(nil)

// NewMockLLMAPI creates a new mock LLM service
func NewMockLLMAPI() *MockLLMAPI {
	return &MockLLMAPI{
		ChatCalls: make([]ChatCall, 0),
	}
}

// InitModel always succeeds
func (m *MockLLMAPI) InitModel(ctx context.Context, modelName string) error {
	return nil
}

// Chat mocks response generation
func (m *MockLLMAPI) Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ChatCalls = append(m.ChatCalls, ChatCall{Messages: messages})

	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, messages)
	}

	return &chat.ChatResponse{
		Message: `{"story":"Mock response. What now?","image_prompt":"mock scene","xp":0}`,
	}, nil
}

// SetChatResponse sets up the mock to return the given raw text
func (m *MockLLMAPI) SetChatResponse(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChatFunc = func(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
		return &chat.ChatResponse{Message: text}, nil
	}
}

// SetChatError sets up the mock to return an error on Chat
func (m *MockLLMAPI) SetChatError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChatFunc = func(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
		return nil, err
	}
}

// GetChatCalls returns a copy of the tracked Chat calls
func (m *MockLLMAPI) GetChatCalls() []ChatCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]ChatCall, len(m.ChatCalls))
	copy(calls, m.ChatCalls)
	return calls
}
