package services

import (
	"context"
	"strings"

	"github.com/jwebster45206/nexus-gamemaster/pkg/chat"
)

// LLMService defines the interface for interacting with a text model
type LLMService interface {
	// InitModel prepares the provider on startup
	InitModel(ctx context.Context, modelName string) error

	// Chat sends the messages and returns the model's raw text
	Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error)
}

// splitChatMessages extracts and combines all system messages into a single system prompt
// and returns the remaining non-system messages
func splitChatMessages(messages []chat.ChatMessage) (string, []chat.ChatMessage) {
	var systemParts []string
	var nonSystemMessages []chat.ChatMessage

	for _, msg := range messages {
		if msg.Role == chat.ChatRoleSystem {
			systemParts = append(systemParts, msg.Content)
		} else {
			nonSystemMessages = append(nonSystemMessages, msg)
		}
	}

	systemPrompt := strings.Join(systemParts, "\n\n")
	return systemPrompt, nonSystemMessages
}
