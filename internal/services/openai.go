package services

import (
	"context"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/jwebster45206/nexus-gamemaster/pkg/chat"
)

const DefaultOpenAIModel = openai.GPT4oMini

// OpenAIService implements LLMService on top of the go-openai client
type OpenAIService struct {
	client    *openai.Client
	modelName string
	logger    *slog.Logger
}

func NewOpenAIService(apiKey string, modelName string, logger *slog.Logger) *OpenAIService {
	return NewOpenAIServiceWithConfig(openai.DefaultConfig(apiKey), modelName, logger)
}

// NewOpenAIServiceWithConfig allows pointing the client at a compatible endpoint.
func NewOpenAIServiceWithConfig(cfg openai.ClientConfig, modelName string, logger *slog.Logger) *OpenAIService {
	if modelName == "" {
		modelName = DefaultOpenAIModel
	}
	return &OpenAIService{
		client:    openai.NewClientWithConfig(cfg),
		modelName: modelName,
		logger:    logger,
	}
}

func (o *OpenAIService) InitModel(ctx context.Context, modelName string) error {
	if modelName == "" {
		modelName = o.modelName
	}
	model, err := o.client.GetModel(ctx, modelName)
	if err != nil {
		return fmt.Errorf("model %s unavailable: %w", modelName, err)
	}
	o.logger.Debug("OpenAI model available", "model", model.ID, "owned_by", model.OwnedBy)
	return nil
}

func (o *OpenAIService) Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("no messages provided")
	}

	req := openai.ChatCompletionRequest{
		Model:       o.modelName,
		Temperature: 0.9,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}
	for _, msg := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned from API")
	}

	choice := resp.Choices[0]
	if choice.Message.Refusal != "" {
		return nil, fmt.Errorf("model refused to respond: %s", choice.Message.Refusal)
	}
	if choice.Message.Content == "" {
		return nil, fmt.Errorf("no text content found in response")
	}

	o.logger.Debug("OpenAI response received",
		"model", resp.Model,
		"total_tokens", resp.Usage.TotalTokens)

	return &chat.ChatResponse{
		Message: choice.Message.Content,
		Model:   resp.Model,
	}, nil
}
