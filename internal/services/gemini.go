package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jwebster45206/nexus-gamemaster/pkg/chat"
)

const (
	geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	DefaultGeminiModel = "gemini-2.5-pro"
)

// GeminiService implements LLMService for Google's Gemini generateContent API
type GeminiService struct {
	apiKey     string
	modelName  string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

type GeminiPart struct {
	Text string `json:"text"`
}

type GeminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []GeminiPart `json:"parts"`
}

type GeminiGenerationConfig struct {
	Temperature      float64 `json:"temperature,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type GeminiRequest struct {
	SystemInstruction *GeminiContent          `json:"systemInstruction,omitempty"`
	Contents          []GeminiContent         `json:"contents"`
	GenerationConfig  *GeminiGenerationConfig `json:"generationConfig,omitempty"`
}

type GeminiResponse struct {
	Candidates []struct {
		Content      GeminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
	ModelVersion string `json:"modelVersion"`
	Error        *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

func NewGeminiService(apiKey string, modelName string, logger *slog.Logger) *GeminiService {
	if modelName == "" {
		modelName = DefaultGeminiModel
	}
	return &GeminiService{
		apiKey:    apiKey,
		modelName: modelName,
		baseURL:   geminiBaseURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logger,
	}
}

// InitModel checks that the key can see the configured model.
func (g *GeminiService) InitModel(ctx context.Context, modelName string) error {
	if modelName == "" {
		modelName = g.modelName
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/models/%s", g.baseURL, url.PathEscape(modelName)), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	g.authorize(req)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("model lookup failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("model %s unavailable (status %d): %s", modelName, resp.StatusCode, string(body))
	}

	g.logger.Debug("Gemini model available", "model", modelName)
	return nil
}

// authorize sets the key header. The key stays out of the URL.
func (g *GeminiService) authorize(req *http.Request) {
	req.Header.Set("x-goog-api-key", g.apiKey)
}

// toGeminiRole maps chat roles onto Gemini's user/model roles.
func toGeminiRole(role string) string {
	if role == chat.ChatRoleAgent {
		return "model"
	}
	return "user"
}

func (g *GeminiService) Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
	systemPrompt, conversation := splitChatMessages(messages)
	if len(conversation) == 0 {
		return nil, fmt.Errorf("no messages provided")
	}

	request := GeminiRequest{
		GenerationConfig: &GeminiGenerationConfig{
			Temperature:      0.9,
			ResponseMimeType: "application/json",
		},
	}
	if systemPrompt != "" {
		request.SystemInstruction = &GeminiContent{Parts: []GeminiPart{{Text: systemPrompt}}}
	}
	for _, msg := range conversation {
		request.Contents = append(request.Contents, GeminiContent{
			Role:  toGeminiRole(msg.Role),
			Parts: []GeminiPart{{Text: msg.Content}},
		})
	}

	reqBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, url.PathEscape(g.modelName))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	g.authorize(req)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var geminiResp GeminiResponse
	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if geminiResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", geminiResp.Error.Message)
	}
	if geminiResp.PromptFeedback != nil && geminiResp.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("prompt blocked: %s", geminiResp.PromptFeedback.BlockReason)
	}
	if len(geminiResp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates returned from API")
	}

	var sb strings.Builder
	for _, part := range geminiResp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	if sb.Len() == 0 {
		return nil, fmt.Errorf("no text content found in response (finish reason %s)", geminiResp.Candidates[0].FinishReason)
	}

	g.logger.Debug("Gemini response received", "model", geminiResp.ModelVersion, "length", sb.Len())

	return &chat.ChatResponse{
		Message: sb.String(),
		Model:   geminiResp.ModelVersion,
	}, nil
}
