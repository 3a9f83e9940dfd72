package provider

import (
	"context"
	"fmt"

	"quiz-forge/internal/domain"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIProvider serves any OpenAI-compatible chat completion endpoint. NVIDIA,
// DeepSeek and OpenAI differ only in base URL, key and model.
type OpenAIProvider struct {
	name   string
	model  string
	client *openai.Client
	logger *zap.Logger
}

var _ domain.LLMProvider = (*OpenAIProvider)(nil)

func NewOpenAIProvider(name, baseURL, apiKey, model string, logger *zap.Logger) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%s API key cannot be empty", name)
	}
	if model == "" {
		return nil, fmt.Errorf("%s model name cannot be empty", name)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	logger.Info("Initializing OpenAI-compatible provider",
		zap.String("provider", name),
		zap.String("model", model),
		zap.String("base_url", cfg.BaseURL),
	)
	return &OpenAIProvider{
		name:   name,
		model:  model,
		client: openai.NewClientWithConfig(cfg),
		logger: logger,
	}, nil
}

func (p *OpenAIProvider) Name() string { return p.name }

func (p *OpenAIProvider) Complete(ctx context.Context, systemInstruction, prompt string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemInstruction},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.7,
		TopP:        0.9,
		MaxTokens:   4096,
	})
	if err != nil {
		return "", fmt.Errorf("%s chat completion: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s returned no choices", p.name)
	}
	return resp.Choices[0].Message.Content, nil
}
