package provider

import (
	"context"
	"fmt"

	"quiz-forge/internal/domain"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"go.uber.org/zap"
)

// GeminiProvider calls Google Gemini through LangchainGo. The system instruction
// is sent as a preamble of the single prompt.
type GeminiProvider struct {
	name   string
	model  string
	llm    llms.Model
	logger *zap.Logger
}

var _ domain.LLMProvider = (*GeminiProvider)(nil)

func NewGeminiProvider(ctx context.Context, name, apiKey, model string, logger *zap.Logger) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key cannot be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("Gemini model name cannot be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("Initializing Gemini provider", zap.String("model", model))

	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create LangchainGo Gemini client: %w", err)
	}
	return &GeminiProvider{name: name, model: model, llm: llm, logger: logger}, nil
}

func (p *GeminiProvider) Name() string { return p.name }

func (p *GeminiProvider) Complete(ctx context.Context, systemInstruction, prompt string) (string, error) {
	text, err := llms.GenerateFromSinglePrompt(ctx, p.llm, systemInstruction+"\n\n"+prompt,
		llms.WithTemperature(0.7),
		llms.WithMaxTokens(4096),
	)
	if err != nil {
		return "", fmt.Errorf("gemini generate with model %s: %w", p.model, err)
	}
	return text, nil
}
