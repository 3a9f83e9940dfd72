// Package provider adapts concrete LLM backends to domain.LLMProvider.
package provider

import (
	"context"
	"fmt"

	"quiz-forge/internal/config"
	"quiz-forge/internal/domain"
	"quiz-forge/internal/gateway"

	"go.uber.org/zap"
)

// BuildEntries creates one gateway entry per provider config, keeping the order.
// A provider that cannot be constructed is skipped with a warning.
func BuildEntries(ctx context.Context, cfgs []config.ProviderConfig, logger *zap.Logger) []gateway.Entry {
	if logger == nil {
		logger = zap.NewNop()
	}

	entries := make([]gateway.Entry, 0, len(cfgs))
	for _, pc := range cfgs {
		p, err := New(ctx, pc, logger)
		if err != nil {
			logger.Warn("skipping provider", zap.String("provider", pc.Name), zap.Error(err))
			continue
		}
		entries = append(entries, gateway.Entry{Provider: p, Timeout: pc.Timeout})
	}
	return entries
}

// New builds a single provider from its config.
func New(ctx context.Context, pc config.ProviderConfig, logger *zap.Logger) (domain.LLMProvider, error) {
	switch pc.Kind {
	case config.ProviderKindOllama:
		return NewOllamaProvider(pc.Name, pc.BaseURL, pc.Model, pc.ProbeTimeout, logger)
	case config.ProviderKindOpenAI:
		return NewOpenAIProvider(pc.Name, pc.BaseURL, pc.APIKey, pc.Model, logger)
	case config.ProviderKindGemini:
		return NewGeminiProvider(ctx, pc.Name, pc.APIKey, pc.Model, logger)
	default:
		return nil, fmt.Errorf("unknown provider kind %q", pc.Kind)
	}
}

// ModelListers returns the entries whose provider can list installed models.
func ModelListers(entries []gateway.Entry) map[string]domain.ModelLister {
	listers := make(map[string]domain.ModelLister)
	for _, e := range entries {
		if l, ok := e.Provider.(domain.ModelLister); ok {
			listers[e.Provider.Name()] = l
		}
	}
	return listers
}
