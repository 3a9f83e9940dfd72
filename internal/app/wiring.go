// Package app assembles the generation pipeline and the source registry from configuration.
package app

import (
	"context"
	"fmt"
	"time"

	"quiz-forge/internal/adapter"
	"quiz-forge/internal/adapter/document"
	"quiz-forge/internal/adapter/provider"
	"quiz-forge/internal/cache"
	"quiz-forge/internal/config"
	"quiz-forge/internal/domain"
	"quiz-forge/internal/gateway"
	"quiz-forge/internal/service"

	"go.uber.org/zap"
)

const (
	SourceBackendMemory = "memory"
	SourceBackendRedis  = "redis"
)

// Pipeline holds the two generation profiles and the provider chain behind them.
type Pipeline struct {
	Standard  *service.QuizGenerationService
	Fast      *service.QuizGenerationService
	Providers []string
	Listers   map[string]domain.ModelLister
}

// BuildPipeline creates the provider chain and both generation profiles. With no
// usable provider it falls back to heuristic-only generation if the config allows it.
func BuildPipeline(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Pipeline, error) {
	entries := provider.BuildEntries(ctx, cfg.ActiveProviders(), logger)

	var gw domain.CompletionGateway
	var names []string
	g, err := gateway.New(entries, cfg.Generation.MinResponseChars, logger)
	switch {
	case err == nil:
		gw = g
		names = g.Providers()
	case domain.IsConfigurationError(err):
		logger.Warn("no LLM providers available", zap.Error(err))
	default:
		return nil, err
	}

	standard, err := service.NewQuizGenerationService(gw, cfg.Generation, logger)
	if err != nil {
		return nil, err
	}
	fast, err := service.NewQuizGenerationService(gw, cfg.Generation.Fast(), logger)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		Standard:  standard,
		Fast:      fast,
		Providers: names,
		Listers:   provider.ModelListers(entries),
	}, nil
}

// SourceBackend is the configured source store. Cache is nil for the in-memory backend.
type SourceBackend struct {
	Store domain.SourceStore
	Cache domain.Cache
	Close func() error
}

func BuildSourceStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*SourceBackend, error) {
	switch cfg.Sources.Backend {
	case "", SourceBackendMemory:
		return &SourceBackend{
			Store: adapter.NewMemorySourceStore(cfg.Sources.TTL),
			Close: func() error { return nil },
		}, nil
	case SourceBackendRedis:
		client, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		logger.Info("Successfully connected to Redis", zap.String("address", cfg.Redis.Address))
		c := adapter.NewRedisCache(client)
		return &SourceBackend{
			Store: adapter.NewCacheSourceStore(c, cfg.Sources.TTL, logger),
			Cache: c,
			Close: client.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unknown sources.backend %q", cfg.Sources.Backend)
	}
}

// NewExtractor caps extracted text at the request body limit.
func NewExtractor(cfg *config.Config, logger *zap.Logger) *document.Extractor {
	maxBytes := int64(cfg.Server.BodyLimitMB) << 20
	return document.NewExtractor(maxBytes, logger)
}

// ShutdownTimeout bounds graceful shutdown of the server and exporters.
const ShutdownTimeout = 10 * time.Second
