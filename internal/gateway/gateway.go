// Package gateway runs a prompt against LLM providers in priority order until one
// returns usable text.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"quiz-forge/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultMinResponseChars is the shortest response accepted as usable.
const DefaultMinResponseChars = 10

// ErrResponseTooShort marks a provider reply that was empty or nearly so.
var ErrResponseTooShort = errors.New("provider response too short")

// Entry is one provider with its per-call timeout. Zero means no extra timeout.
type Entry struct {
	Provider domain.LLMProvider
	Timeout  time.Duration
}

// Gateway tries entries in order. It never retries a provider within one call.
type Gateway struct {
	entries  []Entry
	minChars int
	logger   *zap.Logger
	tracer   trace.Tracer
}

var _ domain.CompletionGateway = (*Gateway)(nil)

// New fails with a configuration error when no providers are given.
func New(entries []Entry, minResponseChars int, logger *zap.Logger) (*Gateway, error) {
	if len(entries) == 0 {
		return nil, domain.NewConfigurationError("no LLM providers are configured")
	}
	for i, e := range entries {
		if e.Provider == nil {
			return nil, domain.NewConfigurationError(fmt.Sprintf("provider entry %d is nil", i))
		}
	}
	if minResponseChars <= 0 {
		minResponseChars = DefaultMinResponseChars
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		entries:  entries,
		minChars: minResponseChars,
		logger:   logger,
		tracer:   otel.Tracer("quiz-forge/gateway"),
	}, nil
}

// Providers returns provider names in priority order.
func (g *Gateway) Providers() []string {
	names := make([]string, 0, len(g.entries))
	for _, e := range g.entries {
		names = append(names, e.Provider.Name())
	}
	return names
}

// Complete returns the first usable response. When every provider fails the error
// satisfies domain.IsProvidersExhausted and carries each provider's failure.
func (g *Gateway) Complete(ctx context.Context, systemInstruction, prompt string) (*domain.CompletionResult, error) {
	attempts := make([]domain.ProviderAttempt, 0, len(g.entries))

	for _, entry := range g.entries {
		if err := ctx.Err(); err != nil {
			attempts = append(attempts, domain.ProviderAttempt{Provider: entry.Provider.Name(), Err: err})
			break
		}

		attempt := g.call(ctx, entry, systemInstruction, prompt)
		attempts = append(attempts, attempt)
		if attempt.Success {
			return &domain.CompletionResult{
				Text:     attempt.Response,
				Provider: attempt.Provider,
				Attempts: attempts,
			}, nil
		}
	}

	g.logger.Warn("all providers exhausted", zap.Int("attempts", len(attempts)))
	return nil, domain.NewProvidersExhaustedError(attempts)
}

func (g *Gateway) call(ctx context.Context, entry Entry, systemInstruction, prompt string) domain.ProviderAttempt {
	name := entry.Provider.Name()
	ctx, span := g.tracer.Start(ctx, "gateway.provider_call", trace.WithAttributes(
		attribute.String("provider", name),
		attribute.Int("prompt_chars", len(prompt)),
	))
	defer span.End()

	callCtx := ctx
	if entry.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, entry.Timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := entry.Provider.Complete(callCtx, systemInstruction, prompt)
	attempt := domain.ProviderAttempt{
		Provider: name,
		Response: text,
		Duration: time.Since(start),
	}

	if err == nil {
		if n := len(strings.TrimSpace(text)); n < g.minChars {
			err = fmt.Errorf("%w: %d chars", ErrResponseTooShort, n)
		}
	}

	if err != nil {
		attempt.Err = err
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		g.logger.Warn("provider call failed",
			zap.String("provider", name),
			zap.Duration("duration", attempt.Duration),
			zap.Error(err),
		)
		return attempt
	}

	attempt.Success = true
	span.SetAttributes(attribute.Int("response_chars", len(text)))
	g.logger.Info("provider call succeeded",
		zap.String("provider", name),
		zap.Duration("duration", attempt.Duration),
		zap.Int("response_chars", len(text)),
	)
	return attempt
}
