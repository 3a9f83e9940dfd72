package domain

import "context"

// LLMProvider is a chat/completion backend. Implementations return the raw text
// of the response envelope and leave interpretation to the caller.
type LLMProvider interface {
	Name() string
	Complete(ctx context.Context, systemInstruction, prompt string) (string, error)
}

// ModelLister lists the models installed on a local inference server.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// CompletionGateway runs one prompt against the configured providers in priority order.
type CompletionGateway interface {
	Complete(ctx context.Context, systemInstruction, prompt string) (*CompletionResult, error)
}

// CompletionResult is the text returned by the first provider that succeeded.
type CompletionResult struct {
	Text     string
	Provider string
	Attempts []ProviderAttempt
}

// QuestionGenerator is the public pipeline operation.
type QuestionGenerator interface {
	Generate(ctx context.Context, req GenerationRequest) ([]Question, error)
}
