package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"quiz-forge/internal/domain"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/schema"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const defaultProbeTimeout = 10 * time.Second

// ErrNoLocalModel is returned when no installed model resembles the configured one.
var ErrNoLocalModel = errors.New("no matching local model installed")

// OllamaProvider talks to a local Ollama server. Before generating it lists the
// installed models and substitutes the closest match for the configured name.
type OllamaProvider struct {
	name         string
	serverURL    string
	model        string
	probeTimeout time.Duration
	httpClient   *http.Client
	logger       *zap.Logger

	group singleflight.Group

	mu       sync.Mutex
	resolved string
	clients  map[string]llms.Model
	newLLM   func(serverURL, model string) (llms.Model, error)
}

var (
	_ domain.LLMProvider = (*OllamaProvider)(nil)
	_ domain.ModelLister = (*OllamaProvider)(nil)
)

func NewOllamaProvider(name, serverURL, model string, probeTimeout time.Duration, logger *zap.Logger) (*OllamaProvider, error) {
	if serverURL == "" {
		return nil, fmt.Errorf("ollama server URL cannot be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("ollama model name cannot be empty")
	}
	if name == "" {
		name = "ollama"
	}
	if probeTimeout <= 0 {
		probeTimeout = defaultProbeTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OllamaProvider{
		name:         name,
		serverURL:    strings.TrimRight(serverURL, "/"),
		model:        model,
		probeTimeout: probeTimeout,
		httpClient:   &http.Client{},
		logger:       logger,
		clients:      make(map[string]llms.Model),
		newLLM:       newOllamaLLM,
	}, nil
}

func newOllamaLLM(serverURL, model string) (llms.Model, error) {
	return ollama.New(
		ollama.WithModel(model),
		ollama.WithServerURL(serverURL),
	)
}

func (p *OllamaProvider) Name() string { return p.name }

// Complete resolves the model and sends a system + user chat exchange.
func (p *OllamaProvider) Complete(ctx context.Context, systemInstruction, prompt string) (string, error) {
	model, err := p.resolveModel(ctx)
	if err != nil {
		return "", err
	}

	llm, err := p.client(model)
	if err != nil {
		return "", err
	}

	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, systemInstruction),
		llms.TextParts(schema.ChatMessageTypeHuman, prompt),
	}
	resp, err := llm.GenerateContent(ctx, messages,
		llms.WithTemperature(0.7),
		llms.WithTopP(0.9),
		llms.WithMaxTokens(4096),
	)
	if err != nil {
		p.forgetModel()
		return "", fmt.Errorf("ollama chat with model %s: %w", model, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("ollama returned no choices")
	}
	return resp.Choices[0].Content, nil
}

// ListModels returns the installed model names. Concurrent callers share one request.
func (p *OllamaProvider) ListModels(ctx context.Context) ([]string, error) {
	v, err, shared := p.group.Do("tags", func() (interface{}, error) {
		return p.fetchTags(ctx)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		p.logger.Debug("shared in-flight model listing", zap.String("provider", p.name))
	}
	return v.([]string), nil
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

func (p *OllamaProvider) fetchTags(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.serverURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("build model listing request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama not reachable at %s: %w", p.serverURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama model listing returned status %d", resp.StatusCode)
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("decode ollama model listing: %w", err)
	}

	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		if m.Name != "" {
			names = append(names, m.Name)
		}
	}
	return names, nil
}

func (p *OllamaProvider) resolveModel(ctx context.Context) (string, error) {
	p.mu.Lock()
	resolved := p.resolved
	p.mu.Unlock()
	if resolved != "" {
		return resolved, nil
	}

	available, err := p.ListModels(ctx)
	if err != nil {
		return "", err
	}

	model, ok := MatchModel(p.model, available)
	if !ok {
		return "", fmt.Errorf("%w: wanted %s, have [%s]", ErrNoLocalModel, p.model, strings.Join(available, ", "))
	}
	if model != p.model {
		p.logger.Info("substituting local model",
			zap.String("configured", p.model),
			zap.String("using", model),
		)
	}

	p.mu.Lock()
	p.resolved = model
	p.mu.Unlock()
	return model, nil
}

func (p *OllamaProvider) forgetModel() {
	p.mu.Lock()
	p.resolved = ""
	p.mu.Unlock()
}

func (p *OllamaProvider) client(model string) (llms.Model, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if llm, ok := p.clients[model]; ok {
		return llm, nil
	}
	llm, err := p.newLLM(p.serverURL, model)
	if err != nil {
		return nil, fmt.Errorf("failed to create LangchainGo Ollama client: %w", err)
	}
	p.clients[model] = llm
	return llm, nil
}

// MatchModel picks the installed model closest to want: an exact name, then the
// same name ignoring the tag, then the largest overlap of name tokens.
func MatchModel(want string, available []string) (string, bool) {
	if len(available) == 0 {
		return "", false
	}
	for _, m := range available {
		if m == want {
			return m, true
		}
	}

	base := modelBase(want)
	for _, m := range available {
		if modelBase(m) == base {
			return m, true
		}
	}

	wantTokens := modelTokens(want)
	best, bestScore := "", 0
	candidates := append([]string(nil), available...)
	sort.Strings(candidates)
	for _, m := range candidates {
		score := 0
		for tok := range modelTokens(m) {
			if _, ok := wantTokens[tok]; ok {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = m, score
		}
	}
	return best, bestScore > 0
}

func modelBase(name string) string {
	name = strings.ToLower(name)
	if i := strings.IndexByte(name, ':'); i >= 0 {
		name = name[:i]
	}
	return name
}

func modelTokens(name string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, tok := range strings.FieldsFunc(modelBase(name), func(r rune) bool {
		return r == '-' || r == '_' || r == '.' || r == '/'
	}) {
		tokens[tok] = struct{}{}
	}
	return tokens
}
