package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := fromViper(newTestViper())
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.Generation.BatchSize)
	assert.Equal(t, 2, cfg.Generation.MaxAttempts)
	assert.Equal(t, 0.5, cfg.Generation.AcceptanceRatio)
	assert.Equal(t, 2000, cfg.Generation.WindowOverlap)
	assert.Equal(t, 10*time.Minute, cfg.Generation.Deadline)
	assert.Equal(t, 10, cfg.Generation.MinResponseChars)
	assert.True(t, cfg.Generation.FillPartialBatches)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "memory", cfg.Sources.Backend)
	assert.Len(t, cfg.Providers, len(DefaultProviders()))
}

func TestFromViper_ProviderList(t *testing.T) {
	v := newTestViper()
	v.Set("providers", []map[string]interface{}{
		{"name": "local", "kind": "ollama", "base_url": "http://ollama:11434", "model": "llama3", "timeout": "5m", "probe_timeout": "3s"},
		{"name": "deepseek", "kind": "openai", "base_url": "https://api.deepseek.com/v1", "model": "deepseek-chat", "api_key": "k1"},
	})

	cfg, err := fromViper(v)
	require.NoError(t, err)
	require.Len(t, cfg.Providers, 2)
	assert.Equal(t, "local", cfg.Providers[0].Name)
	assert.Equal(t, 5*time.Minute, cfg.Providers[0].Timeout)
	assert.Equal(t, 3*time.Second, cfg.Providers[0].ProbeTimeout)
	assert.Equal(t, "k1", cfg.Providers[1].APIKey)
}

func TestFromViper_EnvOverrides(t *testing.T) {
	t.Setenv("OLLAMA_BASE_URL", "http://gpu-box:11434")
	t.Setenv("OLLAMA_MODEL", "qwen2.5:14b")
	t.Setenv("DEEPSEEK_API_KEY", "secret")
	t.Setenv("REDIS_ADDRESS", "redis:6379")

	cfg, err := fromViper(newTestViper())
	require.NoError(t, err)

	assert.Equal(t, "redis:6379", cfg.Redis.Address)
	for _, p := range cfg.Providers {
		switch p.Name {
		case "ollama":
			assert.Equal(t, "http://gpu-box:11434", p.BaseURL)
			assert.Equal(t, "qwen2.5:14b", p.Model)
		case "deepseek":
			assert.Equal(t, "secret", p.APIKey)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"zero batch size", func(c *Config) { c.Generation.BatchSize = 0 }, "batch_size"},
		{"zero attempts", func(c *Config) { c.Generation.MaxAttempts = 0 }, "max_attempts"},
		{"ratio above one", func(c *Config) { c.Generation.AcceptanceRatio = 1.5 }, "acceptance_ratio"},
		{"ratio zero", func(c *Config) { c.Generation.AcceptanceRatio = 0 }, "acceptance_ratio"},
		{"negative overlap", func(c *Config) { c.Generation.WindowOverlap = -1 }, "window_overlap"},
		{"unknown kind", func(c *Config) { c.Providers = []ProviderConfig{{Name: "x", Kind: "bedrock"}} }, "unknown kind"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Generation: GenerationConfig{BatchSize: 20, MaxAttempts: 2, AcceptanceRatio: 0.5, WindowOverlap: 2000},
				Providers:  DefaultProviders(),
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestActiveProviders(t *testing.T) {
	cfg := &Config{Providers: []ProviderConfig{
		{Name: "deepseek", Kind: ProviderKindOpenAI, APIKey: "k"},
		{Name: "nvidia", Kind: ProviderKindOpenAI},
		{Name: "ollama", Kind: ProviderKindOllama, BaseURL: "http://localhost:11434", Model: "llama3"},
		{Name: "gemini", Kind: ProviderKindGemini, APIKey: "g", Disabled: true},
		{Name: "openai", Kind: ProviderKindOpenAI, APIKey: "o"},
	}}

	active := cfg.ActiveProviders()
	names := make([]string, 0, len(active))
	for _, p := range active {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"ollama", "deepseek", "openai"}, names)
}

func TestGenerationConfig_Fast(t *testing.T) {
	g := GenerationConfig{BatchSize: 20, MaxParallel: 0}
	fast := g.Fast()
	assert.Equal(t, 10, fast.BatchSize)
	assert.True(t, fast.Parallel)
	assert.Equal(t, 4, fast.MaxParallel)
	assert.Equal(t, 20, g.BatchSize)
}
