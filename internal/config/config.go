package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Provider kinds understood by the provider factory.
const (
	ProviderKindOllama = "ollama"
	ProviderKindOpenAI = "openai"
	ProviderKindGemini = "gemini"
)

type Config struct {
	Server     ServerConfig
	Logger     LoggerConfig
	Redis      RedisConfig
	Generation GenerationConfig
	Providers  []ProviderConfig
	Sources    SourcesConfig
	Tracing    TracingConfig
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	BodyLimitMB  int
}

type LoggerConfig struct {
	Level string
	Env   string
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// GenerationConfig controls batching, retries and acceptance of model output.
type GenerationConfig struct {
	BatchSize          int
	MaxAttempts        int
	AcceptanceRatio    float64
	WindowOverlap      int
	Parallel           bool
	MaxParallel        int
	RetryDelay         time.Duration
	Deadline           time.Duration
	MinResponseChars   int
	FillPartialBatches bool
	AllowHeuristicOnly bool
	UniqueIDs          bool
}

// ProviderConfig describes one LLM backend. Order in the list is priority order.
type ProviderConfig struct {
	Name         string        `mapstructure:"name"`
	Kind         string        `mapstructure:"kind"`
	BaseURL      string        `mapstructure:"base_url"`
	APIKey       string        `mapstructure:"api_key"`
	Model        string        `mapstructure:"model"`
	Timeout      time.Duration `mapstructure:"timeout"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
	Disabled     bool          `mapstructure:"disabled"`
}

type SourcesConfig struct {
	Backend string
	TTL     time.Duration
}

type TracingConfig struct {
	Enabled     bool
	Exporter    string
	Endpoint    string
	ServiceName string
	SampleRatio float64
}

// apiKeyEnv maps well-known provider names to the environment variable holding their key.
var apiKeyEnv = map[string]string{
	"openai":   "OPENAI_API_KEY",
	"deepseek": "DEEPSEEK_API_KEY",
	"nvidia":   "NVIDIA_API_KEY",
	"gemini":   "GEMINI_API_KEY",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 600)
	v.SetDefault("server.body_limit_mb", 25)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.env", "development")

	v.SetDefault("generation.batch_size", 20)
	v.SetDefault("generation.max_attempts", 2)
	v.SetDefault("generation.acceptance_ratio", 0.5)
	v.SetDefault("generation.window_overlap", 2000)
	v.SetDefault("generation.parallel", false)
	v.SetDefault("generation.max_parallel", 4)
	v.SetDefault("generation.retry_delay", "0s")
	v.SetDefault("generation.deadline", "10m")
	v.SetDefault("generation.min_response_chars", 10)
	v.SetDefault("generation.fill_partial_batches", true)
	v.SetDefault("generation.allow_heuristic_only", false)
	v.SetDefault("generation.unique_ids", true)

	v.SetDefault("sources.backend", "memory")
	v.SetDefault("sources.ttl", "24h")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.exporter", "stdout")
	v.SetDefault("tracing.service_name", "quiz-forge")
	v.SetDefault("tracing.sample_ratio", 1.0)
}

// DefaultProviders mirrors the provider chain used when no list is configured:
// a local Ollama server first, then remote OpenAI-compatible endpoints.
func DefaultProviders() []ProviderConfig {
	return []ProviderConfig{
		{Name: "ollama", Kind: ProviderKindOllama, BaseURL: "http://localhost:11434", Model: "deepseek-coder-v2:latest", Timeout: 300 * time.Second, ProbeTimeout: 10 * time.Second},
		{Name: "nvidia", Kind: ProviderKindOpenAI, BaseURL: "https://integrate.api.nvidia.com/v1", Model: "openai/gpt-oss-20b", Timeout: 180 * time.Second},
		{Name: "deepseek", Kind: ProviderKindOpenAI, BaseURL: "https://api.deepseek.com/v1", Model: "deepseek-chat", Timeout: 180 * time.Second},
		{Name: "openai", Kind: ProviderKindOpenAI, Model: "gpt-4o-mini", Timeout: 120 * time.Second},
		{Name: "gemini", Kind: ProviderKindGemini, Model: "gemini-1.5-flash", Timeout: 120 * time.Second},
	}
}

// LoadConfig reads config.yaml (optional), .env (optional) and the environment.
func LoadConfig() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if os.Getenv("ENV") == "test" {
		v.AddConfigPath("../../config")
		v.AddConfigPath("../../")
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	setDefaults(v)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if configFile := v.ConfigFileUsed(); configFile != "" {
		absPath, _ := filepath.Abs(configFile)
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", absPath)
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port:         v.GetInt("server.port"),
			ReadTimeout:  v.GetDuration("server.read_timeout") * time.Second,
			WriteTimeout: v.GetDuration("server.write_timeout") * time.Second,
			BodyLimitMB:  v.GetInt("server.body_limit_mb"),
		},
		Logger: LoggerConfig{
			Level: v.GetString("logger.level"),
			Env:   v.GetString("logger.env"),
		},
		Redis: RedisConfig{
			Address:  v.GetString("redis.address"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Generation: GenerationConfig{
			BatchSize:          v.GetInt("generation.batch_size"),
			MaxAttempts:        v.GetInt("generation.max_attempts"),
			AcceptanceRatio:    v.GetFloat64("generation.acceptance_ratio"),
			WindowOverlap:      v.GetInt("generation.window_overlap"),
			Parallel:           v.GetBool("generation.parallel"),
			MaxParallel:        v.GetInt("generation.max_parallel"),
			RetryDelay:         v.GetDuration("generation.retry_delay"),
			Deadline:           v.GetDuration("generation.deadline"),
			MinResponseChars:   v.GetInt("generation.min_response_chars"),
			FillPartialBatches: v.GetBool("generation.fill_partial_batches"),
			AllowHeuristicOnly: v.GetBool("generation.allow_heuristic_only"),
			UniqueIDs:          v.GetBool("generation.unique_ids"),
		},
		Sources: SourcesConfig{
			Backend: v.GetString("sources.backend"),
			TTL:     v.GetDuration("sources.ttl"),
		},
		Tracing: TracingConfig{
			Enabled:     v.GetBool("tracing.enabled"),
			Exporter:    v.GetString("tracing.exporter"),
			Endpoint:    v.GetString("tracing.endpoint"),
			ServiceName: v.GetString("tracing.service_name"),
			SampleRatio: v.GetFloat64("tracing.sample_ratio"),
		},
	}

	if v.IsSet("providers") {
		if err := v.UnmarshalKey("providers", &config.Providers); err != nil {
			return nil, fmt.Errorf("failed to decode providers: %w", err)
		}
	} else {
		config.Providers = DefaultProviders()
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Override with environment variables if set
func applyEnvOverrides(config *Config) {
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logger.Level = level
	}
	if env := os.Getenv("ENV"); env != "" {
		config.Logger.Env = env
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		var p int
		if _, err := fmt.Sscanf(port, "%d", &p); err == nil {
			config.Server.Port = p
		}
	}
	if redisAddress := os.Getenv("REDIS_ADDRESS"); redisAddress != "" {
		config.Redis.Address = redisAddress
	}
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		config.Redis.Password = redisPassword
	}

	for i := range config.Providers {
		p := &config.Providers[i]
		if p.Kind == ProviderKindOllama {
			if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
				p.BaseURL = baseURL
			}
			if model := os.Getenv("OLLAMA_MODEL"); model != "" {
				p.Model = model
			}
		}
		if envName, ok := apiKeyEnv[strings.ToLower(p.Name)]; ok {
			if key := os.Getenv(envName); key != "" {
				p.APIKey = key
			}
		}
	}
}

// Validate rejects settings the orchestrator cannot run with.
func (c *Config) Validate() error {
	g := c.Generation
	if g.BatchSize < 1 {
		return fmt.Errorf("generation.batch_size must be at least 1, got %d", g.BatchSize)
	}
	if g.MaxAttempts < 1 {
		return fmt.Errorf("generation.max_attempts must be at least 1, got %d", g.MaxAttempts)
	}
	if g.AcceptanceRatio <= 0 || g.AcceptanceRatio > 1 {
		return fmt.Errorf("generation.acceptance_ratio must be in (0, 1], got %v", g.AcceptanceRatio)
	}
	if g.WindowOverlap < 0 {
		return fmt.Errorf("generation.window_overlap must not be negative, got %d", g.WindowOverlap)
	}
	for _, p := range c.Providers {
		switch p.Kind {
		case ProviderKindOllama, ProviderKindOpenAI, ProviderKindGemini:
		default:
			return fmt.Errorf("provider %q has unknown kind %q", p.Name, p.Kind)
		}
	}
	return nil
}

// ActiveProviders returns the providers that can be called, local ones first.
// Remote providers without an API key are skipped.
func (c *Config) ActiveProviders() []ProviderConfig {
	var active []ProviderConfig
	for _, p := range c.Providers {
		if p.Disabled {
			continue
		}
		if p.Kind == ProviderKindOllama {
			if p.BaseURL == "" || p.Model == "" {
				continue
			}
		} else if p.APIKey == "" {
			continue
		}
		active = append(active, p)
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Kind == ProviderKindOllama && active[j].Kind != ProviderKindOllama
	})
	return active
}

// Fast switches to the low-latency profile: smaller batches dispatched in parallel.
func (g GenerationConfig) Fast() GenerationConfig {
	g.BatchSize = 10
	g.Parallel = true
	if g.MaxParallel < 1 {
		g.MaxParallel = 4
	}
	return g
}
