package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ProviderConfig tunes one provider. Credentials only ever come from the
// environment.
type ProviderConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
	APIKey  string        `yaml:"-"`
	Secret  string        `yaml:"-"`
}

// BreakerConfig is opt-in. When enabled, a provider's recent transport
// failures short-circuit later requests, so one request's outcome can depend
// on earlier ones.
type BreakerConfig struct {
	Enabled             bool          `yaml:"enabled"`
	ConsecutiveFailures uint32        `yaml:"consecutive_failures"`
	OpenTimeout         time.Duration `yaml:"open_timeout"`
}

type SummaryConfig struct {
	APIKey    string        `yaml:"-"`
	BaseURL   string        `yaml:"base_url"`
	Model     string        `yaml:"model"`
	Timeout   time.Duration `yaml:"timeout"`
	TopN      int           `yaml:"top_n"`
	MaxTokens int           `yaml:"max_tokens"`
}

type Config struct {
	ServerAddr      string                    `yaml:"server_addr"`
	LogLevel        string                    `yaml:"log_level"`
	Environment     string                    `yaml:"environment"`
	DefaultProvider string                    `yaml:"default_provider"`
	MergeStrategy   string                    `yaml:"merge_strategy"`
	Breaker         BreakerConfig             `yaml:"breaker"`
	Providers       map[string]ProviderConfig `yaml:"providers"`
	Summary         SummaryConfig             `yaml:"summary"`
}

// CredentialEnv lists, per provider, the environment variables that must all
// be set for the provider to be usable. The second variable, when present,
// fills ProviderConfig.Secret.
var CredentialEnv = map[string][]string{
	"serpapi":    {"SERPAPI_API_KEY"},
	"google":     {"GOOGLE_API_KEY", "GOOGLE_CSE_ID"},
	"bing":       {"BING_API_KEY"},
	"brave":      {"BRAVE_API_KEY"},
	"duckduckgo": nil,
	"searxng":    {"SEARXNG_URL"},
	"serper":     {"SERPER_API_KEY"},
	"tavily":     {"TAVILY_API_KEY"},
	"exa":        {"EXA_API_KEY"},
	"dataforseo": {"DATAFORSEO_LOGIN", "DATAFORSEO_PASSWORD"},
}

// loadDotenv loads a .env file if present. Overridden in tests.
var loadDotenv = func() {
	_ = godotenv.Load()
}

func defaults() *Config {
	return &Config{
		ServerAddr:      ":8080",
		LogLevel:        "info",
		Environment:     "production",
		DefaultProvider: "duckduckgo",
		MergeStrategy:   "sequential",
		Breaker: BreakerConfig{
			Enabled:             false,
			ConsecutiveFailures: 5,
			OpenTimeout:         30 * time.Second,
		},
		Providers: make(map[string]ProviderConfig),
		Summary: SummaryConfig{
			Model:     "gpt-4o-mini",
			Timeout:   30 * time.Second,
			TopN:      5,
			MaxTokens: 400,
		},
	}
}

// Load reads configuration from the environment, a .env file, and the
// optional YAML file named by METASEARCH_CONFIG. Environment variables win
// over the file.
func Load() (*Config, error) {
	loadDotenv()

	cfg := defaults()
	if path := os.Getenv("METASEARCH_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
		if cfg.Providers == nil {
			cfg.Providers = make(map[string]ProviderConfig)
		}
	}

	cfg.ServerAddr = envOr("METASEARCH_ADDR", cfg.ServerAddr)
	cfg.LogLevel = envOr("METASEARCH_LOG_LEVEL", cfg.LogLevel)
	cfg.Environment = envOr("METASEARCH_ENV", cfg.Environment)
	cfg.DefaultProvider = envOr("METASEARCH_DEFAULT_PROVIDER", cfg.DefaultProvider)
	cfg.MergeStrategy = envOr("METASEARCH_MERGE_STRATEGY", cfg.MergeStrategy)

	for id, vars := range CredentialEnv {
		pc := cfg.Providers[id]
		switch {
		case id == "searxng":
			pc.BaseURL = envOr(vars[0], pc.BaseURL)
		case len(vars) > 0:
			pc.APIKey = os.Getenv(vars[0])
			if len(vars) > 1 {
				pc.Secret = os.Getenv(vars[1])
			}
		}
		cfg.Providers[id] = pc
	}

	cfg.Summary.APIKey = os.Getenv("OPENAI_API_KEY")
	cfg.Summary.BaseURL = envOr("OPENAI_BASE_URL", cfg.Summary.BaseURL)
	cfg.Summary.Model = envOr("METASEARCH_SUMMARY_MODEL", cfg.Summary.Model)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later at request time.
func (c *Config) Validate() error {
	if _, ok := CredentialEnv[c.DefaultProvider]; !ok {
		return fmt.Errorf("unknown default provider %q", c.DefaultProvider)
	}
	switch c.MergeStrategy {
	case "sequential", "interleave":
	default:
		return fmt.Errorf("unknown merge strategy %q", c.MergeStrategy)
	}
	for id := range c.Providers {
		if _, ok := CredentialEnv[id]; !ok {
			return fmt.Errorf("unknown provider %q in config", id)
		}
	}
	return nil
}

// Configured reports whether every credential the provider needs is present.
func (c *Config) Configured(id string) bool {
	vars, ok := CredentialEnv[id]
	if !ok {
		return false
	}
	pc := c.Providers[id]
	switch {
	case len(vars) == 0:
		return true
	case id == "searxng":
		return pc.BaseURL != ""
	case len(vars) == 2:
		return pc.APIKey != "" && pc.Secret != ""
	default:
		return pc.APIKey != ""
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
