// Package config loads droidpilot configuration from YAML with environment
// overrides for secrets.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/droidpilot/droidpilot/pkg/domain"
)

type Config struct {
	Provider domain.ProviderKind `yaml:"provider"`
	Model    string              `yaml:"model"`

	Keys  KeysConfig  `yaml:"api_keys"`
	Agent AgentConfig `yaml:"agent"`
	Store StoreConfig `yaml:"store"`

	// Models is the selectable model table shown to the user; the active
	// one is Provider+Model above.
	Models []domain.Model `yaml:"models"`

	LogLevel string `yaml:"log_level"`
}

type KeysConfig struct {
	OpenAI     string `yaml:"openai"`
	Gemini     string `yaml:"gemini"`
	OpenRouter string `yaml:"openrouter"`
}

// ForProvider returns the key for the given backend.
func (k KeysConfig) ForProvider(p domain.ProviderKind) string {
	switch p {
	case domain.ProviderOpenAI:
		return k.OpenAI
	case domain.ProviderGemini:
		return k.Gemini
	case domain.ProviderOpenRouter:
		return k.OpenRouter
	}
	return ""
}

type AgentConfig struct {
	MaxAttempts       int           `yaml:"max_attempts"`
	BackoffBase       time.Duration `yaml:"backoff_base"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
}

type StoreConfig struct {
	Dir string `yaml:"dir"`
}

// Load reads path (if it exists), applies environment overrides and
// validates the result. A missing file yields defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := defaults()

	loadDotEnv(".env")

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	// Env vars override the file; secrets live in the environment.
	if env := os.Getenv("OPENAI_API_KEY"); env != "" {
		cfg.Keys.OpenAI = env
	}
	if env := os.Getenv("GEMINI_API_KEY"); env != "" {
		cfg.Keys.Gemini = env
	}
	if env := os.Getenv("OPENROUTER_API_KEY"); env != "" {
		cfg.Keys.OpenRouter = env
	}
	if env := os.Getenv("DROIDPILOT_PROVIDER"); env != "" {
		cfg.Provider = domain.ProviderKind(env)
	}
	if env := os.Getenv("DROIDPILOT_MODEL"); env != "" {
		cfg.Model = env
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Provider: domain.ProviderOpenAI,
		Model:    "gpt-4o-mini",
		Agent: AgentConfig{
			MaxAttempts:       3,
			BackoffBase:       time.Second,
			RequestTimeout:    2 * time.Minute,
			RequestsPerMinute: 30,
		},
		Store: StoreConfig{
			Dir: "conversations",
		},
		LogLevel: "info",
	}
}

func validate(cfg *Config) error {
	switch cfg.Provider {
	case domain.ProviderOpenAI, domain.ProviderGemini, domain.ProviderOpenRouter:
	default:
		return fmt.Errorf("unknown provider %q", cfg.Provider)
	}
	if cfg.Model == "" {
		return fmt.Errorf("model is required")
	}
	if cfg.Keys.ForProvider(cfg.Provider) == "" {
		return fmt.Errorf("missing API key for provider %q", cfg.Provider)
	}
	return nil
}

// loadDotEnv reads a .env file and sets variables that are not already set.
func loadDotEnv(path string) {
	f, err := os.Open(path)
	if err != nil {
		return // no .env, that's fine
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		if len(val) >= 2 {
			if (val[0] == '"' && val[len(val)-1] == '"') ||
				(val[0] == '\'' && val[len(val)-1] == '\'') {
				val = val[1 : len(val)-1]
			}
		}
		if os.Getenv(key) == "" && val != "" {
			os.Setenv(key, val)
		}
	}
}
