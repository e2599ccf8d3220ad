package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/droidpilot/droidpilot/pkg/domain"
)

func TestLoadDefaultsWithEnvKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Provider != domain.ProviderOpenAI || cfg.Model != "gpt-4o-mini" {
		t.Errorf("defaults = %s/%s", cfg.Provider, cfg.Model)
	}
	if cfg.Keys.OpenAI != "sk-env" {
		t.Errorf("key = %q", cfg.Keys.OpenAI)
	}
	if cfg.Agent.MaxAttempts != 3 || cfg.Agent.BackoffBase != time.Second {
		t.Errorf("agent defaults = %+v", cfg.Agent)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
provider: gemini
model: gemini-2.0-flash
api_keys:
  gemini: g-key
agent:
  max_attempts: 5
  backoff_base: 500ms
store:
  dir: /tmp/conversations
log_level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Provider != domain.ProviderGemini || cfg.Model != "gemini-2.0-flash" {
		t.Errorf("provider/model = %s/%s", cfg.Provider, cfg.Model)
	}
	if cfg.Keys.Gemini != "g-key" {
		t.Errorf("key = %q", cfg.Keys.Gemini)
	}
	if cfg.Agent.MaxAttempts != 5 || cfg.Agent.BackoffBase != 500*time.Millisecond {
		t.Errorf("agent = %+v", cfg.Agent)
	}
	if cfg.Store.Dir != "/tmp/conversations" || cfg.LogLevel != "debug" {
		t.Errorf("store/log = %s/%s", cfg.Store.Dir, cfg.LogLevel)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
provider: openai
model: gpt-4o-mini
api_keys:
  openai: file-key
  openrouter: router-key
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("OPENAI_API_KEY", "env-key")
	t.Setenv("DROIDPILOT_PROVIDER", "openrouter")
	t.Setenv("DROIDPILOT_MODEL", "openai/gpt-4o")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Keys.OpenAI != "env-key" {
		t.Errorf("key = %q, want env to win", cfg.Keys.OpenAI)
	}
	if cfg.Provider != domain.ProviderOpenRouter || cfg.Model != "openai/gpt-4o" {
		t.Errorf("provider/model = %s/%s", cfg.Provider, cfg.Model)
	}
}

func TestLoadRejectsBadConfig(t *testing.T) {
	dir := t.TempDir()

	write := func(name, content string) string {
		t.Helper()
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"unknown provider", "provider: bedrock\nmodel: x\n", "unknown provider"},
		{"missing model", "provider: openai\nmodel: \"\"\napi_keys:\n  openai: k\n", "model is required"},
		{"missing key", "provider: gemini\nmodel: gemini-2.0-flash\n", "missing API key"},
		{"bad yaml", "provider: [unclosed\n", "parsing config"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(write(strings.ReplaceAll(tc.name, " ", "_")+".yaml", tc.content))
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Load() error = %v, want substring %q", err, tc.wantErr)
			}
		})
	}
}

func TestKeysForProvider(t *testing.T) {
	keys := KeysConfig{OpenAI: "a", Gemini: "b", OpenRouter: "c"}
	if keys.ForProvider(domain.ProviderOpenAI) != "a" ||
		keys.ForProvider(domain.ProviderGemini) != "b" ||
		keys.ForProvider(domain.ProviderOpenRouter) != "c" {
		t.Error("ForProvider returned wrong key")
	}
	if keys.ForProvider("bedrock") != "" {
		t.Error("unknown provider returned a key")
	}
}
