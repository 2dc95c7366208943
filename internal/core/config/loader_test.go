package config

import (
	"os"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp(t.TempDir(), "config_*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	if _, err := tmpFile.Write([]byte(content)); err != nil {
		t.Fatalf("Failed to write to temp file: %v", err)
	}
	tmpFile.Close()
	return tmpFile.Name()
}

func TestLoad_EnvSubstitution(t *testing.T) {
	os.Setenv("TEST_API_KEY", "sk-test-12345")
	defer os.Unsetenv("TEST_API_KEY")

	path := writeConfig(t, `
providers:
  - name: openai
    kind: openai
    api_key: ${TEST_API_KEY}
    model: gpt-4o-mini
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Providers[0].APIKey != "sk-test-12345" {
		t.Errorf("Expected API key sk-test-12345, got %s", cfg.Providers[0].APIKey)
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
providers:
  - name: ollama
    kind: ollama
    model: llama3.1
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Extraction.Primary != "ollama" {
		t.Errorf("Expected primary to default to first provider, got %q", cfg.Extraction.Primary)
	}
	if cfg.Extraction.MaxRetries != 3 {
		t.Errorf("Expected default max retries 3, got %d", cfg.Extraction.MaxRetries)
	}
	if cfg.Extraction.InvokeTimeout != 60*time.Second {
		t.Errorf("Expected default invoke timeout 60s, got %v", cfg.Extraction.InvokeTimeout)
	}
	if cfg.Providers[0].Timeout != 60*time.Second {
		t.Errorf("Expected provider timeout to inherit invoke timeout, got %v", cfg.Providers[0].Timeout)
	}
	if cfg.Cache.Backend != "memory" {
		t.Errorf("Expected default cache backend memory, got %q", cfg.Cache.Backend)
	}
	if cfg.Breaker.CheckInterval != 5*time.Second {
		t.Errorf("Expected default check interval 5s, got %v", cfg.Breaker.CheckInterval)
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "unknown primary",
			content: `
extraction:
  primary: missing
providers:
  - name: openai
    kind: openai
`,
		},
		{
			name: "unknown fallback",
			content: `
extraction:
  fallbacks: [ghost]
providers:
  - name: openai
    kind: openai
`,
		},
		{
			name: "duplicate provider",
			content: `
providers:
  - name: openai
    kind: openai
  - name: openai
    kind: groq
`,
		},
		{
			name: "redis backend without url",
			content: `
cache:
  backend: redis
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			if _, err := Load(path); err == nil {
				t.Error("Expected validation error, got nil")
			}
		})
	}
}
