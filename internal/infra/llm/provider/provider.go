// Package provider implements AI inference provider clients.
//
// This package contains:
//   - Client interface: core abstraction for inference backends
//   - OpenAIClient: OpenAI-compatible chat completions implementation
//     (OpenAI, Groq and any gateway speaking the same protocol)
//   - OllamaClient: local Ollama implementation
package provider

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// InvokeOptions controls a single inference call.
type InvokeOptions struct {
	// Model overrides the client's default model when set
	Model string

	// Temperature, nil means provider default
	Temperature *float64

	// MaxTokens caps the completion length (0 = client default)
	MaxTokens int

	// Images holds raw screenshot bytes for vision-capable models
	Images [][]byte
}

// Client defines the core interface for any AI inference backend.
type Client interface {
	// Name returns the provider identifier (e.g., "openai", "ollama")
	Name() string

	// Invoke sends a prompt and returns the raw model output
	Invoke(ctx context.Context, prompt string, opts InvokeOptions) (string, error)

	// ListModels returns the model identifiers the backend currently serves
	ListModels(ctx context.Context) ([]string, error)

	// Ping reports whether the backend is reachable
	Ping(ctx context.Context) error
}

// Error wraps a provider failure with its HTTP status so retry and
// classification logic can inspect it.
type Error struct {
	Provider   string
	StatusCode int
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: HTTP %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: HTTP %d", e.Provider, e.StatusCode)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// parseRetryAfter parses the Retry-After header value into a duration.
// Supports seconds format (e.g. "120"). Returns zero if absent or unparseable.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
