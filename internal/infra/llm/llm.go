// Package llm provides resilient AI inference clients.
//
// This package offers provider-agnostic access to LLM backends:
//   - OpenAI-compatible chat completions (OpenAI, Groq, custom gateways)
//   - Local Ollama servers
//
// # Quick Start
//
//	import "github.com/joblens/extractor/internal/infra/llm"
//
//	client, err := llm.NewClient(llm.KindOpenAI, "openai",
//	    "https://api.openai.com/v1", apiKey, "gpt-4o-mini", 60*time.Second)
//	raw, err := client.Invoke(ctx, prompt, llm.InvokeOptions{})
//
// Most types are re-exported from the provider sub-package for convenience.
package llm

import (
	"fmt"
	"time"

	"github.com/joblens/extractor/internal/infra/llm/provider"
)

// Client is the core interface for inference backends.
type Client = provider.Client

// InvokeOptions controls a single inference call.
type InvokeOptions = provider.InvokeOptions

// Error wraps a provider failure with its HTTP status.
type Error = provider.Error

// OpenAIClient talks to OpenAI-compatible chat completion endpoints.
type OpenAIClient = provider.OpenAIClient

// OllamaClient talks to a local Ollama server.
type OllamaClient = provider.OllamaClient

// Supported backend kinds.
const (
	KindOpenAI = "openai"
	KindGroq   = "groq"
	KindOllama = "ollama"
)

// Default base URLs per backend kind, used when configuration leaves the
// endpoint empty.
const (
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultGroqBaseURL   = "https://api.groq.com/openai/v1"
	DefaultOllamaBaseURL = "http://localhost:11434"
)

// NewClient creates a provider client for the given backend kind.
func NewClient(kind, name, baseURL, apiKey, model string, timeout time.Duration) (Client, error) {
	switch kind {
	case KindOpenAI:
		if baseURL == "" {
			baseURL = DefaultOpenAIBaseURL
		}
		return provider.NewOpenAIClient(name, baseURL, apiKey, model, timeout), nil
	case KindGroq:
		if baseURL == "" {
			baseURL = DefaultGroqBaseURL
		}
		return provider.NewOpenAIClient(name, baseURL, apiKey, model, timeout), nil
	case KindOllama:
		if baseURL == "" {
			baseURL = DefaultOllamaBaseURL
		}
		return provider.NewOllamaClient(name, baseURL, model, timeout), nil
	default:
		return nil, fmt.Errorf("unsupported provider kind: %s", kind)
	}
}

// NewOpenAIClient creates a client for an OpenAI-compatible backend.
func NewOpenAIClient(name, baseURL, apiKey, model string, timeout time.Duration) *OpenAIClient {
	return provider.NewOpenAIClient(name, baseURL, apiKey, model, timeout)
}

// NewOllamaClient creates a client for an Ollama server.
func NewOllamaClient(name, baseURL, model string, timeout time.Duration) *OllamaClient {
	return provider.NewOllamaClient(name, baseURL, model, timeout)
}
