package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OllamaClient calls a local Ollama server through its native API.
type OllamaClient struct {
	name       string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewOllamaClient creates a client for an Ollama server
// (e.g. "http://localhost:11434").
func NewOllamaClient(name, baseURL, model string, timeout time.Duration) *OllamaClient {
	return &OllamaClient{
		name:       name,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *OllamaClient) Name() string {
	return c.name
}

// generateRequest mirrors the Ollama /api/generate request body.
type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	System  string          `json:"system,omitempty"`
	Stream  bool            `json:"stream"`
	Format  string          `json:"format,omitempty"`
	Images  []string        `json:"images,omitempty"`
	Options *generateOption `json:"options,omitempty"`
}

type generateOption struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// Invoke sends the prompt and returns the raw model output.
func (c *OllamaClient) Invoke(ctx context.Context, prompt string, opts InvokeOptions) (string, error) {
	model := opts.Model
	if model == "" {
		model = c.model
	}
	temperature := 0.0
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}

	reqBody := generateRequest{
		Model:  model,
		Prompt: prompt,
		System: extractorSystemPrompt,
		Stream: false,
		Format: "json",
		Options: &generateOption{
			Temperature: temperature,
			NumPredict:  opts.MaxTokens,
		},
	}
	for _, img := range opts.Images {
		reqBody.Images = append(reqBody.Images, base64.StdEncoding.EncodeToString(img))
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate request failed: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read generate response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &Error{
			Provider:   c.name,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("generate rejected: %s", truncate(string(respBytes), 200)),
		}
	}

	var genResp generateResponse
	if err := json.Unmarshal(respBytes, &genResp); err != nil {
		return "", fmt.Errorf("failed to parse generate response: %w", err)
	}
	if genResp.Error != "" {
		return "", fmt.Errorf("generate error: %s", genResp.Error)
	}

	return genResp.Response, nil
}

// ListModels returns the locally pulled model names.
func (c *OllamaClient) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create tags request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tags request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &Error{
			Provider:   c.name,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("tags rejected: %s", truncate(string(body), 200)),
		}
	}

	var payload struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to parse tags response: %w", err)
	}

	models := make([]string, 0, len(payload.Models))
	for _, m := range payload.Models {
		models = append(models, m.Name)
	}
	return models, nil
}

// Ping reports whether the Ollama server is reachable.
func (c *OllamaClient) Ping(ctx context.Context) error {
	_, err := c.ListModels(ctx)
	return err
}
