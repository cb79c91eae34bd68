// Package ollama implements model.LLM for a local Ollama server.
//
// Generation goes through the non-streaming Chat API (/api/chat) with the
// prompt as a single user message; the installed models come from
// /api/tags.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kadirpekel/memchat/pkg/httpclient"
	"github.com/kadirpekel/memchat/pkg/model"
)

const (
	defaultBaseURL   = "http://localhost:11434"
	defaultModel     = "llama3"
	defaultTimeout   = 300 * time.Second // Ollama can be slow for first request
	defaultKeepAlive = "5m"
)

// Config configures the Ollama client.
type Config struct {
	// BaseURL is the Ollama server URL (default: http://localhost:11434)
	BaseURL string

	// Model is the model name (e.g., "llama3", "mistral")
	Model string

	// Timeout for HTTP requests
	Timeout time.Duration

	// KeepAlive controls how long the model stays loaded (default: "5m")
	KeepAlive string

	// Temperature controls randomness (0-2). Unset leaves the server default.
	Temperature *float64
}

// Client is an Ollama LLM implementation.
type Client struct {
	httpClient  *httpclient.Client
	baseURL     string
	modelName   string
	keepAlive   string
	temperature *float64
}

// New creates a new Ollama client. Requests are attempted once.
func New(cfg Config) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	modelName := cfg.Model
	if modelName == "" {
		modelName = defaultModel
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	keepAlive := cfg.KeepAlive
	if keepAlive == "" {
		keepAlive = defaultKeepAlive
	}

	hc := httpclient.New(
		httpclient.WithHTTPClient(&http.Client{Timeout: timeout}),
	)

	return &Client{
		httpClient:  hc,
		baseURL:     baseURL,
		modelName:   modelName,
		keepAlive:   keepAlive,
		temperature: cfg.Temperature,
	}, nil
}

// Name returns the provider identifier.
func (c *Client) Name() string {
	return string(model.ProviderOllama)
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.modelName
}

// Generate sends prompt as a single user message and returns the
// assistant content.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	apiReq := &chatRequest{
		Model:     c.modelName,
		Messages:  []*chatMessage{{Role: "user", Content: prompt}},
		Stream:    false,
		KeepAlive: c.keepAlive,
	}
	if c.temperature != nil {
		apiReq.Options = map[string]any{"temperature": *c.temperature}
	}

	body, err := json.Marshal(apiReq)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var apiResp chatResponse
	if err := c.do(httpReq, &apiResp); err != nil {
		if httpclient.IsNotFound(err) {
			return "", fmt.Errorf("model %q is not available on %s (try `ollama pull %s`): %w", c.modelName, c.baseURL, c.modelName, err)
		}
		return "", err
	}
	if apiResp.Message == nil {
		return "", nil
	}
	return apiResp.Message.Content, nil
}

// Summarize condenses text with the shared summarization prompt.
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	return c.Generate(ctx, model.SummarizationPrompt(text))
}

// ListModels returns the locally installed models.
func (c *Client) ListModels(ctx context.Context) ([]model.Info, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var apiResp tagsResponse
	if err := c.do(httpReq, &apiResp); err != nil {
		return nil, err
	}

	models := make([]model.Info, 0, len(apiResp.Models))
	for _, m := range apiResp.Models {
		models = append(models, model.Info{Name: m.Name, DisplayName: m.Model})
	}
	return models, nil
}

// Close releases resources.
func (c *Client) Close() error {
	return nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// API types

type chatRequest struct {
	Model     string         `json:"model"`
	Messages  []*chatMessage `json:"messages"`
	Options   map[string]any `json:"options,omitempty"`
	Stream    bool           `json:"stream"`
	KeepAlive string         `json:"keep_alive,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Model           string       `json:"model"`
	CreatedAt       string       `json:"created_at"`
	Message         *chatMessage `json:"message,omitempty"`
	Done            bool         `json:"done"`
	DoneReason      string       `json:"done_reason,omitempty"`
	PromptEvalCount int          `json:"prompt_eval_count,omitempty"`
	EvalCount       int          `json:"eval_count,omitempty"`
}

type tagsResponse struct {
	Models []struct {
		Name  string `json:"name"`
		Model string `json:"model"`
	} `json:"models"`
}

// Ensure Client implements model.LLM
var _ model.LLM = (*Client)(nil)
