// Package gemini implements model.LLM for Google Gemini using the official
// google.golang.org/genai SDK.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/kadirpekel/memchat/pkg/model"
)

const defaultModel = "gemini-2.0-flash"

// Config contains configuration for the Gemini backend.
type Config struct {
	// APIKey is the Google AI API key. Required.
	APIKey string

	// Model is the model name (e.g., "gemini-2.0-flash").
	Model string

	// BaseURL overrides the API endpoint. Mostly useful for tests.
	BaseURL string
}

// Client implements model.LLM for Gemini.
type Client struct {
	client *genai.Client
	model  string
}

// New creates a Gemini backend. A missing API key yields a
// *model.CredentialError.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, &model.CredentialError{
			Provider: model.ProviderGemini,
			Hint:     "GOOGLE_API_KEY (set providers.gemini.api_key or GOOGLE_API_KEY in .env and restart)",
		}
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	// Constructors don't take a context; the SDK only uses it for credential discovery.
	client, err := genai.NewClient(context.Background(), clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{
		client: client,
		model:  cfg.Model,
	}, nil
}

// Name implements model.LLM.
func (c *Client) Name() string {
	return string(model.ProviderGemini)
}

// Model implements model.LLM.
func (c *Client) Model() string {
	return c.model
}

// Generate sends prompt as a single user turn.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("Gemini generation failed: %w", err)
	}

	return extractText(resp), nil
}

// Summarize asks the model to condense text.
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	return c.Generate(ctx, model.SummarizationPrompt(text))
}

// ListModels lists the models visible to the API key.
func (c *Client) ListModels(ctx context.Context) ([]model.Info, error) {
	var models []model.Info
	for m, err := range c.client.Models.All(ctx) {
		if err != nil {
			return nil, fmt.Errorf("failed to list Gemini models: %w", err)
		}
		models = append(models, model.Info{
			Name:        m.Name,
			DisplayName: m.DisplayName,
		})
	}
	return models, nil
}

// Close releases resources.
func (c *Client) Close() error {
	return nil
}

// extractText concatenates the text parts of the first candidate. Thought
// parts are skipped.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	return sb.String()
}

var _ model.LLM = (*Client)(nil)
