package config

import (
	"fmt"
	"strings"
	"time"
)

// ProvidersConfig configures the generation backends.
type ProvidersConfig struct {
	// Default is the provider used when a request names none.
	// Values: "gemini", "ollama" (alias "local")
	// Default: gemini
	Default string `yaml:"default,omitempty" json:"default,omitempty" jsonschema:"enum=gemini,enum=ollama,enum=local,default=gemini"`

	Gemini GeminiConfig `yaml:"gemini" json:"gemini,omitempty"`
	Ollama OllamaConfig `yaml:"ollama" json:"ollama,omitempty"`
}

// GeminiConfig configures the Google Gemini backend.
type GeminiConfig struct {
	// APIKey is required to use Gemini. Usually ${GOOGLE_API_KEY}.
	APIKey string `yaml:"api_key,omitempty" json:"api_key,omitempty"`

	// Model defaults to gemini-2.0-flash.
	Model string `yaml:"model,omitempty" json:"model,omitempty" jsonschema:"default=gemini-2.0-flash"`

	// BaseURL overrides the API endpoint.
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty"`
}

// OllamaConfig configures the Ollama backend.
type OllamaConfig struct {
	// Host is the Ollama server URL.
	// Default: http://localhost:11434
	Host string `yaml:"host,omitempty" json:"host,omitempty" jsonschema:"default=http://localhost:11434"`

	// Model defaults to llama3.
	Model string `yaml:"model,omitempty" json:"model,omitempty" jsonschema:"default=llama3"`

	// Timeout bounds a single request.
	// Default: 300s
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`

	// Temperature is passed to the model when set.
	Temperature *float64 `yaml:"temperature,omitempty" json:"temperature,omitempty" jsonschema:"minimum=0,maximum=2"`
}

// SetDefaults applies default values to ProvidersConfig.
func (c *ProvidersConfig) SetDefaults() {
	c.Default = strings.ToLower(strings.TrimSpace(c.Default))
	if c.Default == "" {
		c.Default = "gemini"
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.0-flash"
	}
	if c.Ollama.Host == "" {
		c.Ollama.Host = "http://localhost:11434"
	}
	if c.Ollama.Model == "" {
		c.Ollama.Model = "llama3"
	}
	if c.Ollama.Timeout == 0 {
		c.Ollama.Timeout = 300 * time.Second
	}
}

// Validate checks the providers configuration. A missing Gemini API key is
// not an error here; it surfaces when Gemini is first used.
func (c *ProvidersConfig) Validate() error {
	switch c.Default {
	case "gemini", "ollama", "local":
	default:
		return fmt.Errorf("default provider must be 'gemini' or 'ollama', got %q", c.Default)
	}
	if c.Ollama.Timeout < 0 {
		return fmt.Errorf("ollama timeout cannot be negative")
	}
	if t := c.Ollama.Temperature; t != nil && (*t < 0 || *t > 2) {
		return fmt.Errorf("ollama temperature must be between 0 and 2, got %v", *t)
	}
	return nil
}
