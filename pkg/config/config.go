// Package config loads memchat's configuration.
//
// Values are layered in this order (later wins):
//  1. Built-in defaults (Default)
//  2. YAML config file, with ${VAR} and ${VAR:-default} expansion
//  3. Environment variables (GOOGLE_API_KEY, MEMORY_STRATEGY, ...), which
//     may come from a .env file
//
// Example:
//
//	providers:
//	  default: gemini
//	  gemini:
//	    api_key: ${GOOGLE_API_KEY}
//	memory:
//	  strategy: window
//	  window_size: 6
//	store:
//	  backend: redis
//	  redis:
//	    url: redis://localhost:6379/0
package config

import (
	"fmt"
)

// Config is the root configuration.
type Config struct {
	// Server configures the HTTP API.
	Server ServerConfig `yaml:"server" json:"server,omitempty" jsonschema:"description=HTTP server settings"`

	// Providers configures the generation backends.
	Providers ProvidersConfig `yaml:"providers" json:"providers,omitempty" jsonschema:"description=Generation backends"`

	// Memory configures how session history is bounded.
	Memory MemoryConfig `yaml:"memory" json:"memory,omitempty" jsonschema:"description=Conversation memory settings"`

	// Store configures where session history is persisted.
	Store StoreConfig `yaml:"store" json:"store,omitempty" jsonschema:"description=Session store settings"`

	// Logger configures logging.
	Logger LoggerConfig `yaml:"logger" json:"logger,omitempty" jsonschema:"description=Logging settings"`

	// Observability configures metrics and tracing.
	Observability ObservabilityConfig `yaml:"observability" json:"observability,omitempty" jsonschema:"description=Metrics and tracing"`
}

// Default returns a Config populated with the built-in defaults.
// Numeric memory settings are only defaulted here, so an explicit zero in
// a file or the environment is kept.
func Default() *Config {
	cfg := &Config{
		Memory: MemoryConfig{
			FetchLastN:               DefaultFetchLastN,
			MaxTokensBeforeSummarize: DefaultMaxTokensBeforeSummarize,
			MaxMessages:              DefaultMaxMessages,
			KeepLast:                 DefaultKeepLast,
			WindowSize:               DefaultWindowSize,
		},
	}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults fills unset string and duration fields.
func (c *Config) SetDefaults() {
	c.Server.SetDefaults()
	c.Providers.SetDefaults()
	c.Memory.SetDefaults()
	c.Store.SetDefaults()
	c.Logger.SetDefaults()
	c.Observability.SetDefaults()
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Providers.Validate(); err != nil {
		return fmt.Errorf("providers: %w", err)
	}
	if err := c.Memory.Validate(); err != nil {
		return fmt.Errorf("memory: %w", err)
	}
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if err := c.Logger.Validate(); err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("observability: %w", err)
	}
	return nil
}

// Resolve returns override when it is set, else def. Zero and negative
// overrides are returned as-is.
func Resolve(override *int, def int) int {
	if override != nil {
		return *override
	}
	return def
}
