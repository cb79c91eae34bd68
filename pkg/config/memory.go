package config

import (
	"fmt"

	"github.com/kadirpekel/memchat/pkg/memory"
)

// Built-in memory defaults.
const (
	DefaultFetchLastN               = 10
	DefaultMaxTokensBeforeSummarize = 4000
	DefaultMaxMessages              = 10
	DefaultKeepLast                 = 4
	DefaultWindowSize               = 10
)

// MemoryConfig configures how session history is bounded.
type MemoryConfig struct {
	// Strategy is the default memory mode.
	// Values: "rolling", "window", "none". Unknown values become rolling.
	// Default: rolling
	Strategy string `yaml:"strategy,omitempty" json:"strategy,omitempty" jsonschema:"enum=rolling,enum=window,enum=none,default=rolling"`

	// Estimator measures transcript length.
	// Values: "chars" (len/4), "tiktoken"
	// Default: chars
	Estimator string `yaml:"estimator,omitempty" json:"estimator,omitempty" jsonschema:"enum=chars,enum=tiktoken,default=chars"`

	// FetchLastN is how many stored messages are loaded per request.
	FetchLastN int `yaml:"fetch_last_n" json:"fetch_last_n" jsonschema:"default=10"`

	// MaxTokensBeforeSummarize is the estimate above which rolling mode
	// considers summarizing.
	MaxTokensBeforeSummarize int `yaml:"max_tokens_before_summarize" json:"max_tokens_before_summarize" jsonschema:"default=4000"`

	// MaxMessages is the message count rolling mode tolerates before
	// compacting.
	MaxMessages int `yaml:"max_messages" json:"max_messages" jsonschema:"default=10"`

	// KeepLast is how many recent messages survive a compaction.
	KeepLast int `yaml:"keep_last" json:"keep_last" jsonschema:"default=4"`

	// WindowSize is how many messages window mode keeps.
	WindowSize int `yaml:"window_size" json:"window_size" jsonschema:"default=10"`
}

// SetDefaults normalizes the strategy and estimator names.
func (c *MemoryConfig) SetDefaults() {
	c.Strategy = string(memory.ParseStrategy(c.Strategy, ""))
	if c.Estimator == "" {
		c.Estimator = string(memory.EstimatorChars)
	}
}

// Validate checks the memory configuration.
func (c *MemoryConfig) Validate() error {
	switch memory.EstimatorKind(c.Estimator) {
	case memory.EstimatorChars, memory.EstimatorTiktoken:
	default:
		return fmt.Errorf("invalid estimator %q (valid: chars, tiktoken)", c.Estimator)
	}
	return nil
}

// Mode returns the configured strategy.
func (c *MemoryConfig) Mode() memory.Strategy {
	return memory.ParseStrategy(c.Strategy, "")
}
