package memory

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// charsPerToken is the rough English ratio used by EstimateTokens.
const charsPerToken = 4

// EstimateTokens approximates the generation cost of text from its length.
// Blank text costs nothing; anything else costs at least one unit.
func EstimateTokens(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	return max(1, len(text)/charsPerToken)
}

// Estimator measures the approximate size of a transcript.
type Estimator interface {
	Estimate(text string) int
}

// EstimatorKind names an Estimator implementation in configuration.
type EstimatorKind string

const (
	EstimatorChars    EstimatorKind = "chars"
	EstimatorTiktoken EstimatorKind = "tiktoken"
)

// CharEstimator is the default Estimator. It never depends on a backend's
// tokenizer.
type CharEstimator struct{}

// Estimate implements Estimator.
func (CharEstimator) Estimate(text string) int {
	return EstimateTokens(text)
}

// NewEstimator builds the estimator named by kind. model is only used by
// the tiktoken estimator to pick an encoding.
func NewEstimator(kind EstimatorKind, model string) (Estimator, error) {
	switch kind {
	case "", EstimatorChars:
		return CharEstimator{}, nil
	case EstimatorTiktoken:
		return NewTokenCounter(model)
	default:
		return nil, fmt.Errorf("unknown estimator %q (supported: chars, tiktoken)", kind)
	}
}

// TokenCounter counts BPE tokens with tiktoken. Gemini and Ollama models
// have no tiktoken encoding, so they fall back to cl100k_base, which keeps
// the count an approximation.
type TokenCounter struct {
	encoding *tiktoken.Tiktoken
	model    string
	mu       sync.RWMutex
}

var (
	encodingCache = make(map[string]*tiktoken.Tiktoken)
	cacheMu       sync.RWMutex
)

// NewTokenCounter creates a counter for model, caching encodings per model.
func NewTokenCounter(model string) (*TokenCounter, error) {
	cacheMu.RLock()
	cached, ok := encodingCache[model]
	cacheMu.RUnlock()
	if ok {
		return &TokenCounter{encoding: cached, model: model}, nil
	}

	encoding, err := tiktoken.EncodingForModel(model)
	if err != nil {
		encoding, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("failed to get encoding: %w", err)
		}
	}

	cacheMu.Lock()
	encodingCache[model] = encoding
	cacheMu.Unlock()

	return &TokenCounter{encoding: encoding, model: model}, nil
}

// Estimate implements Estimator.
func (tc *TokenCounter) Estimate(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return len(tc.encoding.Encode(text, nil, nil))
}

// Model returns the model name the counter was built for.
func (tc *TokenCounter) Model() string {
	return tc.model
}
