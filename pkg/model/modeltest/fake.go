// Package modeltest provides test doubles for model.LLM.
package modeltest

import (
	"context"
	"sync"

	"github.com/kadirpekel/memchat/pkg/model"
)

// FakeLLM is a recording model.LLM. Replies come from GenerateFunc and
// SummarizeFunc when set, else from Reply and Summary. All methods are safe
// for concurrent use.
type FakeLLM struct {
	ProviderName string
	ModelName    string

	Reply   string
	Summary string
	Err     error

	GenerateFunc  func(ctx context.Context, prompt string) (string, error)
	SummarizeFunc func(ctx context.Context, text string) (string, error)
	Models        []model.Info

	mu              sync.Mutex
	GeneratePrompts []string
	SummarizeTexts  []string
	Closed          bool
}

// New creates a fake for provider that always answers reply.
func New(provider model.Provider, reply string) *FakeLLM {
	return &FakeLLM{
		ProviderName: string(provider),
		ModelName:    "fake-" + string(provider),
		Reply:        reply,
		Summary:      "fake summary",
	}
}

// Name implements model.LLM.
func (f *FakeLLM) Name() string {
	return f.ProviderName
}

// Model implements model.LLM.
func (f *FakeLLM) Model() string {
	return f.ModelName
}

// Generate records prompt and returns the configured reply.
func (f *FakeLLM) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.GeneratePrompts = append(f.GeneratePrompts, prompt)
	f.mu.Unlock()

	if f.GenerateFunc != nil {
		return f.GenerateFunc(ctx, prompt)
	}
	if f.Err != nil {
		return "", f.Err
	}
	return f.Reply, nil
}

// Summarize records text and returns the configured summary.
func (f *FakeLLM) Summarize(ctx context.Context, text string) (string, error) {
	f.mu.Lock()
	f.SummarizeTexts = append(f.SummarizeTexts, text)
	f.mu.Unlock()

	if f.SummarizeFunc != nil {
		return f.SummarizeFunc(ctx, text)
	}
	if f.Err != nil {
		return "", f.Err
	}
	return f.Summary, nil
}

// ListModels returns Models.
func (f *FakeLLM) ListModels(context.Context) ([]model.Info, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Models, nil
}

// Close marks the fake closed.
func (f *FakeLLM) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// Prompts returns a copy of the prompts passed to Generate.
func (f *FakeLLM) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.GeneratePrompts))
	copy(out, f.GeneratePrompts)
	return out
}

// Summaries returns a copy of the texts passed to Summarize.
func (f *FakeLLM) Summaries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.SummarizeTexts))
	copy(out, f.SummarizeTexts)
	return out
}

// Calls returns the total number of Generate and Summarize calls.
func (f *FakeLLM) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.GeneratePrompts) + len(f.SummarizeTexts)
}

var _ model.LLM = (*FakeLLM)(nil)
