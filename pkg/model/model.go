// Package model defines the generation backend interface shared by the
// Gemini and Ollama implementations.
//
// A backend does two things: generate text for a prompt, and condense a
// chat transcript into a summary. Both are blocking request/response calls
// without streaming; cancellation and deadlines come from the context.
package model

import (
	"context"
	"errors"
	"fmt"
)

// LLM is a text-generation backend.
type LLM interface {
	// Name returns the provider identifier ("gemini", "ollama").
	Name() string

	// Model returns the model the backend talks to.
	Model() string

	// Generate returns the completion for prompt.
	Generate(ctx context.Context, prompt string) (string, error)

	// Summarize condenses text into a short digest.
	Summarize(ctx context.Context, text string) (string, error)

	// ListModels returns the models available on the backend.
	ListModels(ctx context.Context) ([]Info, error)

	// Close releases any resources held by the backend.
	Close() error
}

// Info describes a model exposed by a backend.
type Info struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name,omitempty"`
}

// Provider identifies a backend.
type Provider string

const (
	// ProviderGemini is Google's hosted Gemini API.
	ProviderGemini Provider = "gemini"

	// ProviderOllama is a local Ollama server.
	ProviderOllama Provider = "ollama"
)

// ErrMissingCredential is returned when a backend cannot be built because
// its credential is not configured.
var ErrMissingCredential = errors.New("missing credential")

// CredentialError wraps ErrMissingCredential with the setting to fix.
type CredentialError struct {
	Provider Provider
	Hint     string
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("%s requires %s", e.Provider, e.Hint)
}

func (e *CredentialError) Unwrap() error {
	return ErrMissingCredential
}

const summarizationPrompt = `Summarize the key points of this chat so far.

Requirements:
- Keep names, goals, constraints, decisions, and open questions
- Use concise bullet points
- Do not invent details

CHAT:
%s`

// SummarizationPrompt wraps a transcript in the summarization instructions
// used by every backend.
func SummarizationPrompt(text string) string {
	return fmt.Sprintf(summarizationPrompt, text)
}
