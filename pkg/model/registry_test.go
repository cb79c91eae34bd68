package model_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/memchat/pkg/model"
	"github.com/kadirpekel/memchat/pkg/model/modeltest"
)

func newRegistry(t *testing.T) (*model.Providers, *modeltest.FakeLLM, *modeltest.FakeLLM) {
	t.Helper()
	gemini := modeltest.New(model.ProviderGemini, "g")
	ollama := modeltest.New(model.ProviderOllama, "o")

	p := model.NewProviders(model.ProviderGemini)
	require.NoError(t, p.RegisterLLM(gemini))
	require.NoError(t, p.RegisterLLM(ollama))
	return p, gemini, ollama
}

func TestProviders_Resolve(t *testing.T) {
	p, _, _ := newRegistry(t)

	tests := []struct {
		selector string
		want     model.Provider
		wantErr  bool
	}{
		{"", model.ProviderGemini, false},
		{"gemini", model.ProviderGemini, false},
		{"GEMINI", model.ProviderGemini, false},
		{"  Ollama ", model.ProviderOllama, false},
		{"local", model.ProviderOllama, false},
		{"chatgpt", "", true},
		{"openai", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			got, err := p.Resolve(tt.selector)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, model.ErrUnknownProvider)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProviders_GetBuildsOnceAndCaches(t *testing.T) {
	p := model.NewProviders(model.ProviderOllama)
	builds := 0
	fake := modeltest.New(model.ProviderOllama, "hi")
	require.NoError(t, p.Register(model.ProviderOllama, func() (model.LLM, error) {
		builds++
		return fake, nil
	}))

	for i := 0; i < 3; i++ {
		name, llm, err := p.Get("")
		require.NoError(t, err)
		assert.Equal(t, model.ProviderOllama, name)
		assert.Same(t, fake, llm)
	}
	assert.Equal(t, 1, builds)
}

func TestProviders_FactoryErrorNotCached(t *testing.T) {
	p := model.NewProviders(model.ProviderGemini)
	attempts := 0
	require.NoError(t, p.Register(model.ProviderGemini, func() (model.LLM, error) {
		attempts++
		if attempts == 1 {
			return nil, &model.CredentialError{Provider: model.ProviderGemini, Hint: "GOOGLE_API_KEY"}
		}
		return modeltest.New(model.ProviderGemini, "ok"), nil
	}))

	_, _, err := p.Get("gemini")
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrMissingCredential))

	_, llm, err := p.Get("gemini")
	require.NoError(t, err)
	assert.NotNil(t, llm)
	assert.Equal(t, 2, attempts)
}

func TestProviders_RegisterValidation(t *testing.T) {
	p := model.NewProviders(model.ProviderGemini)
	assert.Error(t, p.Register("", func() (model.LLM, error) { return nil, nil }))
	assert.Error(t, p.Register(model.ProviderGemini, nil))
	assert.Error(t, p.RegisterLLM(nil))

	require.NoError(t, p.RegisterLLM(modeltest.New(model.ProviderGemini, "")))
	assert.Error(t, p.RegisterLLM(modeltest.New(model.ProviderGemini, "")), "duplicate registration")
}

func TestProviders_NamesAndClose(t *testing.T) {
	p, gemini, ollama := newRegistry(t)
	assert.Equal(t, []model.Provider{model.ProviderGemini, model.ProviderOllama}, p.Names())

	_, _, err := p.Get("gemini")
	require.NoError(t, err)

	require.NoError(t, p.Close())
	assert.True(t, gemini.Closed)
	assert.False(t, ollama.Closed, "unbuilt backends are not closed")
}

func TestSummarizationPrompt(t *testing.T) {
	prompt := model.SummarizationPrompt("USER: hi")
	assert.Contains(t, prompt, "Summarize the key points of this chat so far.")
	assert.Contains(t, prompt, "Do not invent details")
	assert.Contains(t, prompt, "CHAT:\nUSER: hi")
}
