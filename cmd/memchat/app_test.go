package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/memchat/pkg/chat"
	"github.com/kadirpekel/memchat/pkg/config"
	"github.com/kadirpekel/memchat/pkg/model"
)

// fakeOllama answers /api/chat with a fixed reply and records prompts.
func fakeOllama(t *testing.T, reply string) (*httptest.Server, *[]string) {
	t.Helper()
	var prompts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/chat":
			var req struct {
				Messages []struct {
					Content string `json:"content"`
				} `json:"messages"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			prompts = append(prompts, req.Messages[0].Content)
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"message": map[string]string{"role": "assistant", "content": reply},
				"done":    true,
			})
		case "/api/tags":
			json.NewEncoder(w).Encode(map[string]any{"models": []map[string]string{{"name": "llama3:latest", "model": "llama3:latest"}}})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &prompts
}

func testConfig(ollamaURL string) *config.Config {
	cfg := config.Default()
	cfg.Providers.Default = "local"
	cfg.Providers.Ollama.Host = ollamaURL
	cfg.Memory.Strategy = "window"
	cfg.Memory.WindowSize = 4
	return cfg
}

func TestNewProviders(t *testing.T) {
	cfg := config.Default().Providers
	cfg.Gemini.APIKey = ""

	providers, err := newProviders(cfg)
	require.NoError(t, err)

	_, _, err = providers.Get("gemini")
	var credErr *model.CredentialError
	require.ErrorAs(t, err, &credErr)
	assert.Equal(t, model.ProviderGemini, credErr.Provider)

	name, llm, err := providers.Get("local")
	require.NoError(t, err)
	assert.Equal(t, model.ProviderOllama, name)
	assert.Equal(t, "llama3", llm.Model())

	cfg.Default = "local"
	providers, err = newProviders(cfg)
	require.NoError(t, err)
	name, err = providers.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, model.ProviderOllama, name)
}

func TestApp_AskMissingGeminiKey(t *testing.T) {
	cfg := config.Default()
	cfg.Providers.Gemini.APIKey = ""

	a, err := newApp(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close(context.Background())

	_, err = a.svc.Ask(context.Background(), chat.Request{Prompt: "hi"})
	require.Error(t, err)
	assert.True(t, chat.IsValidation(err))
	assert.Contains(t, err.Error(), "GOOGLE_API_KEY")
}

func TestApp_AskThroughOllama(t *testing.T) {
	srv, prompts := fakeOllama(t, "  it is a lightweight thread  ")

	a, err := newApp(context.Background(), testConfig(srv.URL))
	require.NoError(t, err)
	defer a.Close(context.Background())

	res, err := a.svc.Ask(context.Background(), chat.Request{Prompt: "What is a goroutine?", SessionID: "cli"})
	require.NoError(t, err)
	assert.Equal(t, model.ProviderOllama, res.Provider)
	assert.Equal(t, "it is a lightweight thread", res.Reply)
	assert.Equal(t, []string{"RECENT MESSAGES:\nUSER: What is a goroutine?\n\nASSISTANT:"}, *prompts)

	_, models, err := a.svc.ListModels(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []model.Info{{Name: "llama3:latest", DisplayName: "llama3:latest"}}, models)
}

func TestREPL(t *testing.T) {
	srv, prompts := fakeOllama(t, "pong")

	a, err := newApp(context.Background(), testConfig(srv.URL))
	require.NoError(t, err)
	defer a.Close(context.Background())

	var out bytes.Buffer
	r := &repl{
		svc:       a.svc,
		sessionID: "s1",
		in:        strings.NewReader("ping\n\n/reset\nagain\n/exit\nignored\n"),
		out:       &out,
	}
	require.NoError(t, r.run(context.Background()))

	assert.Equal(t, "pong\npong\n", out.String())
	require.Len(t, *prompts, 2)
	assert.Equal(t, "RECENT MESSAGES:\nUSER: again\n\nASSISTANT:", (*prompts)[1], "reset forgets history")
}

func TestREPL_UnknownProvider(t *testing.T) {
	srv, _ := fakeOllama(t, "pong")

	a, err := newApp(context.Background(), testConfig(srv.URL))
	require.NoError(t, err)
	defer a.Close(context.Background())

	r := &repl{
		svc:       a.svc,
		flags:     MemoryFlags{Provider: "chatgpt"},
		sessionID: "s1",
		in:        strings.NewReader("hi\n"),
		out:       &bytes.Buffer{},
	}
	err = r.run(context.Background())
	require.Error(t, err)
	assert.True(t, chat.IsValidation(err))
}

func TestWriteSchema(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeSchema(&buf, true))

	var schema map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &schema))
	assert.Equal(t, "memchat configuration", schema["title"])
	assert.Contains(t, schema["properties"], "memory")
	assert.NotContains(t, strings.TrimSpace(buf.String()), "\n")
}
