package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/memchat/pkg/chat"
	"github.com/kadirpekel/memchat/pkg/config"
	"github.com/kadirpekel/memchat/pkg/memory"
	"github.com/kadirpekel/memchat/pkg/model"
	"github.com/kadirpekel/memchat/pkg/model/modeltest"
	"github.com/kadirpekel/memchat/pkg/observability"
	"github.com/kadirpekel/memchat/pkg/store"
)

type testEnv struct {
	handler http.Handler
	store   *store.InMemory
	gemini  *modeltest.FakeLLM
	ollama  *modeltest.FakeLLM
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	gemini := modeltest.New(model.ProviderGemini, "gemini says hi")
	ollama := modeltest.New(model.ProviderOllama, "ollama says hi")
	providers := model.NewProviders(model.ProviderGemini)
	require.NoError(t, providers.RegisterLLM(gemini))
	require.NoError(t, providers.RegisterLLM(ollama))

	st := store.NewInMemory()
	svc, err := chat.NewService(providers, st, config.Default().Memory)
	require.NoError(t, err)

	srv := New(config.ServerConfig{}, svc, opts...)
	return &testEnv{handler: srv.Handler(), store: st, gemini: gemini, ollama: ollama}
}

func (e *testEnv) do(t *testing.T, method, target string, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestHomeAndHealth(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "AI Server is running", body["status"])

	rec, body = env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestAsk_Query(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodGet, "/ask?prompt=What+is+Go%3F", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gemini", body["provider"])
	assert.Equal(t, "gemini says hi", body["reply"])
	assert.Contains(t, body, "session_id")
	assert.Nil(t, body["session_id"], "absent session id is null")
	assert.Equal(t, []string{"What is Go?"}, env.gemini.Prompts())
}

func TestAsk_QueryWithSession(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodGet, "/ask?prompt=hi&provider=local&session_id=abc&memory=window&window_size=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ollama", body["provider"])
	assert.Equal(t, "abc", body["session_id"])

	msgs, err := env.store.GetLastMessages(context.Background(), "abc", 10)
	require.NoError(t, err)
	assert.Equal(t, []memory.Message{
		memory.NewUserMessage("hi"),
		memory.NewAssistantMessage("ollama says hi"),
	}, msgs)
}

func TestAsk_JSON(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodPost, "/ask", `{"prompt":"hi","session_id":"s1","memory":"rolling","keep_last":0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "s1", body["session_id"])

	n, err := env.store.Len(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestAsk_BadRequests(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		body   string
		detail string
	}{
		{"missing prompt", http.MethodGet, "/ask", "", "prompt is required"},
		{"blank prompt", http.MethodPost, "/ask", `{"prompt":"  "}`, "prompt is required"},
		{"unknown provider", http.MethodGet, "/ask?prompt=x&provider=chatgpt", "", "provider must be 'gemini' or 'ollama'"},
		{"bad integer", http.MethodGet, "/ask?prompt=x&window_size=five", "", `window_size must be an integer, got "five"`},
		{"malformed json", http.MethodPost, "/ask", `{"prompt":`, "invalid request body"},
		{"unknown field", http.MethodPost, "/ask", `{"prompt":"x","temperature":1}`, "invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			rec, body := env.do(t, tt.method, tt.target, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, body["detail"], tt.detail)
			assert.Zero(t, env.gemini.Calls())
		})
	}
}

func TestAsk_BackendFailure(t *testing.T) {
	env := newTestEnv(t)
	env.gemini.Err = errors.New("quota exceeded")

	rec, body := env.do(t, http.MethodGet, "/ask?prompt=x", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, body["detail"], "quota exceeded")
}

func TestModels(t *testing.T) {
	env := newTestEnv(t)
	env.gemini.Models = []model.Info{{Name: "models/gemini-2.0-flash", DisplayName: "Gemini 2.0 Flash"}}

	rec, body := env.do(t, http.MethodGet, "/models", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gemini", body["provider"])
	assert.Equal(t, []any{map[string]any{"name": "models/gemini-2.0-flash", "display_name": "Gemini 2.0 Flash"}}, body["models"])

	rec, body = env.do(t, http.MethodGet, "/models?provider=ollama", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, body["models"])

	rec, _ = env.do(t, http.MethodGet, "/models?provider=nope", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteSession(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.store.AppendMessages(context.Background(), "abc", memory.NewUserMessage("x")))

	rec, _ := env.do(t, http.MethodDelete, "/sessions/abc", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	n, err := env.store.Len(context.Background(), "abc")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", body["detail"])

	rec, _ = env.do(t, http.MethodPut, "/ask", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec, _ = env.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "metrics disabled")
}

func TestRequestID(t *testing.T) {
	env := newTestEnv(t)

	rec, _ := env.do(t, http.MethodGet, "/health", "")
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestMetricsEndpoint(t *testing.T) {
	obs, err := observability.NewManager(context.Background(), config.ObservabilityConfig{
		Metrics: config.MetricsConfig{Enabled: true},
	}, "test")
	require.NoError(t, err)

	env := newTestEnv(t, WithObservability(obs, "/metrics"))
	env.do(t, http.MethodGet, "/health", "")

	rec, _ := env.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `route="/health"`)
}

func TestServe_GracefulShutdown(t *testing.T) {
	providers := model.NewProviders(model.ProviderGemini)
	require.NoError(t, providers.RegisterLLM(modeltest.New(model.ProviderGemini, "ok")))
	svc, err := chat.NewService(providers, store.NewInMemory(), config.Default().Memory)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := New(config.ServerConfig{ShutdownTimeout: time.Second}, svc)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/health"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestAskRequestFromQuery(t *testing.T) {
	req, err := askRequestFromQuery(map[string][]string{
		"prompt":       {"hi"},
		"max_messages": {"-1"},
		"keep_last":    {" 0 "},
	})
	require.NoError(t, err)
	require.NotNil(t, req.MaxMessages)
	assert.Equal(t, -1, *req.MaxMessages)
	require.NotNil(t, req.KeepLast)
	assert.Equal(t, 0, *req.KeepLast)
	assert.Nil(t, req.WindowSize)
}
