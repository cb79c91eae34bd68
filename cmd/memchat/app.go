package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/kadirpekel/memchat"
	"github.com/kadirpekel/memchat/pkg/chat"
	"github.com/kadirpekel/memchat/pkg/config"
	"github.com/kadirpekel/memchat/pkg/model"
	"github.com/kadirpekel/memchat/pkg/model/gemini"
	"github.com/kadirpekel/memchat/pkg/model/ollama"
	"github.com/kadirpekel/memchat/pkg/observability"
	"github.com/kadirpekel/memchat/pkg/store"
)

// app holds the components shared by serve, ask and chat.
type app struct {
	providers *model.Providers
	store     store.Store
	obs       *observability.Manager
	svc       *chat.Service
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	providers, err := newProviders(cfg.Providers)
	if err != nil {
		return nil, err
	}

	st, err := store.New(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store.Backend, err)
	}

	obs, err := observability.NewManager(ctx, cfg.Observability, memchat.Version)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}

	svc, err := chat.NewService(providers, st, cfg.Memory,
		chat.WithTracer(obs.Tracer()),
		chat.WithMetrics(obs.Metrics()))
	if err != nil {
		st.Close()
		obs.Shutdown(ctx)
		return nil, err
	}

	return &app{providers: providers, store: st, obs: obs, svc: svc}, nil
}

// Close releases backends, the store and exporters.
func (a *app) Close(ctx context.Context) error {
	return errors.Join(
		a.providers.Close(),
		a.store.Close(),
		a.obs.Shutdown(ctx),
	)
}

// newProviders registers both backends lazily. Gemini without an API key
// only fails when it is actually requested.
func newProviders(cfg config.ProvidersConfig) (*model.Providers, error) {
	fallback := model.Provider(cfg.Default)
	if fallback == "local" {
		fallback = model.ProviderOllama
	}
	providers := model.NewProviders(fallback)

	gcfg := cfg.Gemini
	if err := providers.Register(model.ProviderGemini, func() (model.LLM, error) {
		return gemini.New(gemini.Config{
			APIKey:  gcfg.APIKey,
			Model:   gcfg.Model,
			BaseURL: gcfg.BaseURL,
		})
	}); err != nil {
		return nil, err
	}

	ocfg := cfg.Ollama
	if err := providers.Register(model.ProviderOllama, func() (model.LLM, error) {
		return ollama.New(ollama.Config{
			BaseURL:     ocfg.Host,
			Model:       ocfg.Model,
			Timeout:     ocfg.Timeout,
			Temperature: ocfg.Temperature,
		})
	}); err != nil {
		return nil, err
	}

	return providers, nil
}
