// Package chat orchestrates a single question/answer exchange: it picks the
// backend, loads the session's bounded history, applies the memory strategy,
// calls the model and persists the new turn.
//
// No per-session locking is done. Each store call is atomic on its own; a
// sequence interrupted half way is repaired by the next request, which only
// ever reads the most recent messages.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kadirpekel/memchat/pkg/config"
	"github.com/kadirpekel/memchat/pkg/memory"
	"github.com/kadirpekel/memchat/pkg/model"
	"github.com/kadirpekel/memchat/pkg/observability"
	"github.com/kadirpekel/memchat/pkg/store"
)

// assistantCue is appended to the transcript so the model answers as the
// assistant.
const assistantCue = "\n\nASSISTANT:"

// Request is one question. Nil numeric overrides fall back to the memory
// configuration; zero and negative overrides are honoured.
type Request struct {
	Prompt      string `json:"prompt"`
	Provider    string `json:"provider,omitempty"`
	SessionID   string `json:"session_id,omitempty"`
	Memory      string `json:"memory,omitempty"`
	MaxMessages *int   `json:"max_messages,omitempty"`
	KeepLast    *int   `json:"keep_last,omitempty"`
	WindowSize  *int   `json:"window_size,omitempty"`
}

// Result is the answer to a Request.
type Result struct {
	Provider  model.Provider `json:"provider"`
	Reply     string         `json:"reply"`
	SessionID string         `json:"session_id,omitempty"`
}

// memorySettings is swapped as a unit on configuration reload.
type memorySettings struct {
	cfg       config.MemoryConfig
	estimator memory.Estimator
}

// Service answers questions with session memory.
type Service struct {
	providers *model.Providers
	store     store.Store
	settings  atomic.Pointer[memorySettings]
	tracer    *observability.Tracer
	metrics   *observability.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithTracer records spans for asks, backend calls and store access.
func WithTracer(t *observability.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithMetrics records ask, backend and store metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService creates a Service. cfg is expected to have been defaulted by
// the config loader.
func NewService(providers *model.Providers, st store.Store, cfg config.MemoryConfig, opts ...Option) (*Service, error) {
	if providers == nil {
		return nil, fmt.Errorf("providers registry is required")
	}
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}

	s := &Service{providers: providers, store: st}
	if err := s.SetMemoryConfig(cfg); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SetMemoryConfig replaces the memory settings used by subsequent asks.
// Asks already in flight keep the settings they started with.
func (s *Service) SetMemoryConfig(cfg config.MemoryConfig) error {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid memory configuration: %w", err)
	}

	est, err := memory.NewEstimator(memory.EstimatorKind(cfg.Estimator), "")
	if err != nil {
		return err
	}

	s.settings.Store(&memorySettings{cfg: cfg, estimator: est})
	return nil
}

// MemoryConfig returns the memory settings currently in effect.
func (s *Service) MemoryConfig() config.MemoryConfig {
	return s.settings.Load().cfg
}

// backend resolves the provider selector and builds its backend. Both
// failure modes are client faults.
func (s *Service) backend(selector string) (model.Provider, model.LLM, error) {
	name, llm, err := s.providers.Get(selector)
	if err != nil {
		if errors.Is(err, model.ErrUnknownProvider) {
			return "", nil, &ValidationError{Msg: model.ErrUnknownProvider.Error(), Err: err}
		}
		var credErr *model.CredentialError
		if errors.As(err, &credErr) {
			return "", nil, &ValidationError{Err: err}
		}
		return "", nil, &BackendError{Provider: name, Op: "init", Err: err}
	}
	return name, llm, nil
}

// Ask answers req.Prompt. Without a session id, or with memory "none", the
// prompt is sent as-is and nothing is stored.
func (s *Service) Ask(ctx context.Context, req Request) (res *Result, err error) {
	start := time.Now()

	name, llm, err := s.backend(req.Provider)
	if err != nil {
		return nil, err
	}

	settings := s.settings.Load()
	mode := memory.ParseStrategy(req.Memory, settings.cfg.Strategy)
	stateless := req.SessionID == "" || mode == memory.StrategyNone

	ctx, span := s.tracer.StartAsk(ctx, req.SessionID, string(name), string(mode), stateless)
	defer func() {
		s.tracer.RecordError(span, err)
		span.End()
		s.metrics.RecordAsk(ctx, string(name), string(mode), time.Since(start), err)
	}()

	if stateless {
		reply, err := s.generate(ctx, name, llm, req.Prompt)
		if err != nil {
			return nil, err
		}
		return &Result{Provider: name, Reply: reply, SessionID: req.SessionID}, nil
	}

	reply, err := s.askWithMemory(ctx, name, llm, mode, settings, req)
	if err != nil {
		return nil, err
	}
	return &Result{Provider: name, Reply: reply, SessionID: req.SessionID}, nil
}

func (s *Service) askWithMemory(ctx context.Context, name model.Provider, llm model.LLM, mode memory.Strategy, settings *memorySettings, req Request) (string, error) {
	cfg := settings.cfg
	sessionID := req.SessionID

	session, err := s.load(ctx, sessionID, cfg.FetchLastN)
	if err != nil {
		return "", err
	}

	userMsg := memory.NewUserMessage(req.Prompt)
	session.Append(userMsg)

	estimate := settings.estimator.Estimate(session.Transcript())
	slog.Debug("Ask with memory",
		"session", sessionID,
		"mode", mode,
		"messages", session.Len(),
		"estimate", estimate)

	windowSize := config.Resolve(req.WindowSize, cfg.WindowSize)

	switch mode {
	case memory.StrategyRolling:
		if estimate > cfg.MaxTokensBeforeSummarize {
			if err := s.compact(ctx, name, llm, session, sessionID,
				config.Resolve(req.MaxMessages, cfg.MaxMessages),
				config.Resolve(req.KeepLast, cfg.KeepLast),
			); err != nil {
				return "", err
			}
		}
	case memory.StrategyWindow:
		memory.ApplySlidingWindow(session, windowSize)
	}

	reply, err := s.generate(ctx, name, llm, session.Transcript()+assistantCue)
	if err != nil {
		return "", err
	}
	reply = strings.TrimSpace(reply)

	if err := s.storeOp(ctx, observability.SpanStoreWrite, "append", sessionID, func(ctx context.Context) error {
		return s.store.AppendMessages(ctx, sessionID, userMsg, memory.NewAssistantMessage(reply))
	}); err != nil {
		return "", err
	}

	if mode == memory.StrategyWindow {
		if err := s.storeOp(ctx, observability.SpanStoreWrite, "trim", sessionID, func(ctx context.Context) error {
			return s.store.TrimMessages(ctx, sessionID, windowSize)
		}); err != nil {
			return "", err
		}
	}

	return reply, nil
}

// load fetches the summary and the last fetchLastN messages concurrently.
func (s *Service) load(ctx context.Context, sessionID string, fetchLastN int) (*memory.ChatSession, error) {
	var (
		summary  string
		messages []memory.Message
	)

	err := s.storeOp(ctx, observability.SpanStoreFetch, "fetch", sessionID, func(ctx context.Context) error {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			summary, err = s.store.GetSummary(gctx, sessionID)
			return err
		})
		g.Go(func() error {
			var err error
			messages, err = s.store.GetLastMessages(gctx, sessionID, fetchLastN)
			return err
		})
		return g.Wait()
	})
	if err != nil {
		return nil, err
	}

	return memory.NewChatSession(summary, messages), nil
}

// compact folds older messages into the summary, then overwrites the stored
// summary and trims the stored log to keepLast. Both writes run even when
// the strategy left the session unchanged.
func (s *Service) compact(ctx context.Context, name model.Provider, llm model.LLM, session *memory.ChatSession, sessionID string, maxMessages, keepLast int) error {
	summarizer := memory.SummarizerFunc(func(ctx context.Context, text string) (string, error) {
		return s.call(ctx, name, llm, observability.OpSummarize, func(ctx context.Context) (string, error) {
			return llm.Summarize(ctx, text)
		})
	})

	summarized, err := memory.ApplyRollingSummary(ctx, session, summarizer, maxMessages, keepLast)
	if err != nil {
		var backendErr *BackendError
		if errors.As(err, &backendErr) {
			return backendErr
		}
		return &BackendError{Provider: name, Op: observability.OpSummarize, Err: err}
	}
	if summarized {
		slog.Info("Summarized conversation",
			"session", sessionID,
			"provider", name,
			"kept", session.Len(),
			"summary_chars", len(session.Summary))
		s.metrics.RecordSummarization(ctx, string(name))
	}

	if err := s.storeOp(ctx, observability.SpanStoreWrite, "set_summary", sessionID, func(ctx context.Context) error {
		return s.store.SetSummary(ctx, sessionID, session.Summary)
	}); err != nil {
		return err
	}
	return s.storeOp(ctx, observability.SpanStoreWrite, "trim", sessionID, func(ctx context.Context) error {
		return s.store.TrimMessages(ctx, sessionID, keepLast)
	})
}

func (s *Service) generate(ctx context.Context, name model.Provider, llm model.LLM, prompt string) (string, error) {
	return s.call(ctx, name, llm, observability.OpChat, func(ctx context.Context) (string, error) {
		return llm.Generate(ctx, prompt)
	})
}

// call runs one backend operation inside a span and records its latency.
// Failures come back as *BackendError.
func (s *Service) call(ctx context.Context, name model.Provider, llm model.LLM, op string, fn func(context.Context) (string, error)) (string, error) {
	start := time.Now()
	ctx, span := s.tracer.StartBackendCall(ctx, string(name), llm.Model(), op)
	defer span.End()

	out, err := fn(ctx)
	s.metrics.RecordBackendCall(ctx, string(name), op, time.Since(start), err)
	if err != nil {
		s.tracer.RecordError(span, err)
		return "", &BackendError{Provider: name, Op: op, Err: err}
	}
	return out, nil
}

// storeOp runs one store step inside a span. Failures come back as
// *StoreError.
func (s *Service) storeOp(ctx context.Context, spanName, op, sessionID string, fn func(context.Context) error) error {
	ctx, span := s.tracer.StartStoreOp(ctx, spanName, op, sessionID)
	defer span.End()

	if err := fn(ctx); err != nil {
		s.tracer.RecordError(span, err)
		s.metrics.RecordStoreError(ctx, op)
		return &StoreError{Op: op, Err: err}
	}
	return nil
}

// ListModels lists the models offered by the selected backend.
func (s *Service) ListModels(ctx context.Context, selector string) (model.Provider, []model.Info, error) {
	name, llm, err := s.backend(selector)
	if err != nil {
		return "", nil, err
	}

	start := time.Now()
	ctx, span := s.tracer.StartBackendCall(ctx, string(name), llm.Model(), observability.OpListModels)
	defer span.End()

	models, err := llm.ListModels(ctx)
	s.metrics.RecordBackendCall(ctx, string(name), observability.OpListModels, time.Since(start), err)
	if err != nil {
		s.tracer.RecordError(span, err)
		return name, nil, &BackendError{Provider: name, Op: observability.OpListModels, Err: err}
	}
	return name, models, nil
}

// Purge deletes a session's log and summary.
func (s *Service) Purge(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return &ValidationError{Msg: "session id is required"}
	}
	return s.storeOp(ctx, observability.SpanStoreWrite, "purge", sessionID, func(ctx context.Context) error {
		return s.store.Purge(ctx, sessionID)
	})
}
