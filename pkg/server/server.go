// Package server exposes the chat service over HTTP.
//
// Routes:
//
//	GET    /                  liveness banner
//	GET    /health            health check
//	GET    /ask               ask with query parameters
//	POST   /ask               ask with a JSON body
//	GET    /models            list models of a provider
//	DELETE /sessions/{id}     forget a session
//	GET    /metrics           Prometheus metrics, when enabled
//
// Client faults are answered with 400, everything else with 500; both carry
// a {"detail": "..."} body.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kadirpekel/memchat/pkg/chat"
	"github.com/kadirpekel/memchat/pkg/config"
	"github.com/kadirpekel/memchat/pkg/observability"
)

// Server is the memchat HTTP server.
type Server struct {
	cfg          config.ServerConfig
	chat         *chat.Service
	obs          *observability.Manager
	metricsRoute string
	server       *http.Server
}

// Option configures the Server.
type Option func(*Server)

// WithObservability wraps every request in a span and records request
// metrics. When the manager has metrics, they are served on route.
func WithObservability(obs *observability.Manager, route string) Option {
	return func(s *Server) {
		s.obs = obs
		s.metricsRoute = route
	}
}

// New creates a server for svc.
func New(cfg config.ServerConfig, svc *chat.Service, opts ...Option) *Server {
	cfg.SetDefaults()

	s := &Server{cfg: cfg, chat: svc}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler with its middleware chain.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Order: request id -> observability -> logging -> recoverer -> routes
	r.Use(requestIDMiddleware)
	r.Use(observability.HTTPMiddleware(s.obs.Tracer(), s.obs.Metrics()))
	r.Use(loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	r.Get("/", s.handleHome)
	r.Get("/health", s.handleHealth)
	r.Get("/ask", s.handleAskQuery)
	r.Post("/ask", s.handleAskJSON)
	r.Get("/models", s.handleModels)
	r.Delete("/sessions/{id}", s.handleDeleteSession)

	if m := s.obs.Metrics(); m != nil && s.metricsRoute != "" {
		r.Method(http.MethodGet, s.metricsRoute, m.Handler())
	}

	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Address())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Address(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	slog.Info("HTTP server starting", "address", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown stops accepting requests and waits for in-flight ones, bounded
// by the configured shutdown timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()

	slog.Info("HTTP server shutting down")
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP shutdown error: %w", err)
	}
	return nil
}
