// Package observability provides OpenTelemetry tracing and Prometheus
// metrics for memchat. Both are off by default; disabled components are
// nil and every method on them is a no-op.
package observability

import (
	"context"
	"errors"

	"github.com/kadirpekel/memchat/pkg/config"
)

// Manager owns the tracer and metrics for the process lifetime.
type Manager struct {
	tracer  *Tracer
	metrics *Metrics
}

// NewManager initializes tracing and metrics from cfg.
func NewManager(ctx context.Context, cfg config.ObservabilityConfig, version string, opts ...TracerOption) (*Manager, error) {
	tracer, err := NewTracer(ctx, cfg.Tracing, version, opts...)
	if err != nil {
		return nil, err
	}

	metrics, err := NewMetrics(cfg.Metrics)
	if err != nil {
		_ = tracer.Shutdown(ctx)
		return nil, err
	}

	return &Manager{tracer: tracer, metrics: metrics}, nil
}

// Tracer returns the tracer, or nil when tracing is disabled.
func (m *Manager) Tracer() *Tracer {
	if m == nil {
		return nil
	}
	return m.tracer
}

// Metrics returns the metrics, or nil when metrics are disabled.
func (m *Manager) Metrics() *Metrics {
	if m == nil {
		return nil
	}
	return m.metrics
}

// Shutdown flushes and stops both components.
func (m *Manager) Shutdown(ctx context.Context) error {
	if m == nil {
		return nil
	}
	return errors.Join(m.tracer.Shutdown(ctx), m.metrics.Shutdown(ctx))
}
