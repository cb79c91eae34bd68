package observability

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kadirpekel/memchat/pkg/config"
)

// Metrics records memchat counters and histograms through an OpenTelemetry
// meter exported in Prometheus format. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	registry *promclient.Registry
	provider *sdkmetric.MeterProvider

	askTotal       metric.Int64Counter
	askDuration    metric.Float64Histogram
	backendTotal   metric.Int64Counter
	backendLatency metric.Float64Histogram
	summarizations metric.Int64Counter
	storeErrors    metric.Int64Counter
	httpRequests   metric.Int64Counter
	httpDuration   metric.Float64Histogram
}

// NewMetrics builds the meter and its Prometheus registry. Returns nil when
// metrics are disabled.
func NewMetrics(cfg config.MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	registry := promclient.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter("memchat")

	m := &Metrics{registry: registry, provider: provider}

	if m.askTotal, err = meter.Int64Counter(
		"memchat_ask_total",
		metric.WithDescription("Total ask requests by provider, memory mode and outcome"),
	); err != nil {
		return nil, fmt.Errorf("failed to create ask counter: %w", err)
	}

	if m.askDuration, err = meter.Float64Histogram(
		"memchat_ask_duration_seconds",
		metric.WithDescription("End-to-end ask duration in seconds"),
	); err != nil {
		return nil, fmt.Errorf("failed to create ask duration histogram: %w", err)
	}

	if m.backendTotal, err = meter.Int64Counter(
		"memchat_backend_calls_total",
		metric.WithDescription("Total generation backend calls by provider, operation and outcome"),
	); err != nil {
		return nil, fmt.Errorf("failed to create backend calls counter: %w", err)
	}

	if m.backendLatency, err = meter.Float64Histogram(
		"memchat_backend_duration_seconds",
		metric.WithDescription("Generation backend call duration in seconds"),
	); err != nil {
		return nil, fmt.Errorf("failed to create backend duration histogram: %w", err)
	}

	if m.summarizations, err = meter.Int64Counter(
		"memchat_summarizations_total",
		metric.WithDescription("Total rolling-summary folds"),
	); err != nil {
		return nil, fmt.Errorf("failed to create summarizations counter: %w", err)
	}

	if m.storeErrors, err = meter.Int64Counter(
		"memchat_store_errors_total",
		metric.WithDescription("Total history store failures by operation"),
	); err != nil {
		return nil, fmt.Errorf("failed to create store errors counter: %w", err)
	}

	if m.httpRequests, err = meter.Int64Counter(
		"memchat_http_requests_total",
		metric.WithDescription("Total HTTP requests by method, route and status"),
	); err != nil {
		return nil, fmt.Errorf("failed to create http requests counter: %w", err)
	}

	if m.httpDuration, err = meter.Float64Histogram(
		"memchat_http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
	); err != nil {
		return nil, fmt.Errorf("failed to create http duration histogram: %w", err)
	}

	return m, nil
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}

// RecordAsk records one completed or failed ask.
func (m *Metrics) RecordAsk(ctx context.Context, provider, mode string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("mode", mode),
		attribute.String("outcome", outcome(err)),
	)
	m.askTotal.Add(ctx, 1, attrs)
	m.askDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordBackendCall records one Generate, Summarize or ListModels call.
func (m *Metrics) RecordBackendCall(ctx context.Context, provider, op string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("operation", op),
		attribute.String("outcome", outcome(err)),
	)
	m.backendTotal.Add(ctx, 1, attrs)
	m.backendLatency.Record(ctx, duration.Seconds(), attrs)
}

// RecordSummarization counts a fold of evicted messages into the summary.
func (m *Metrics) RecordSummarization(ctx context.Context, provider string) {
	if m == nil {
		return
	}
	m.summarizations.Add(ctx, 1, metric.WithAttributes(attribute.String("provider", provider)))
}

// RecordStoreError counts a failed store operation.
func (m *Metrics) RecordStoreError(ctx context.Context, op string) {
	if m == nil {
		return
	}
	m.storeErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", op)))
}

// RecordHTTPRequest records one served HTTP request.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.String("status", strconv.Itoa(status)),
	)
	m.httpRequests.Add(ctx, 1, attrs)
	m.httpDuration.Record(ctx, duration.Seconds(), attrs)
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Shutdown stops the meter provider.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m == nil || m.provider == nil {
		return nil
	}
	return m.provider.Shutdown(ctx)
}
