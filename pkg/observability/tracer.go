package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/kadirpekel/memchat/pkg/config"
)

// Tracer wraps an OpenTelemetry tracer with memchat span helpers.
// A nil *Tracer is valid and produces no-op spans.
type Tracer struct {
	provider   *sdktrace.TracerProvider
	tracer     trace.Tracer
	processors []sdktrace.SpanProcessor
}

// TracerOption configures the Tracer.
type TracerOption func(*Tracer)

// WithSpanProcessor registers an extra span processor, e.g. an in-memory
// recorder.
func WithSpanProcessor(sp sdktrace.SpanProcessor) TracerOption {
	return func(t *Tracer) {
		t.processors = append(t.processors, sp)
	}
}

// NewTracer creates a Tracer and installs it as the global provider.
// Returns nil when tracing is disabled.
func NewTracer(ctx context.Context, cfg config.TracingConfig, version string, opts ...TracerOption) (*Tracer, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	exporter, err := createExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SamplingRate))),
		sdktrace.WithBatcher(exporter),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	t := &Tracer{
		provider: provider,
		tracer:   provider.Tracer(cfg.ServiceName),
	}
	for _, opt := range opts {
		opt(t)
	}
	for _, sp := range t.processors {
		provider.RegisterSpanProcessor(sp)
	}

	return t, nil
}

func createExporter(ctx context.Context, cfg config.TracingConfig) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case "otlp":
		return createOTLPExporter(ctx, cfg)
	case "stdout":
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	default:
		return nil, fmt.Errorf("unsupported exporter: %s", cfg.Exporter)
	}
}

// createOTLPExporter creates an OTLP gRPC exporter. The connection is
// established lazily.
func createOTLPExporter(ctx context.Context, cfg config.TracingConfig) (*otlptrace.Exporter, error) {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.EndpointURL),
		otlptracegrpc.WithTimeout(cfg.Timeout),
	}

	if cfg.IsInsecure() {
		opts = append(opts,
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
			otlptracegrpc.WithInsecure(),
		)
	}

	return otlptracegrpc.New(ctx, opts...)
}

// Start begins a new span with the given name.
func (t *Tracer) Start(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if t == nil || t.tracer == nil {
		return noop.NewTracerProvider().Tracer("noop").Start(ctx, spanName, opts...)
	}
	return t.tracer.Start(ctx, spanName, opts...)
}

// StartAsk begins the span covering one question/answer exchange.
func (t *Tracer) StartAsk(ctx context.Context, sessionID, provider, mode string, stateless bool) (context.Context, trace.Span) {
	return t.Start(ctx, SpanAsk,
		trace.WithAttributes(
			attribute.String(AttrSessionID, sessionID),
			attribute.String(AttrGenAISystem, provider),
			attribute.String(AttrMemoryMode, mode),
			attribute.Bool(AttrStateless, stateless),
		),
	)
}

// StartBackendCall begins a span for a generation backend call.
func (t *Tracer) StartBackendCall(ctx context.Context, provider, model, op string) (context.Context, trace.Span) {
	return t.Start(ctx, SpanBackendCall,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(AttrGenAISystem, provider),
			attribute.String(AttrGenAIRequestModel, model),
			attribute.String(AttrGenAIOperationName, op),
		),
	)
}

// StartStoreOp begins a span for a history store operation.
func (t *Tracer) StartStoreOp(ctx context.Context, spanName, op, sessionID string) (context.Context, trace.Span) {
	return t.Start(ctx, spanName,
		trace.WithAttributes(
			attribute.String(AttrStoreOperation, op),
			attribute.String(AttrSessionID, sessionID),
		),
	)
}

// RecordError records an error on a span and marks it failed.
func (t *Tracer) RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(
		attribute.String(AttrErrorType, fmt.Sprintf("%T", err)),
		attribute.String(AttrErrorMessage, err.Error()),
	)
}

// Shutdown flushes pending spans and stops the provider.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t == nil || t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}
