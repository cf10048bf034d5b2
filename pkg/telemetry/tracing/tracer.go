package tracing

import (
	"context"
	"errors"
	"fmt"

	"mercator-hq/predicate/pkg/config"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc/credentials/insecure"
)

const scope = "mercator-hq/predicate"

var noopTracer = noop.NewTracerProvider().Tracer(scope)

// Tracer starts spans for combination and composition. The zero value and
// a nil *Tracer both hand out no-op spans.
type Tracer struct {
	tracer   trace.Tracer
	shutdown func(context.Context) error
}

// New builds a Tracer exporting over OTLP/gRPC in batches. Disabled tracing
// and the "none" exporter give a no-op Tracer. Call Shutdown to flush.
func New(ctx context.Context, cfg *config.TracingConfig) (*Tracer, error) {
	if cfg == nil {
		return nil, errors.New("tracing: nil config")
	}
	if !cfg.Enabled || cfg.Exporter == "none" {
		return Noop(), nil
	}
	exp, err := otlpExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return withProvider(cfg, sdktrace.WithBatcher(exp))
}

// NewWithExporter builds an enabled Tracer that hands each span to exp as
// soon as it ends. A nil cfg samples everything.
func NewWithExporter(cfg *config.TracingConfig, exp sdktrace.SpanExporter) (*Tracer, error) {
	if cfg == nil {
		cfg = &config.TracingConfig{}
	}
	return withProvider(cfg, sdktrace.WithSyncer(exp))
}

// Noop returns a Tracer that records nothing.
func Noop() *Tracer {
	return &Tracer{}
}

func withProvider(cfg *config.TracingConfig, export sdktrace.TracerProviderOption) (*Tracer, error) {
	sampler, err := samplerFor(cfg)
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}
	name := cfg.ServiceName
	if name == "" {
		name = config.DefaultTracingServiceName
	}
	tp := sdktrace.NewTracerProvider(
		export,
		sdktrace.WithSampler(sampler),
		sdktrace.WithResource(resource.NewSchemaless(semconv.ServiceName(name))),
	)
	return &Tracer{tracer: tp.Tracer(scope), shutdown: tp.Shutdown}, nil
}

// Start opens a span under whatever span ctx carries.
//
//	ctx, span := tracer.Start(ctx, "catalog.compose")
//	defer span.End()
func (t *Tracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if !t.Enabled() {
		return noopTracer.Start(ctx, name, opts...)
	}
	return t.tracer.Start(ctx, name, opts...)
}

// Shutdown flushes buffered spans and closes the exporter.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if !t.Enabled() {
		return nil
	}
	return t.shutdown(ctx)
}

// Enabled reports whether spans are exported.
func (t *Tracer) Enabled() bool {
	return t != nil && t.tracer != nil
}

func otlpExporter(ctx context.Context, cfg *config.TracingConfig) (sdktrace.SpanExporter, error) {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.OTLP.Insecure {
		opts = append(opts, otlptracegrpc.WithTLSCredentials(insecure.NewCredentials()))
	}
	if cfg.OTLP.Timeout > 0 {
		opts = append(opts, otlptracegrpc.WithTimeout(cfg.OTLP.Timeout))
	}
	exp, err := otlptrace.New(ctx, otlptracegrpc.NewClient(opts...))
	if err != nil {
		return nil, fmt.Errorf("tracing: otlp exporter for %s: %w", cfg.Endpoint, err)
	}
	return exp, nil
}
