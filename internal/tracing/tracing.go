// Package tracing sets up the optional OpenTelemetry trace pipeline.
// Tracing is off by default; when disabled every span is a no-op.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/termdock/termdock/internal/config"
)

const serviceName = "termdock"

// Provider wraps the SDK tracer provider so callers can get spans and
// shut the pipeline down cleanly.
type Provider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
	enabled  bool
}

// NewProvider builds the trace provider from config. When tracing is
// disabled the returned provider hands out no-op tracers with zero
// overhead.
func NewProvider(cfg config.TracingConfig) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{
			tracer: noop.NewTracerProvider().Tracer("noop"),
		}, nil
	}

	var exporter sdktrace.SpanExporter
	var err error
	switch cfg.Exporter {
	case "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("create stdout exporter: %w", err)
		}
	case "otlp":
		endpoint := cfg.OTLPEndpoint
		if endpoint == "" {
			endpoint = "localhost:4317"
		}
		exporter, err = otlptracegrpc.New(
			context.Background(),
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("create otlp exporter: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported exporter type: %s", cfg.Exporter)
	}

	// NewSchemaless avoids schema version conflicts with resource.Default().
	res := resource.NewSchemaless(
		attribute.String("service.name", serviceName),
	)

	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 1.0
	}
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(
			sdktrace.TraceIDRatioBased(sampleRate),
		)),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(provider)

	return &Provider{
		provider: provider,
		tracer:   provider.Tracer(serviceName),
		enabled:  true,
	}, nil
}

// Tracer returns the configured tracer. Safe to use when tracing is
// disabled; spans are then no-ops.
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// Enabled reports whether the pipeline exports spans.
func (p *Provider) Enabled() bool {
	return p.enabled
}

// Shutdown flushes pending spans. Call it on application exit.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.provider != nil {
		return p.provider.Shutdown(ctx)
	}
	return nil
}

// Start opens a span on the global tracer. Lifecycle operations wrap
// themselves in these so spawn, present, close, and cleanup show up as a
// single trace per user action.
func Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(serviceName).Start(ctx, name)
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	return ctx, span
}
