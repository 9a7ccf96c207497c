package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Tracer wraps an OpenTelemetry TracerProvider, registered process-wide. The orchestrator opens
// one span per POST /execute turn ("orchestrator.execute"); no spans are created per DSL action
// or per HTTP request.
//
// No OTLP exporter dependency is part of this module's stack (see DESIGN.md), so NewTracer
// registers a TracerProvider with whatever SpanProcessor the caller supplies — typically none in
// tests, or a batch processor wrapping an exporter the operator configures at the binary's entry
// point.
type Tracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// TraceConfig configures Tracer construction.
type TraceConfig struct {
	ServiceName    string
	ServiceVersion string
	Processors     []sdktrace.SpanProcessor
}

// NewTracer builds a Tracer and registers its provider as the global OTel tracer provider.
func NewTracer(cfg TraceConfig) *Tracer {
	opts := make([]sdktrace.TracerProviderOption, 0, len(cfg.Processors)+1)
	for _, p := range cfg.Processors {
		opts = append(opts, sdktrace.WithSpanProcessor(p))
	}

	provider := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(provider)

	name := cfg.ServiceName
	if name == "" {
		name = "webagent"
	}
	return &Tracer{provider: provider, tracer: provider.Tracer(name)}
}

// Start begins a new span.
func (t *Tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordError marks the given span as errored and attaches the error's message.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// Shutdown flushes and stops the tracer provider.
func (t *Tracer) Shutdown(ctx context.Context) error {
	return t.provider.Shutdown(ctx)
}

// ActionSpanAttrs builds the standard attribute set attached to a DSL action's execution span.
func ActionSpanAttrs(kind, taskID string, attempt int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("webagent.action.kind", kind),
		attribute.String("webagent.task_id", taskID),
		attribute.Int("webagent.action.attempt", attempt),
	}
}
