package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// otelSpan wraps an OpenTelemetry span to implement the Span interface
type otelSpan struct {
	span trace.Span
}

func (o *otelSpan) End() {
	o.span.End()
}

func (o *otelSpan) SetAttribute(key string, value interface{}) {
	switch v := value.(type) {
	case string:
		o.span.SetAttributes(attribute.String(key, v))
	case int:
		o.span.SetAttributes(attribute.Int(key, v))
	case int64:
		o.span.SetAttributes(attribute.Int64(key, v))
	case float64:
		o.span.SetAttributes(attribute.Float64(key, v))
	case bool:
		o.span.SetAttributes(attribute.Bool(key, v))
	default:
		o.span.SetAttributes(attribute.String(key, "unsupported"))
	}
}

func (o *otelSpan) RecordError(err error) {
	if err == nil {
		return
	}
	o.span.RecordError(err)
	o.span.SetStatus(codes.Error, err.Error())
}

// NewStartSpan returns a StartSpanFunc backed by the global OpenTelemetry
// tracer provider. With no provider installed this is a no-op tracer, which
// is the default for the server.
func NewStartSpan(tracerName string) StartSpanFunc {
	tracer := otel.Tracer(tracerName)
	return func(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, Span) {
		ctx, span := tracer.Start(ctx, name, trace.WithAttributes(attrs...))
		return ctx, &otelSpan{span: span}
	}
}
