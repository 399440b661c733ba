package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
)

// NoopLogger discards all log output. Used in tests.
type NoopLogger struct{}

// NewNoopLogger creates a logger that does nothing
func NewNoopLogger() Logger { return &NoopLogger{} }

func (l *NoopLogger) Debug(msg string, fields map[string]interface{}) {}
func (l *NoopLogger) Info(msg string, fields map[string]interface{})  {}
func (l *NoopLogger) Warn(msg string, fields map[string]interface{})  {}
func (l *NoopLogger) Error(msg string, fields map[string]interface{}) {}
func (l *NoopLogger) Fatal(msg string, fields map[string]interface{}) {}
func (l *NoopLogger) WithPrefix(prefix string) Logger                 { return l }
func (l *NoopLogger) With(fields map[string]interface{}) Logger       { return l }

type noopSpan struct{}

func (noopSpan) End()                                      {}
func (noopSpan) SetAttribute(key string, value interface{}) {}
func (noopSpan) RecordError(err error)                     {}

// NoopStartSpan returns a StartSpanFunc that records nothing. Used in tests.
func NoopStartSpan() StartSpanFunc {
	return func(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, Span) {
		return ctx, noopSpan{}
	}
}
