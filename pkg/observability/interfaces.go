// Package observability provides unified logging and tracing for the
// bpmflow services. All components log through the Logger interface and
// open a span per operation through a StartSpanFunc.
package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
)

// LogLevel defines log message severity
type LogLevel string

// Log levels
const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
	LogLevelFatal LogLevel = "FATAL"
)

// Logger defines the interface for structured logging
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	Fatal(msg string, fields map[string]interface{})

	// WithPrefix returns a logger scoped to a component prefix
	WithPrefix(prefix string) Logger
	// With returns a logger that attaches the given fields to every entry
	With(fields map[string]interface{}) Logger
}

// Span represents a trace span
type Span interface {
	End()
	SetAttribute(key string, value interface{})
	RecordError(err error)
}

// StartSpanFunc creates and starts a new span
type StartSpanFunc func(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, Span)
