package logging

import (
	"context"
	"regexp"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type (
	requestIDKey struct{}
	loggerKey    struct{}
)

// ContextFields returns the correlation fields carried by ctx: the active
// span's trace and span IDs and the request ID.
func ContextFields(ctx context.Context) []zap.Field {
	var fields []zap.Field

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
		if sc.IsSampled() {
			fields = append(fields, zap.Bool("trace_sampled", true))
		}
	}
	if id := RequestIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("request.id", id))
	}
	return fields
}

const maxIDLen = 128

var requestIDChars = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidRequestID accepts 1 to 128 characters of [A-Za-z0-9_-].
func ValidRequestID(id string) bool {
	return len(id) > 0 && len(id) <= maxIDLen && requestIDChars.MatchString(id)
}

// WithRequestID attaches a client supplied request ID. IDs that fail
// ValidRequestID are ignored.
func WithRequestID(ctx context.Context, id string) context.Context {
	if ValidRequestID(id) {
		ctx = context.WithValue(ctx, requestIDKey{}, id)
	}
	return ctx
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func WithLogger(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// FromContext returns the logger stored by WithLogger, or a no-op logger.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey{}).(*Logger); ok && l != nil {
		return l
	}
	return NewNop()
}
