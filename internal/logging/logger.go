package logging

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"syscall"

	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a zap logger whose methods take a context and prepend its
// correlation fields (trace, span and request IDs).
type Logger struct {
	zap    *zap.Logger
	config *Config
}

// NewLogger builds a Logger from cfg. A nil otelProvider disables OTEL output.
func NewLogger(cfg *Config, otelProvider log.LoggerProvider) (*Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	core, err := newDualCore(cfg, otelProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create core: %w", err)
	}

	var opts []zap.Option
	if cfg.Caller.Enabled {
		opts = append(opts, zap.AddCaller(), zap.AddCallerSkip(cfg.Caller.Skip))
	}
	if cfg.Stacktrace.Level != 0 {
		opts = append(opts, zap.AddStacktrace(cfg.Stacktrace.Level))
	}
	if len(cfg.Fields) > 0 {
		static := make([]zap.Field, 0, len(cfg.Fields))
		for _, k := range slices.Sorted(maps.Keys(cfg.Fields)) {
			static = append(static, zap.String(k, cfg.Fields[k]))
		}
		opts = append(opts, zap.Fields(static...))
	}

	return &Logger{zap: zap.New(core, opts...), config: cfg}, nil
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{zap: zap.NewNop(), config: NewDefaultConfig()}
}

func newEncoder(format string) zapcore.Encoder {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = encodeLevel

	if format == "console" {
		return zapcore.NewConsoleEncoder(encCfg)
	}
	return zapcore.NewJSONEncoder(encCfg)
}

// encodeLevel prints TraceLevel as "trace" rather than "Level(-2)".
func encodeLevel(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	if l == TraceLevel {
		enc.AppendString("trace")
		return
	}
	zapcore.LowercaseLevelEncoder(l, enc)
}

// write skips building context fields when level is disabled.
func (l *Logger) write(ctx context.Context, level zapcore.Level, msg string, fields []zap.Field) {
	ce := l.zap.Check(level, msg)
	if ce == nil {
		return
	}
	ce.Write(append(ContextFields(ctx), fields...)...)
}

func (l *Logger) Trace(ctx context.Context, msg string, fields ...zap.Field) {
	l.write(ctx, TraceLevel, msg, fields)
}

func (l *Logger) Debug(ctx context.Context, msg string, fields ...zap.Field) {
	l.write(ctx, zapcore.DebugLevel, msg, fields)
}

func (l *Logger) Info(ctx context.Context, msg string, fields ...zap.Field) {
	l.write(ctx, zapcore.InfoLevel, msg, fields)
}

func (l *Logger) Warn(ctx context.Context, msg string, fields ...zap.Field) {
	l.write(ctx, zapcore.WarnLevel, msg, fields)
}

func (l *Logger) Error(ctx context.Context, msg string, fields ...zap.Field) {
	l.write(ctx, zapcore.ErrorLevel, msg, fields)
}

// With returns a child logger carrying fields.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{zap: l.zap.With(fields...), config: l.config}
}

// Named returns a child logger with name appended to the logger name.
func (l *Logger) Named(name string) *Logger {
	return &Logger{zap: l.zap.Named(name), config: l.config}
}

// Enabled reports whether entries at level are written.
func (l *Logger) Enabled(level zapcore.Level) bool {
	return l.zap.Core().Enabled(level)
}

// Sync flushes buffered entries. The EINVAL/ENOTTY that Linux returns for
// syncing a terminal or pipe is not an error.
func (l *Logger) Sync() error {
	err := l.zap.Sync()
	var errno syscall.Errno
	if errors.As(err, &errno) && (errno == syscall.EINVAL || errno == syscall.ENOTTY) {
		return nil
	}
	return err
}

// Underlying exposes the zap logger for packages that take *zap.Logger.
func (l *Logger) Underlying() *zap.Logger {
	return l.zap
}
