package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/fyrsmithlabs/memvec/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Telemetry owns the process tracer and meter providers. A provider that
// fails to start leaves the instance degraded; the server keeps running on
// the global no-op providers.
type Telemetry struct {
	config *config.TelemetryConfig
	logger *zap.Logger

	tracerProvider *trace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	logProvider    log.LoggerProvider

	healthy  atomic.Bool
	degraded atomic.Bool
}

// Option overrides how New builds providers.
type Option func(*options)

type options struct {
	traceExporter  trace.SpanExporter
	metricExporter sdkmetric.Exporter
}

// WithTraceExporter exports spans to exp instead of OTLP.
func WithTraceExporter(exp trace.SpanExporter) Option {
	return func(o *options) { o.traceExporter = exp }
}

// WithMetricExporter exports metrics to exp instead of OTLP.
func WithMetricExporter(exp sdkmetric.Exporter) Option {
	return func(o *options) { o.metricExporter = exp }
}

// New validates cfg and, when telemetry is enabled, installs the providers
// and W3C propagators globally. A nil logger discards messages.
func New(ctx context.Context, cfg *config.TelemetryConfig, logger *zap.Logger, opts ...Option) (*Telemetry, error) {
	if cfg == nil {
		return nil, errors.New("invalid telemetry config: nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid telemetry config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	t := &Telemetry{config: cfg, logger: logger}
	t.healthy.Store(true)
	if !cfg.Enabled {
		return t, nil
	}

	res := newResource(cfg)

	if tp, err := newTracerProvider(ctx, cfg, res, o.traceExporter); err != nil {
		t.markDegraded("tracer provider", err)
	} else {
		t.tracerProvider = tp
		otel.SetTracerProvider(tp)
	}

	switch mp, err := newMeterProvider(ctx, cfg, res, o.metricExporter); {
	case err != nil:
		t.markDegraded("meter provider", err)
	case mp != nil:
		t.meterProvider = mp
		otel.SetMeterProvider(mp)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("telemetry initialized",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("protocol", protocolOf(cfg)),
		zap.Float64("sampling_rate", cfg.SamplingRate),
		zap.Bool("metrics", t.meterProvider != nil),
	)
	return t, nil
}

// Tracer falls back to the global provider when tracing is not running.
func (t *Telemetry) Tracer(name string, opts ...oteltrace.TracerOption) oteltrace.Tracer {
	if t == nil || t.tracerProvider == nil {
		return otel.Tracer(name, opts...)
	}
	return t.tracerProvider.Tracer(name, opts...)
}

// Meter falls back to the global provider when metrics are not exported.
func (t *Telemetry) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if t == nil || t.meterProvider == nil {
		return otel.Meter(name, opts...)
	}
	return t.meterProvider.Meter(name, opts...)
}

// LoggerProvider feeds the zap OTEL bridge.
func (t *Telemetry) LoggerProvider() log.LoggerProvider {
	if t == nil || t.logProvider == nil {
		return global.GetLoggerProvider()
	}
	return t.logProvider
}

func (t *Telemetry) SetLoggerProvider(lp log.LoggerProvider) {
	if t != nil {
		t.logProvider = lp
	}
}

// provider is the lifecycle shared by the SDK tracer and meter providers.
type provider interface {
	ForceFlush(context.Context) error
	Shutdown(context.Context) error
}

// each calls fn on every running provider and joins the errors.
func (t *Telemetry) each(fn func(name string, p provider) error) error {
	var errs []error
	if t.tracerProvider != nil {
		errs = append(errs, fn("trace", t.tracerProvider))
	}
	if t.meterProvider != nil {
		errs = append(errs, fn("meter", t.meterProvider))
	}
	return errors.Join(errs...)
}

// Shutdown flushes and stops the providers. Without a deadline on ctx the
// configured shutdown timeout bounds the wait.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}
	defer t.healthy.Store(false)

	if _, ok := ctx.Deadline(); !ok && t.config != nil && t.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.config.ShutdownTimeout.Duration())
		defer cancel()
	}

	return t.each(func(name string, p provider) error {
		if err := p.Shutdown(ctx); err != nil {
			return fmt.Errorf("%s provider shutdown: %w", name, err)
		}
		return nil
	})
}

// ForceFlush exports everything buffered so far.
func (t *Telemetry) ForceFlush(ctx context.Context) error {
	if t == nil {
		return nil
	}
	return t.each(func(name string, p provider) error {
		if err := p.ForceFlush(ctx); err != nil {
			return fmt.Errorf("%s flush: %w", name, err)
		}
		return nil
	})
}

// HealthStatus is a point-in-time view of the telemetry pipeline.
type HealthStatus struct {
	Healthy  bool // not shut down
	Degraded bool // a provider failed to start
}

// Health reports a nil Telemetry as unhealthy and degraded.
func (t *Telemetry) Health() HealthStatus {
	if t == nil {
		return HealthStatus{Degraded: true}
	}
	return HealthStatus{Healthy: t.healthy.Load(), Degraded: t.degraded.Load()}
}

// IsEnabled reports whether telemetry was configured on and is still running.
func (t *Telemetry) IsEnabled() bool {
	return t != nil && t.config != nil && t.config.Enabled && t.healthy.Load()
}

func (t *Telemetry) markDegraded(component string, err error) {
	t.degraded.Store(true)
	t.logger.Warn("telemetry degraded", zap.String("component", component), zap.Error(err))
}
