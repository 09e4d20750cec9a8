package telemetry

import (
	"context"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/memvec/internal/config"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc/credentials"
)

const (
	protocolGRPC = "grpc"
	protocolHTTP = "http/protobuf"
)

func protocolOf(cfg *config.TelemetryConfig) string {
	if cfg.Protocol == "" {
		return protocolGRPC
	}
	return cfg.Protocol
}

// exporterSet builds the OTLP exporters for one wire protocol.
type exporterSet struct {
	spans   func(context.Context, *config.TelemetryConfig) (trace.SpanExporter, error)
	metrics func(context.Context, *config.TelemetryConfig) (metric.Exporter, error)
}

var exportersByProtocol = map[string]exporterSet{
	protocolGRPC: {spans: grpcSpanExporter, metrics: grpcMetricExporter},
	protocolHTTP: {spans: httpSpanExporter, metrics: httpMetricExporter},
}

func exportersFor(cfg *config.TelemetryConfig) (exporterSet, error) {
	set, ok := exportersByProtocol[protocolOf(cfg)]
	if !ok {
		return exporterSet{}, fmt.Errorf("unsupported OTLP protocol %q", cfg.Protocol)
	}
	return set, nil
}

func grpcSpanExporter(ctx context.Context, cfg *config.TelemetryConfig) (trace.SpanExporter, error) {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	} else {
		opts = append(opts, otlptracegrpc.WithTLSCredentials(systemTLS()))
	}
	return otlptracegrpc.New(ctx, opts...)
}

func httpSpanExporter(ctx context.Context, cfg *config.TelemetryConfig) (trace.SpanExporter, error) {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(stripScheme(cfg.Endpoint))}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return otlptracehttp.New(ctx, opts...)
}

func grpcMetricExporter(ctx context.Context, cfg *config.TelemetryConfig) (metric.Exporter, error) {
	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
		otlpmetricgrpc.WithTemporalitySelector(alwaysCumulative),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	} else {
		opts = append(opts, otlpmetricgrpc.WithTLSCredentials(systemTLS()))
	}
	return otlpmetricgrpc.New(ctx, opts...)
}

func httpMetricExporter(ctx context.Context, cfg *config.TelemetryConfig) (metric.Exporter, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(stripScheme(cfg.Endpoint)),
		otlpmetrichttp.WithTemporalitySelector(alwaysCumulative),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	return otlpmetrichttp.New(ctx, opts...)
}

// systemTLS verifies the collector against the host's root CAs.
func systemTLS() credentials.TransportCredentials {
	return credentials.NewClientTLSFromCert(nil, "")
}

// alwaysCumulative overrides OTEL_EXPORTER_OTLP_METRICS_TEMPORALITY_PREFERENCE;
// Prometheus-backed collectors reject delta sums.
func alwaysCumulative(metric.InstrumentKind) metricdata.Temporality {
	return metricdata.CumulativeTemporality
}

func newTraceExporter(ctx context.Context, cfg *config.TelemetryConfig) (trace.SpanExporter, error) {
	set, err := exportersFor(cfg)
	if err != nil {
		return nil, err
	}
	return set.spans(ctx, cfg)
}

func newMetricExporter(ctx context.Context, cfg *config.TelemetryConfig) (metric.Exporter, error) {
	set, err := exportersFor(cfg)
	if err != nil {
		return nil, err
	}
	return set.metrics(ctx, cfg)
}

// newResource is built standalone rather than merged with resource.Default()
// so the semconv schema URL never conflicts.
func newResource(cfg *config.TelemetryConfig) *resource.Resource {
	return resource.NewWithAttributes(semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	)
}

// newSampler honours the parent's decision and samples root spans at rate.
func newSampler(rate float64) trace.Sampler {
	root := trace.TraceIDRatioBased(rate)
	if rate >= 1 {
		root = trace.AlwaysSample()
	} else if rate <= 0 {
		root = trace.NeverSample()
	}
	return trace.ParentBased(root)
}

// newTracerProvider uses exporter when non-nil, otherwise an OTLP exporter.
func newTracerProvider(ctx context.Context, cfg *config.TelemetryConfig, res *resource.Resource, exporter trace.SpanExporter) (*trace.TracerProvider, error) {
	if exporter == nil {
		exp, err := newTraceExporter(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("creating trace exporter: %w", err)
		}
		exporter = exp
	}
	return trace.NewTracerProvider(
		trace.WithResource(res),
		trace.WithSampler(newSampler(cfg.SamplingRate)),
		trace.WithBatcher(exporter),
	), nil
}

// newMeterProvider returns (nil, nil) when metrics export is off.
func newMeterProvider(ctx context.Context, cfg *config.TelemetryConfig, res *resource.Resource, exporter metric.Exporter) (*metric.MeterProvider, error) {
	if !cfg.MetricsEnabled {
		return nil, nil
	}
	if exporter == nil {
		exp, err := newMetricExporter(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("creating metric exporter: %w", err)
		}
		exporter = exp
	}
	reader := metric.NewPeriodicReader(exporter, metric.WithInterval(cfg.ExportInterval.Duration()))
	return metric.NewMeterProvider(metric.WithResource(res), metric.WithReader(reader)), nil
}

// stripScheme turns a URL into the host:port the HTTP exporters expect.
func stripScheme(endpoint string) string {
	for _, scheme := range []string{"https://", "http://"} {
		if rest, ok := strings.CutPrefix(endpoint, scheme); ok {
			return rest
		}
	}
	return endpoint
}
