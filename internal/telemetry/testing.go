package telemetry

import (
	"context"
	"reflect"
	"sync"
	"testing"

	"github.com/fyrsmithlabs/memvec/internal/config"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
)

// TestTelemetry is a Telemetry whose spans and metrics stay in memory.
type TestTelemetry struct {
	*Telemetry

	spans  *tracetest.SpanRecorder
	reader *sdkmetric.ManualReader

	mu       sync.Mutex
	spanBase int
}

// NewTestTelemetry returns an enabled, in-memory Telemetry.
func NewTestTelemetry() *TestTelemetry {
	cfg := config.Default().Telemetry
	cfg.Enabled = true

	spans := tracetest.NewSpanRecorder()
	reader := sdkmetric.NewManualReader()

	tt := &TestTelemetry{
		Telemetry: &Telemetry{
			config:         &cfg,
			logger:         zap.NewNop(),
			tracerProvider: trace.NewTracerProvider(trace.WithSpanProcessor(spans)),
			meterProvider:  sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
		},
		spans:  spans,
		reader: reader,
	}
	tt.healthy.Store(true)
	return tt
}

// Install makes tt the global tracer and meter provider until the test ends.
// Tracers taken from otel.Tracer before any provider was set delegate to the
// first provider installed, so call Install at most once per test binary
// when relying on package-level tracers.
func (t *TestTelemetry) Install(tb testing.TB) {
	tb.Helper()
	prevTP, prevMP := otel.GetTracerProvider(), otel.GetMeterProvider()
	otel.SetTracerProvider(t.tracerProvider)
	otel.SetMeterProvider(t.meterProvider)
	tb.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetMeterProvider(prevMP)
	})
}

// Spans returns spans ended since creation or the last Reset.
func (t *TestTelemetry) Spans() []trace.ReadOnlySpan {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.spans.Ended()[t.spanBase:]
}

// SpanByName returns the first ended span called name, or nil.
func (t *TestTelemetry) SpanByName(name string) trace.ReadOnlySpan {
	for _, s := range t.Spans() {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

// AssertSpanExists fails tb unless a span called name has ended.
func (t *TestTelemetry) AssertSpanExists(tb testing.TB, name string) {
	tb.Helper()
	if t.SpanByName(name) != nil {
		return
	}
	names := make([]string, 0)
	for _, s := range t.Spans() {
		names = append(names, s.Name())
	}
	tb.Errorf("span %q not recorded; have %v", name, names)
}

// AssertSpanAttribute fails tb unless span name carries key=want. Integers
// are compared as int64.
func (t *TestTelemetry) AssertSpanAttribute(tb testing.TB, name, key string, want interface{}) {
	tb.Helper()
	span := t.SpanByName(name)
	if span == nil {
		tb.Fatalf("span %q not recorded", name)
	}
	for _, kv := range span.Attributes() {
		if string(kv.Key) != key {
			continue
		}
		if got := kv.Value.AsInterface(); !reflect.DeepEqual(got, want) {
			tb.Errorf("span %q attribute %q = %v, want %v", name, key, got, want)
		}
		return
	}
	tb.Errorf("span %q has no attribute %q", name, key)
}

// CollectMetrics reads the current value of every instrument.
func (t *TestTelemetry) CollectMetrics(ctx context.Context) ([]metricdata.Metrics, error) {
	var rm metricdata.ResourceMetrics
	if err := t.reader.Collect(ctx, &rm); err != nil {
		return nil, err
	}
	var out []metricdata.Metrics
	for _, sm := range rm.ScopeMetrics {
		out = append(out, sm.Metrics...)
	}
	return out, nil
}

// Reset hides spans ended so far.
func (t *TestTelemetry) Reset() {
	t.mu.Lock()
	t.spanBase = len(t.spans.Ended())
	t.mu.Unlock()
}
