package telemetry

import (
	"context"
	"testing"

	"github.com/fyrsmithlabs/memvec/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewResource(t *testing.T) {
	cfg := config.Default().Telemetry

	res := newResource(&cfg)
	require.NotNil(t, res)

	var foundServiceName bool
	for _, attr := range res.Attributes() {
		if string(attr.Key) == "service.name" {
			assert.Equal(t, "memvec", attr.Value.AsString())
			foundServiceName = true
		}
	}
	assert.True(t, foundServiceName, "service.name attribute not found")
}

func TestNewSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{rate: 1.0, want: "AlwaysOnSampler"},
		{rate: 0, want: "AlwaysOffSampler"},
		{rate: 0.25, want: "TraceIDRatioBased{0.25}"},
	}

	for _, tt := range tests {
		desc := newSampler(tt.rate).Description()
		assert.Contains(t, desc, "ParentBased")
		assert.Contains(t, desc, tt.want)
	}
}

func TestStripScheme(t *testing.T) {
	assert.Equal(t, "localhost:4318", stripScheme("http://localhost:4318"))
	assert.Equal(t, "otel.example.com", stripScheme("https://otel.example.com"))
	assert.Equal(t, "localhost:4317", stripScheme("localhost:4317"))
}

func TestProtocolOf(t *testing.T) {
	assert.Equal(t, "grpc", protocolOf(&config.TelemetryConfig{}))
	assert.Equal(t, "http/protobuf", protocolOf(&config.TelemetryConfig{Protocol: "http/protobuf"}))
}

func TestNewTracerProvider_WithExporter(t *testing.T) {
	cfg := config.Default().Telemetry
	exporter := tracetest.NewInMemoryExporter()

	tp, err := newTracerProvider(context.Background(), &cfg, newResource(&cfg), exporter)
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "exported")
	span.End()
	require.NoError(t, tp.ForceFlush(context.Background()))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "exported", spans[0].Name)
	require.NoError(t, tp.Shutdown(context.Background()))
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	cfg := config.Default().Telemetry
	cfg.MetricsEnabled = false

	mp, err := newMeterProvider(context.Background(), &cfg, newResource(&cfg), nil)
	require.NoError(t, err)
	assert.Nil(t, mp)
}

func TestNewTraceExporter_Protocols(t *testing.T) {
	for _, protocol := range []string{"grpc", "http/protobuf"} {
		cfg := config.Default().Telemetry
		cfg.Protocol = protocol

		// Exporters connect lazily, so no collector is needed.
		exp, err := newTraceExporter(context.Background(), &cfg)
		require.NoError(t, err, protocol)
		assert.NotNil(t, exp)
		_ = exp.Shutdown(context.Background())
	}
}

func TestNewTraceExporter_UnknownProtocol(t *testing.T) {
	cfg := config.Default().Telemetry
	cfg.Protocol = "carrier-pigeon"

	_, err := newTraceExporter(context.Background(), &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carrier-pigeon")

	_, err = newMetricExporter(context.Background(), &cfg)
	assert.Error(t, err)
}
