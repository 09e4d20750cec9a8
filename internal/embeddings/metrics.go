package embeddings

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const meterName = "github.com/fyrsmithlabs/memvec/internal/embeddings"

const (
	opEmbedDocuments = "embed_documents"
	opEmbedQuery     = "embed_query"
)

// embedMetrics records per-call embedding instruments for one model.
// Instruments that fail to register are left nil and skipped.
type embedMetrics struct {
	model    attribute.KeyValue
	duration metric.Float64Histogram
	texts    metric.Int64Histogram
	failures metric.Int64Counter
}

func newEmbedMetrics(meter metric.Meter, model string, logger *zap.Logger) *embedMetrics {
	if meter == nil {
		meter = otel.Meter(meterName)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &embedMetrics{model: attribute.String("model", model)}

	var err error
	if m.duration, err = meter.Float64Histogram(
		"memvec.embeddings.duration_seconds",
		metric.WithDescription("Time spent producing embeddings, by model and operation"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	); err != nil {
		logger.Warn("embeddings duration histogram unavailable", zap.Error(err))
	}

	if m.texts, err = meter.Int64Histogram(
		"memvec.embeddings.batch_texts",
		metric.WithDescription("Texts per embedding call"),
		metric.WithUnit("{text}"),
		metric.WithExplicitBucketBoundaries(1, 2, 5, 10, 25, 50, 100, 250, 500),
	); err != nil {
		logger.Warn("embeddings batch histogram unavailable", zap.Error(err))
	}

	if m.failures, err = meter.Int64Counter(
		"memvec.embeddings.failures_total",
		metric.WithDescription("Failed embedding calls, by model and operation"),
		metric.WithUnit("{call}"),
	); err != nil {
		logger.Warn("embeddings failure counter unavailable", zap.Error(err))
	}

	return m
}

// start begins timing a call of n texts; the returned func records the outcome.
func (m *embedMetrics) start(ctx context.Context, op string, n int) func(error) {
	begun := time.Now()
	return func(err error) {
		attrs := metric.WithAttributes(m.model, attribute.String("operation", op))
		if m.duration != nil {
			m.duration.Record(ctx, time.Since(begun).Seconds(), attrs)
		}
		if m.texts != nil && n > 0 {
			m.texts.Record(ctx, int64(n), attrs)
		}
		if m.failures != nil && err != nil {
			m.failures.Add(ctx, 1, attrs)
		}
	}
}
