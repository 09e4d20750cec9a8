package vectorstore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DocumentsTotal tracks the number of documents resident in the most
	// recently mutated store. It is not labelled per store.
	DocumentsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "memvec",
			Subsystem: "vectorstore",
			Name:      "documents",
			Help:      "Number of documents currently held by the store",
		},
	)

	// OperationsTotal counts store operations.
	// Labels: operation (add, delete, search, save, load), result (success, error)
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "memvec",
			Subsystem: "vectorstore",
			Name:      "operations_total",
			Help:      "Total number of store operations by operation and result",
		},
		[]string{"operation", "result"},
	)

	// SearchDuration tracks how long similarity searches take.
	SearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "memvec",
			Subsystem: "vectorstore",
			Name:      "search_duration_seconds",
			Help:      "Duration of similarity searches in seconds, including query embedding",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

// recordOperation records the outcome of a store operation.
func recordOperation(operation string, err error) {
	if err != nil {
		OperationsTotal.WithLabelValues(operation, "error").Inc()
		return
	}
	OperationsTotal.WithLabelValues(operation, "success").Inc()
}
