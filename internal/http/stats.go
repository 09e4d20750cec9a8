package http

import (
	"net/http"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"
	dto "github.com/prometheus/client_model/go"
	"go.uber.org/zap"
)

const (
	operationsMetric     = "memvec_vectorstore_operations_total"
	searchDurationMetric = "memvec_vectorstore_search_duration_seconds"
)

// StatsResponse is a point-in-time view of the store and process. Counters
// are cumulative since process start; clients derive rates from successive
// samples.
type StatsResponse struct {
	Documents     int                       `json:"documents"`
	Dimension     int                       `json:"dimension"`
	Operations    map[string]OperationStats `json:"operations"`
	SearchCount   uint64                    `json:"search_count"`
	SearchSeconds float64                   `json:"search_seconds"`
	Goroutines    int                       `json:"goroutines"`
	HeapBytes     uint64                    `json:"heap_bytes"`
	UptimeSeconds int64                     `json:"uptime_seconds"`
}

// OperationStats counts outcomes of one store operation.
type OperationStats struct {
	Success float64 `json:"success"`
	Error   float64 `json:"error"`
}

func (s *Server) handleStats(c echo.Context) error {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	resp := StatsResponse{
		Documents:     s.store.Count(),
		Dimension:     s.store.Dimension(),
		Operations:    map[string]OperationStats{},
		Goroutines:    runtime.NumGoroutine(),
		HeapBytes:     mem.HeapAlloc,
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	}

	families, err := s.config.Gatherer.Gather()
	if err != nil {
		// Gather returns what it could collect alongside the error.
		s.logger.Warn(c.Request().Context(), "gathering metrics", zap.Error(err))
	}
	fillStats(&resp, families)

	return c.JSON(http.StatusOK, resp)
}

func fillStats(resp *StatsResponse, families []*dto.MetricFamily) {
	for _, mf := range families {
		switch mf.GetName() {
		case operationsMetric:
			for _, m := range mf.GetMetric() {
				var op, result string
				for _, lp := range m.GetLabel() {
					switch lp.GetName() {
					case "operation":
						op = lp.GetValue()
					case "result":
						result = lp.GetValue()
					}
				}
				stats := resp.Operations[op]
				if result == "error" {
					stats.Error += m.GetCounter().GetValue()
				} else {
					stats.Success += m.GetCounter().GetValue()
				}
				resp.Operations[op] = stats
			}
		case searchDurationMetric:
			for _, m := range mf.GetMetric() {
				resp.SearchCount += m.GetHistogram().GetSampleCount()
				resp.SearchSeconds += m.GetHistogram().GetSampleSum()
			}
		}
	}
}
