package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const meterName = "github.com/fyrsmithlabs/memvec/internal/http"

const unmatchedRoute = "unmatched"

// requestMetrics records per-request OTEL instruments. An instrument that
// fails to register is left nil and skipped.
type requestMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
	size     metric.Int64Histogram
	inflight metric.Int64UpDownCounter
}

// newRequestMetrics registers instruments on meter, or on the global meter
// provider when meter is nil.
func newRequestMetrics(meter metric.Meter, logger *zap.Logger) *requestMetrics {
	if meter == nil {
		meter = otel.Meter(meterName)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	warn := func(name string, err error) {
		if err != nil {
			logger.Warn("http instrument unavailable", zap.String("instrument", name), zap.Error(err))
		}
	}

	m := &requestMetrics{}
	var err error

	m.requests, err = meter.Int64Counter("memvec.http.requests_total",
		metric.WithDescription("HTTP requests by method, route and status code."),
		metric.WithUnit("{request}"))
	warn("requests_total", err)

	m.duration, err = meter.Float64Histogram("memvec.http.request_duration_seconds",
		metric.WithDescription("Time from receiving a request to writing its response."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10))
	warn("request_duration_seconds", err)

	m.size, err = meter.Int64Histogram("memvec.http.response_size_bytes",
		metric.WithDescription("Response body size."),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(128, 512, 1024, 4096, 16384, 65536, 262144, 1048576))
	warn("response_size_bytes", err)

	m.inflight, err = meter.Int64UpDownCounter("memvec.http.active_requests",
		metric.WithDescription("Requests currently being served."),
		metric.WithUnit("{request}"))
	warn("active_requests", err)

	return m
}

// middleware wraps every route. Labels use the route template so path
// parameters such as document IDs never become label values.
func (m *requestMetrics) middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			began := time.Now()

			if m.inflight != nil {
				m.inflight.Add(ctx, 1)
				defer m.inflight.Add(ctx, -1)
			}

			err := next(c)

			set := metric.WithAttributeSet(attribute.NewSet(
				attribute.String("method", c.Request().Method),
				attribute.String("endpoint", routeLabel(c.Path())),
				attribute.Int("status", responseStatus(c, err)),
			))
			if m.requests != nil {
				m.requests.Add(ctx, 1, set)
			}
			if m.duration != nil {
				m.duration.Record(ctx, time.Since(began).Seconds(), set)
			}
			if m.size != nil {
				m.size.Record(ctx, c.Response().Size, set)
			}
			return err
		}
	}
}

// responseStatus is the status the client sees. A handler error that has not
// been written yet is rendered later by the echo error handler.
func responseStatus(c echo.Context, err error) int {
	if err == nil || c.Response().Committed {
		return c.Response().Status
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}

func routeLabel(route string) string {
	if route == "" {
		return unmatchedRoute
	}
	return route
}
