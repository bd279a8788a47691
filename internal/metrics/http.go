package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// httpRequestsTotal counts requests by method, route, and status.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests processed.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			// trigger requests run a full dispatch pass
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		},
		[]string{"method", "route"},
	)
)

// HTTPMiddleware instruments each request with Prometheus metrics.
func HTTPMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// let echo resolve the status before we read it
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = "unknown"
			}
			method := c.Request().Method
			httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Response().Status)).Inc()
			httpRequestDurationSeconds.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}
