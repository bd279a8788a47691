package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// dependencyUp is 1 when the last ping to a backing store succeeded, else 0.
	// Labels:
	// - dependency: postgres | redis
	dependencyUp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "dependency",
		Name:      "up",
		Help:      "Backing store availability (1=up, 0=down).",
	}, []string{"dependency"})

	dependencyPingSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "dependency",
		Name:      "ping_seconds",
		Help:      "Backing store ping latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"dependency"})
)

// Probe pings a dependency, records its availability and latency, and reports
// whether it is up.
func Probe(ctx context.Context, dependency string, ping func(context.Context) error) bool {
	start := time.Now()
	err := ping(ctx)
	dependencyPingSeconds.WithLabelValues(dependency).Observe(time.Since(start).Seconds())
	if err != nil {
		dependencyUp.WithLabelValues(dependency).Set(0)
		return false
	}
	dependencyUp.WithLabelValues(dependency).Set(1)
	return true
}
