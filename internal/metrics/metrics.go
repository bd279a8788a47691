package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "review_mailer"

var (
	// runsTotal counts engine runs by result.
	// Labels:
	// - result: ok | failed
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "runs_total",
			Help:      "Review email dispatch runs by result.",
		},
		[]string{"result"},
	)

	runDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "dispatch",
		Name:      "run_duration_seconds",
		Help:      "Duration of a full dispatch run in seconds.",
		Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
	})

	// tenantsTotal counts processed shops by result.
	// Labels:
	// - result: ok | credential | fetch | invalid | record | lookup | cancelled | panic
	tenantsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "tenants_total",
			Help:      "Shops processed by result.",
		},
		[]string{"result"},
	)

	// emailsTotal counts per-order outcomes.
	// Labels:
	// - outcome: sent | already_sent | not_due | no_email | delivery_failed | record_failed | duplicate
	emailsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "orders_total",
			Help:      "Orders inspected by the dispatcher, by outcome.",
		},
		[]string{"outcome"},
	)

	// rateLimitExceeded counts HTTP 429 events from the rate limit middleware.
	rateLimitExceeded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limit_exceeded_total",
			Help:      "Number of requests rejected due to rate limiting (HTTP 429)",
		},
		[]string{"endpoint"},
	)
)

// IncRun records the end of a dispatch run.
func IncRun(ok bool, seconds float64) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	runsTotal.WithLabelValues(result).Inc()
	runDurationSeconds.Observe(seconds)
}

// IncTenant records the result of processing one shop.
func IncTenant(result string) {
	if result == "" {
		result = "unknown"
	}
	tenantsTotal.WithLabelValues(result).Inc()
}

// IncOrder records what happened to one fetched order.
func IncOrder(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	emailsTotal.WithLabelValues(outcome).Inc()
}

// IncRateLimitExceeded increments the 429 counter for the given endpoint.
func IncRateLimitExceeded(endpoint string) {
	if endpoint == "" {
		endpoint = "unknown"
	}
	rateLimitExceeded.WithLabelValues(endpoint).Inc()
}
