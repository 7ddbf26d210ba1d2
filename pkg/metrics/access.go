package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AccessMetrics records access-control decision outcomes per scope.
type AccessMetrics struct {
	decisions *prometheus.CounterVec
	latency   *prometheus.HistogramVec
}

// NewAccessMetrics registers the access decision metrics on the provided registerer.
func NewAccessMetrics(reg prometheus.Registerer) *AccessMetrics {
	if reg == nil {
		return &AccessMetrics{}
	}
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "access_decisions_total",
		Help: "Access gate decisions by scope and outcome.",
	}, []string{"scope", "outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "access_resolution_seconds",
		Help:    "Duration of membership resolution in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"scope"})
	reg.MustRegister(decisions, latency)
	return &AccessMetrics{
		decisions: decisions,
		latency:   latency,
	}
}

// ObserveResolution records the duration of one resolver call.
func (a *AccessMetrics) ObserveResolution(scope string, duration time.Duration) {
	if a == nil || a.latency == nil {
		return
	}
	a.latency.WithLabelValues(normalizeLabel(scope)).Observe(duration.Seconds())
}

// IncDecision increments the decision counter for the scope/outcome pair.
func (a *AccessMetrics) IncDecision(scope, outcome string) {
	if a == nil || a.decisions == nil {
		return
	}
	a.decisions.WithLabelValues(normalizeLabel(scope), normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
