package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RestrictionsMetrics records lookup traffic against the product restrictions
// API and its caching tiers.
type RestrictionsMetrics struct {
	duration *prometheus.HistogramVec
	lookups  *prometheus.CounterVec
	failOpen *prometheus.CounterVec
}

// NewRestrictionsMetrics registers the restrictions lookup metrics on the
// provided registerer.
func NewRestrictionsMetrics(reg prometheus.Registerer) *RestrictionsMetrics {
	if reg == nil {
		return &RestrictionsMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "restrictions_fetch_duration_seconds",
		Help:    "Duration of restrictions API fetches in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	lookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "restrictions_lookups",
		Help: "Restrictions lookups by resolving source.",
	}, []string{"source"})
	failOpen := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "restrictions_fail_open",
		Help: "Lookups resolved fail-open while the restrictions API was unavailable.",
	}, []string{"reason"})
	reg.MustRegister(duration, lookups, failOpen)
	return &RestrictionsMetrics{
		duration: duration,
		lookups:  lookups,
		failOpen: failOpen,
	}
}

// ObserveFetch records one round trip to the restrictions API.
func (r *RestrictionsMetrics) ObserveFetch(outcome string, duration time.Duration) {
	if r == nil || r.duration == nil {
		return
	}
	r.duration.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

// IncLookup increments the lookup counter for the named resolving source,
// one of memo, cache, or api.
func (r *RestrictionsMetrics) IncLookup(source string) {
	if r == nil || r.lookups == nil {
		return
	}
	r.lookups.WithLabelValues(normalizeLabel(source)).Inc()
}

// IncFailOpen increments the fail-open counter for the named reason.
func (r *RestrictionsMetrics) IncFailOpen(reason string) {
	if r == nil || r.failOpen == nil {
		return
	}
	r.failOpen.WithLabelValues(normalizeLabel(reason)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
