package metrics

import "github.com/prometheus/client_golang/prometheus"

// GatingMetrics records checkout gate evaluations and authorization results.
type GatingMetrics struct {
	decisions      *prometheus.CounterVec
	authorizations *prometheus.CounterVec
}

// NewGatingMetrics registers the gating metrics on the provided registerer.
func NewGatingMetrics(reg prometheus.Registerer) *GatingMetrics {
	if reg == nil {
		return &GatingMetrics{}
	}
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gating_decisions",
		Help: "Gate evaluations by resulting state and outcome.",
	}, []string{"state", "outcome"})
	authorizations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gating_authorizations",
		Help: "Server-side checkout authorization results.",
	}, []string{"result"})
	reg.MustRegister(decisions, authorizations)
	return &GatingMetrics{
		decisions:      decisions,
		authorizations: authorizations,
	}
}

// IncDecision increments the decision counter for a state and outcome pair.
func (g *GatingMetrics) IncDecision(state, outcome string) {
	if g == nil || g.decisions == nil {
		return
	}
	g.decisions.WithLabelValues(normalizeLabel(state), normalizeLabel(outcome)).Inc()
}

// IncAuthorization increments the authorization counter, result is one of
// allowed or denied.
func (g *GatingMetrics) IncAuthorization(result string) {
	if g == nil || g.authorizations == nil {
		return
	}
	g.authorizations.WithLabelValues(normalizeLabel(result)).Inc()
}
