package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestRestrictionsMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRestrictionsMetrics(reg)
	m.ObserveFetch("ok", 250*time.Millisecond)
	m.IncLookup("cache")
	m.IncFailOpen("timeout")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "restrictions_lookups", "source", "cache"); err != nil {
		t.Fatalf("fetch lookups: %v", err)
	} else if got != 1 {
		t.Fatalf("expected lookups=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "restrictions_fail_open", "reason", "timeout"); err != nil {
		t.Fatalf("fetch fail open: %v", err)
	} else if got != 1 {
		t.Fatalf("expected fail_open=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "restrictions_fetch_duration_seconds", "outcome", "ok"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestGatingMetricsExportsDecisionCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewGatingMetrics(reg)
	m.IncDecision("firearms_only", "requires_dealer_selection")
	m.IncAuthorization("denied")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "gating_decisions", "state", "firearms_only"); err != nil {
		t.Fatalf("fetch decisions: %v", err)
	} else if got != 1 {
		t.Fatalf("expected decisions=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "gating_authorizations", "result", "denied"); err != nil {
		t.Fatalf("fetch authorizations: %v", err)
	} else if got != 1 {
		t.Fatalf("expected authorizations=1, got %f", got)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var r *RestrictionsMetrics
	var g *GatingMetrics
	r.ObserveFetch("ok", time.Second)
	r.IncLookup("api")
	r.IncFailOpen("unavailable")
	g.IncDecision("no_ffl_products", "allowed")
	g.IncAuthorization("allowed")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
