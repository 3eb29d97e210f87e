package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestHTTPMetricsExports(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewHTTPMetrics(reg)
	metrics.Observe("POST", "/api/visit-requests", "201", 120*time.Millisecond)
	metrics.Observe("POST", "/api/visit-requests", "201", 80*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	got, err := fetchCounterValue(mfs, "http_requests_total", "route", "/api/visit-requests")
	if err != nil {
		t.Fatalf("fetch requests: %v", err)
	}
	if got != 2 {
		t.Fatalf("expected requests=2, got %f", got)
	}

	sum, err := fetchHistogramSum(mfs, "http_request_duration_seconds", "route", "/api/visit-requests")
	if err != nil {
		t.Fatalf("fetch duration: %v", err)
	}
	if sum <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", sum)
	}
}

func TestLifecycleMetricsExports(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewLifecycleMetrics(reg)
	metrics.IncTransition("APPROVED")
	metrics.IncConflict("APPROVED")
	metrics.ObserveDrain(40 * time.Millisecond)
	metrics.IncPublished()
	metrics.IncPublishFailed()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "visit_request_transitions_total", "to_status", "APPROVED"); err != nil {
		t.Fatalf("fetch transitions: %v", err)
	} else if got != 1 {
		t.Fatalf("expected transitions=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "visit_request_transition_conflicts_total", "to_status", "APPROVED"); err != nil {
		t.Fatalf("fetch conflicts: %v", err)
	} else if got != 1 {
		t.Fatalf("expected conflicts=1, got %f", got)
	}
}

func TestNilRegistererIsNoop(t *testing.T) {
	httpMetrics := NewHTTPMetrics(nil)
	httpMetrics.Observe("GET", "/healthz", "200", time.Millisecond)

	lifecycle := NewLifecycleMetrics(nil)
	lifecycle.IncTransition("ASSIGNED")
	lifecycle.ObserveDrain(time.Millisecond)
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
