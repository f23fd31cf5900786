package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestEngineMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewEngineMetrics(reg)

	m.IncPersistFailure("agrisync_cart")
	m.AddEvictions("agrisync_cart", 3)
	m.ObserveSweepDuration("retention", 250*time.Millisecond)
	m.IncSweepSuccess("retention")
	m.IncSweepFailure("retention")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "engine_persist_failure", "store", "agrisync_cart"); err != nil {
		t.Fatalf("fetch persist failure: %v", err)
	} else if got != 1 {
		t.Fatalf("expected persist failure=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "engine_evictions_total", "store", "agrisync_cart"); err != nil {
		t.Fatalf("fetch evictions: %v", err)
	} else if got != 3 {
		t.Fatalf("expected evictions=3, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "engine_sweep_success", "job", "retention"); err != nil {
		t.Fatalf("fetch sweep success: %v", err)
	} else if got != 1 {
		t.Fatalf("expected sweep success=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "engine_sweep_failure", "job", "retention"); err != nil {
		t.Fatalf("fetch sweep failure: %v", err)
	} else if got != 1 {
		t.Fatalf("expected sweep failure=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "engine_sweep_duration_seconds", "job", "retention"); err != nil {
		t.Fatalf("fetch sweep duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestEngineMetricsNilSafe(t *testing.T) {
	var m *EngineMetrics
	m.IncPersistFailure("x")
	m.AddEvictions("x", 1)
	m.ObserveSweepDuration("x", time.Second)
	m.IncSweepSuccess("x")
	m.IncSweepFailure("x")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if hasLabel(metric, label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q with %s=%s not found", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if hasLabel(metric, label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("metric %q with %s=%s not found", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func hasLabel(metric *dto.Metric, label, value string) bool {
	for _, pair := range metric.GetLabel() {
		if pair.GetName() == label && pair.GetValue() == value {
			return true
		}
	}
	return false
}
