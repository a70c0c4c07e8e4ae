package metrics

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestEngineMetricsExports(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewEngineMetrics(reg)

	metrics.IncConflict("transfer")
	metrics.IncConflict("transfer")
	metrics.IncRetriesExhausted("transfer")
	metrics.SetAvailability("drill", 3)
	metrics.SetOverdue(2)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "engine_tx_conflicts_total", "operation", "transfer"); err != nil {
		t.Fatalf("fetch conflicts: %v", err)
	} else if got != 2 {
		t.Fatalf("expected conflicts=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "engine_tx_retries_exhausted_total", "operation", "transfer"); err != nil {
		t.Fatalf("fetch exhausted: %v", err)
	} else if got != 1 {
		t.Fatalf("expected exhausted=1, got %f", got)
	}

	if got, err := fetchGaugeValue(mfs, "item_available_quantity", "item", "drill"); err != nil {
		t.Fatalf("fetch availability: %v", err)
	} else if got != 3 {
		t.Fatalf("expected availability=3, got %f", got)
	}
}

func TestEngineMetricsNilReceiverIsSafe(t *testing.T) {
	var metrics *EngineMetrics
	metrics.IncConflict("transfer")
	metrics.SetAvailability("drill", 1)
	metrics.SetOverdue(0)
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

func fetchGaugeValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetGauge().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("gauge %q missing label %s=%s", name, label, value)
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
