package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestRecordSolveUpdatesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRegistry(reg)

	m.RecordSolve("OPTIMAL", 1.5, 42, 100, 7)

	var metric dto.Metric
	if err := m.ObjectiveValue.Write(&metric); err != nil {
		t.Fatalf("failed to read ObjectiveValue: %v", err)
	}
	if got := metric.GetGauge().GetValue(); got != 42 {
		t.Fatalf("expected objective gauge 42, got %v", got)
	}
}

func TestRecordSolveSkipsObjectiveOnInfeasible(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRegistry(reg)

	m.RecordSolve("INFEASIBLE", 0.2, 0, 10, 1)

	var metric dto.Metric
	if err := m.ObjectiveValue.Write(&metric); err != nil {
		t.Fatalf("failed to read ObjectiveValue: %v", err)
	}
	if got := metric.GetGauge().GetValue(); got != 0 {
		t.Fatalf("expected objective gauge unset (0), got %v", got)
	}
}
