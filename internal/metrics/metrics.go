// Package metrics registers and exposes the prometheus collectors the
// solve driver and benchmark runner publish to: solve duration, objective
// value, and per-status solve counts. A single Registry is constructed
// once at startup and passed down to collaborators, mirroring the
// injected-logger pattern in internal/logging.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry bundles the collectors the core publishes during a solve.
type Registry struct {
	SolveDuration   prometheus.Histogram
	ObjectiveValue  prometheus.Gauge
	SolvesByStatus  *prometheus.CounterVec
	NodesExplored   prometheus.Histogram
	BacktracksTotal prometheus.Counter
}

// NewRegistry creates a Registry and registers all collectors against reg.
// Pass prometheus.NewRegistry() in tests to avoid polluting the default
// global registry.
func NewRegistry(reg prometheus.Registerer) *Registry {
	m := &Registry{
		SolveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "templatesched",
			Subsystem: "solve",
			Name:      "duration_seconds",
			Help:      "Wall-clock time spent in a single solve call.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 16),
		}),
		ObjectiveValue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "templatesched",
			Subsystem: "solve",
			Name:      "objective_value",
			Help:      "Objective value of the most recently completed solve.",
		}),
		SolvesByStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "templatesched",
			Subsystem: "solve",
			Name:      "total",
			Help:      "Count of solves by terminal status.",
		}, []string{"status"}),
		NodesExplored: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "templatesched",
			Subsystem: "solve",
			Name:      "nodes_explored",
			Help:      "Branch-and-bound search nodes explored per solve.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 16),
		}),
		BacktracksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "templatesched",
			Subsystem: "solve",
			Name:      "backtracks_total",
			Help:      "Cumulative backtracks across all solves.",
		}),
	}
	reg.MustRegister(m.SolveDuration, m.ObjectiveValue, m.SolvesByStatus, m.NodesExplored, m.BacktracksTotal)
	return m
}

// RecordSolve records the outcome of one solve call.
func (m *Registry) RecordSolve(status string, durationSeconds float64, objective int, nodesExplored, backtracks int64) {
	if m == nil {
		return
	}
	m.SolveDuration.Observe(durationSeconds)
	m.SolvesByStatus.WithLabelValues(status).Inc()
	m.NodesExplored.Observe(float64(nodesExplored))
	m.BacktracksTotal.Add(float64(backtracks))
	if status == "OPTIMAL" || status == "FEASIBLE" {
		m.ObjectiveValue.Set(float64(objective))
	}
}
