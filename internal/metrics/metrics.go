// Package metrics defines Prometheus metrics for the triage server and
// consolidation worker.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds all registered Prometheus collectors.
type Metrics struct {
	ClassifyTotal          *prometheus.CounterVec
	ClassifyDuration       prometheus.Histogram
	ActivityDuration       *prometheus.HistogramVec
	ActivityTotal          *prometheus.CounterVec
	ConsolidationRunsTotal *prometheus.CounterVec
	UnitsCreatedTotal      prometheus.Counter
	UnitsUpdatedTotal      prometheus.Counter
	DecisionsTotal         *prometheus.CounterVec
}

// New creates uninitialised metric instances.
func New() *Metrics {
	return &Metrics{
		ClassifyTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "triage_classify_total",
				Help: "Total classification requests by resulting disposition.",
			},
			[]string{"disposition"},
		),
		ClassifyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "triage_classify_duration_seconds",
			Help:    "Duration of classification requests in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		ActivityDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "triage_activity_duration_seconds",
				Help:    "Duration of each Temporal activity execution in seconds.",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
			},
			[]string{"activity_name", "result"},
		),
		ActivityTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "triage_activity_total",
				Help: "Total number of Temporal activity executions by name and result.",
			},
			[]string{"activity_name", "result"},
		),
		ConsolidationRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "triage_consolidation_runs_total",
				Help: "Total consolidation runs by result.",
			},
			[]string{"result"},
		),
		UnitsCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "triage_knowledge_units_created_total",
			Help: "Total knowledge units created by consolidation.",
		}),
		UnitsUpdatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "triage_knowledge_units_updated_total",
			Help: "Total knowledge unit version bumps applied by consolidation.",
		}),
		DecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "triage_approval_decisions_total",
				Help: "Total approval queue decisions by verdict.",
			},
			[]string{"decision"},
		),
	}
}

// RegisterWith registers a Metrics instance with the given registry.
func RegisterWith(reg prometheus.Registerer, m *Metrics) error {
	collectors := []prometheus.Collector{
		m.ClassifyTotal,
		m.ClassifyDuration,
		m.ActivityDuration,
		m.ActivityTotal,
		m.ConsolidationRunsTotal,
		m.UnitsCreatedTotal,
		m.UnitsUpdatedTotal,
		m.DecisionsTotal,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Register creates a Metrics instance and registers it with the registry.
func Register(reg prometheus.Registerer) (*Metrics, error) {
	m := New()
	if err := RegisterWith(reg, m); err != nil {
		return nil, err
	}
	return m, nil
}
