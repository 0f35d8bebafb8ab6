package dimension

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments cascading deletes and invalidations.
// A nil *Metrics records nothing.
type Metrics struct {
	cascades      *prometheus.CounterVec
	stageFailures *prometheus.CounterVec
	expanded      prometheus.Histogram
	invalidations *prometheus.CounterVec
}

// NewMetrics registers the dimension collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		cascades: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dimensions",
			Name:      "cascade_deletes_total",
			Help:      "Total number of cascading delete runs by result.",
		}, []string{"result"}),
		stageFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dimensions",
			Name:      "cascade_stage_failures_total",
			Help:      "Total number of aborted cascading deletes by failing stage.",
		}, []string{"stage"}),
		expanded: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dimensions",
			Name:      "cascade_expanded_dimensions",
			Help:      "Number of dimensions a cascading delete expanded to.",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100, 200, 500, 1000},
		}),
		invalidations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dimensions",
			Name:      "invalidations_total",
			Help:      "Total number of invalidation signals published by scope.",
		}, []string{"scope"}),
	}
}

func (m *Metrics) cascadeCompleted(expanded int) {
	if m == nil {
		return
	}
	m.cascades.WithLabelValues("completed").Inc()
	m.expanded.Observe(float64(expanded))
}

func (m *Metrics) cascadeFailed(stage Stage) {
	if m == nil {
		return
	}
	m.cascades.WithLabelValues("failed").Inc()
	m.stageFailures.WithLabelValues(stage.String()).Inc()
}

func (m *Metrics) invalidated(scope string) {
	if m == nil {
		return
	}
	m.invalidations.WithLabelValues(scope).Inc()
}
