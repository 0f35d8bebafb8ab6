package broadcast

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultOK      = "ok"
	resultError   = "error"
	resultSkipped = "skipped"
)

// Metrics counts invalidation deliveries per sink and result.
// A nil *Metrics records nothing.
type Metrics struct {
	delivered *prometheus.CounterVec
}

// NewMetrics registers the broadcast collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		delivered: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "dimensions",
			Subsystem: "broadcast",
			Name:      "deliveries_total",
			Help:      "Total number of invalidation deliveries by sink and result.",
		}, []string{"sink", "result"}),
	}
}

func (m *Metrics) observe(sink, result string) {
	if m == nil {
		return
	}
	m.delivered.WithLabelValues(sink, result).Inc()
}
