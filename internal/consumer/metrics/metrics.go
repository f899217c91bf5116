package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ClaimConflicts prometheus.Counter
	ItemsProcessed *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		ClaimConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "docket_consumer_claim_conflicts_total",
			Help: "Claims lost to a concurrent consumer",
		}),
		ItemsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "docket_consumer_items_processed_total",
			Help: "Work items processed by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) IncrementClaimConflict() {
	m.ClaimConflicts.Inc()
}

func (m *Metrics) IncrementProcessed(result string) {
	m.ItemsProcessed.WithLabelValues(result).Inc()
}
