package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Ingestions      *prometheus.CounterVec
	ItemsCreated    *prometheus.CounterVec
	DecryptFailures prometheus.Counter
	IngestDuration  prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		Ingestions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "docket_ingestions_total",
			Help: "Total ingestion calls by result",
		}, []string{"result"}),
		ItemsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "docket_work_items_created_total",
			Help: "Total work items created by scope",
		}, []string{"scope"}),
		DecryptFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "docket_decrypt_failures_total",
			Help: "Total envelopes that failed to decrypt",
		}),
		IngestDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "docket_ingest_duration_seconds",
			Help:    "Duration of the full ingestion pipeline",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) ObserveIngest(start time.Time, result string) {
	m.Ingestions.WithLabelValues(result).Inc()
	m.IngestDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementItemCreated(scope string) {
	m.ItemsCreated.WithLabelValues(scope).Inc()
}

func (m *Metrics) IncrementDecryptFailure() {
	m.DecryptFailures.Inc()
}
