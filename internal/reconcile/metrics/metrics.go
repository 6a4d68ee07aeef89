package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Runs        prometheus.Counter
	Results     *prometheus.CounterVec
	RunDuration prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		Runs: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fisco_reconciliation_runs_total",
			Help: "Total number of reconciliation runs",
		}),
		Results: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fisco_reconciliation_results_total",
			Help: "Total number of reconciliation results by status",
		}, []string{"status"}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "fisco_reconciliation_run_duration_seconds",
			Help:    "Duration of reconciliation runs",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) ObserveRun(seconds float64) {
	m.Runs.Inc()
	m.RunDuration.Observe(seconds)
}

func (m *Metrics) ObserveResult(status string) {
	m.Results.WithLabelValues(status).Inc()
}
