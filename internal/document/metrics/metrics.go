package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	PagesProcessed     prometheus.Counter
	PageFailures       *prometheus.CounterVec
	DocumentsProcessed *prometheus.CounterVec
	OCRConfidence      prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		PagesProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fisco_document_pages_processed_total",
			Help: "Total number of pages that completed OCR extraction",
		}),
		PageFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fisco_document_page_failures_total",
			Help: "Total number of page-level extraction failures by error code",
		}, []string{"code"}),
		DocumentsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fisco_documents_processed_total",
			Help: "Total number of documents run through the pipeline by outcome",
		}, []string{"status"}),
		OCRConfidence: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "fisco_ocr_token_confidence",
			Help:    "Distribution of OCR token confidence scores",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
	}
}

func (m *Metrics) ObservePage() {
	m.PagesProcessed.Inc()
}

func (m *Metrics) ObservePageFailure(code string) {
	m.PageFailures.WithLabelValues(code).Inc()
}

func (m *Metrics) ObserveDocument(status string) {
	m.DocumentsProcessed.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveTokenConfidence(conf float64) {
	m.OCRConfidence.Observe(conf)
}
