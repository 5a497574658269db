// Package metrics exposes Prometheus instruments for receipt parsing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/zombor/receipt-ocr/internal/ocr"
)

// Metrics records parse outcomes
type Metrics struct {
	parses      *prometheus.CounterVec
	fallbacks   prometheus.Counter
	ocrFailures *prometheus.CounterVec
	confidence  prometheus.Histogram
	duration    prometheus.Histogram
}

// New registers the receipt metrics on reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		parses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "receipt_parses_total",
				Help: "Total number of receipts parsed, by the stage that produced the result",
			},
			[]string{"source"},
		),
		fallbacks: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "receipt_assist_fallbacks_total",
				Help: "Total number of assisted parses that failed and fell back to heuristics",
			},
		),
		ocrFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "receipt_ocr_failures_total",
				Help: "Total number of failed OCR text extractions",
			},
			[]string{"scanner"},
		),
		confidence: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "receipt_parse_confidence",
				Help:    "Overall confidence of parsed receipts",
				Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
			},
		),
		duration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "receipt_parse_duration_seconds",
				Help:    "Time spent turning OCR text into a receipt",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 9),
			},
		),
	}
}

// RecordParse records one pipeline run
func (m *Metrics) RecordParse(result ocr.Result, elapsed time.Duration) {
	m.parses.WithLabelValues(string(result.Source)).Inc()
	if result.AssistErr != nil {
		m.fallbacks.Inc()
	}
	if result.Receipt != nil {
		m.confidence.Observe(result.Receipt.Confidence)
	}
	m.duration.Observe(elapsed.Seconds())
}

// RecordOCRFailure records a failed text extraction
func (m *Metrics) RecordOCRFailure(scanner string) {
	m.ocrFailures.WithLabelValues(scanner).Inc()
}
