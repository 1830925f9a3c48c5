// Package metrics defines the Prometheus collectors for the build pipeline
// and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the builder.
type Metrics struct {
	DocumentsRegistered prometheus.Counter
	TokensIndexed       *prometheus.CounterVec
	FieldsSkipped       *prometheus.CounterVec
	PhaseDuration       *prometheus.HistogramVec
	DistinctTerms       prometheus.Gauge
	ArtifactBytes       prometheus.Gauge
	BuildsTotal         *prometheus.CounterVec
}

// New creates all collectors and registers them with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates all collectors and registers them with reg. Tests
// pass a fresh registry so repeated construction cannot collide.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DocumentsRegistered: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "minidex_documents_registered_total",
				Help: "Documents assigned a short id during the build.",
			},
		),
		TokensIndexed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minidex_tokens_indexed_total",
				Help: "Token occurrences inserted into the postings store, by field.",
			},
			[]string{"field"},
		),
		FieldsSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minidex_fields_skipped_total",
				Help: "Configured fields dropped from a document, by reason.",
			},
			[]string{"reason"},
		),
		PhaseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "minidex_build_phase_duration_seconds",
				Help:    "Duration of each build phase.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
			},
			[]string{"phase"},
		),
		DistinctTerms: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "minidex_distinct_terms",
				Help: "Distinct terms in the finished postings store.",
			},
		),
		ArtifactBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "minidex_artifact_bytes",
				Help: "Size of the serialized index artifact.",
			},
		),
		BuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minidex_builds_total",
				Help: "Completed builds by status (success, error).",
			},
			[]string{"status"},
		),
	}

	reg.MustRegister(
		m.DocumentsRegistered,
		m.TokensIndexed,
		m.FieldsSkipped,
		m.PhaseDuration,
		m.DistinctTerms,
		m.ArtifactBytes,
		m.BuildsTotal,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
