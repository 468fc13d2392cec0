// Package metrics defines the Prometheus collectors used by the star matrix
// pipeline and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the pipeline.
type Metrics struct {
	RunsTotal             *prometheus.CounterVec
	RecordsTotal          *prometheus.CounterVec
	RejectionsTotal       *prometheus.CounterVec
	MatrixBuildDuration   prometheus.Histogram
	MatrixChunksTotal     prometheus.Counter
	MatrixDimension       prometheus.Gauge
	ArtifactsWrittenTotal *prometheus.CounterVec
	CatalogCacheTotal     *prometheus.CounterVec
	ArchiveFetchDuration  *prometheus.HistogramVec
	BatchesConsumedTotal  *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "starmatrix_runs_total",
				Help: "Pipeline runs by status (ok, partial, failed).",
			},
			[]string{"status"},
		),
		RecordsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "starmatrix_records_total",
				Help: "Catalog records processed by outcome (valid, degraded, rejected).",
			},
			[]string{"outcome"},
		),
		RejectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "starmatrix_rejections_total",
				Help: "Rejected catalog records by reason.",
			},
			[]string{"reason"},
		),
		MatrixBuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "starmatrix_matrix_build_duration_seconds",
				Help:    "Distance matrix construction time in seconds.",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
		),
		MatrixChunksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "starmatrix_matrix_chunks_total",
				Help: "Row chunks computed across all matrix builds.",
			},
		),
		MatrixDimension: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "starmatrix_matrix_dimension",
				Help: "Dimension N of the most recently built matrix.",
			},
		),
		ArtifactsWrittenTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "starmatrix_artifacts_written_total",
				Help: "Artifact writes by kind and status.",
			},
			[]string{"kind", "status"},
		),
		CatalogCacheTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "starmatrix_catalog_cache_total",
				Help: "Catalog cache lookups by result (hit, miss).",
			},
			[]string{"result"},
		),
		ArchiveFetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "starmatrix_archive_fetch_duration_seconds",
				Help:    "Archive query latency in seconds by status.",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"status"},
		),
		BatchesConsumedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "starmatrix_batches_consumed_total",
				Help: "Catalog batches consumed from Kafka by status.",
			},
			[]string{"status"},
		),
	}

	reg.MustRegister(
		m.RunsTotal,
		m.RecordsTotal,
		m.RejectionsTotal,
		m.MatrixBuildDuration,
		m.MatrixChunksTotal,
		m.MatrixDimension,
		m.ArtifactsWrittenTotal,
		m.CatalogCacheTotal,
		m.ArchiveFetchDuration,
		m.BatchesConsumedTotal,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
