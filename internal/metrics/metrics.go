// Package metrics exposes Prometheus instrumentation for the analysis
// pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	AnalysesTotal  *prometheus.CounterVec
	AnalysisErrors *prometheus.CounterVec
	FitDuration    prometheus.Histogram
	RowsLoaded     prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		AnalysesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "t2d_analyses_total",
			Help: "Total analyses performed, by operation",
		}, []string{"operation"}),
		AnalysisErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "t2d_analysis_errors_total",
			Help: "Total failed analyses, by operation",
		}, []string{"operation"}),
		FitDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "t2d_fit_duration_seconds",
			Help:    "Wall time of GLM fits",
			Buckets: prometheus.DefBuckets,
		}),
		RowsLoaded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "t2d_rows_loaded_total",
			Help: "Total survey rows decoded from uploads",
		}),
	}
}

// All methods are nil-safe so tests can run without a registry.

func (m *Metrics) ObserveAnalysis(operation string, err error) {
	if m == nil {
		return
	}
	m.AnalysesTotal.WithLabelValues(operation).Inc()
	if err != nil {
		m.AnalysisErrors.WithLabelValues(operation).Inc()
	}
}

func (m *Metrics) ObserveFit(d time.Duration) {
	if m == nil {
		return
	}
	m.FitDuration.Observe(d.Seconds())
}

func (m *Metrics) AddRowsLoaded(n int) {
	if m == nil {
		return
	}
	m.RowsLoaded.Add(float64(n))
}
