package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initExportMetrics() {
	r.ExportsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "district_exports_total",
			Help: "Total number of artifacts written",
		},
		[]string{"sink", "status"},
	)

	r.ExportBytesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "district_export_bytes_total",
			Help: "Bytes handed to sinks for successful writes",
		},
		[]string{"sink"},
	)

	r.ExportDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "district_export_duration_seconds",
			Help:    "Artifact write duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 1.0, 10.0},
		},
		[]string{"sink"},
	)
}
