package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initResolutionMetrics() {
	r.ResolutionsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "district_resolutions_total",
			Help: "Total number of network topology resolutions",
		},
		[]string{"variant", "status"},
	)

	r.ResolutionDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "district_resolution_duration_seconds",
			Help:    "Network resolution duration in seconds",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1.0, 10.0},
		},
		[]string{"variant"},
	)

	r.JunctionsResolved = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "district_junctions_resolved",
			Help:    "Number of unique junctions per resolved network",
			Buckets: []float64{4, 16, 64, 256, 1024, 4096},
		},
		[]string{"variant"},
	)

	r.ConnectorsResolved = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "district_connectors_resolved",
			Help:    "Number of connectors per resolved network",
			Buckets: []float64{4, 16, 64, 256, 1024, 4096},
		},
		[]string{"variant"},
	)

	r.TopologyErrorsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "district_topology_errors_total",
			Help: "Total number of failed resolutions by error kind",
		},
		[]string{"variant", "kind"},
	)

	r.FeaturesExcludedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "district_features_excluded_total",
			Help: "Optional features left out of a thermal loop because nothing touches them",
		},
		[]string{"variant"},
	)

	r.ResolutionsInFlight = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "district_resolutions_in_flight",
			Help: "Number of resolutions currently running",
		},
	)
}
