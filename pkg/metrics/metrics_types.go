package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the application
type Registry struct {
	// Resolution Metrics
	ResolutionsTotal      *prometheus.CounterVec
	ResolutionDuration    *prometheus.HistogramVec
	JunctionsResolved     *prometheus.HistogramVec
	ConnectorsResolved    *prometheus.HistogramVec
	TopologyErrorsTotal   *prometheus.CounterVec
	FeaturesExcludedTotal *prometheus.CounterVec
	ResolutionsInFlight   prometheus.Gauge

	// Export Metrics
	ExportsTotal     *prometheus.CounterVec
	ExportBytesTotal *prometheus.CounterVec
	ExportDuration   *prometheus.HistogramVec

	// System Metrics
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge
	MemorySysBytes   prometheus.Gauge

	registry *prometheus.Registry
}
