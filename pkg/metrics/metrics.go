package metrics

import (
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
	}

	r.initResolutionMetrics()
	r.initExportMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

// RecordResolution records one network resolution. kind is empty on success.
func (r *Registry) RecordResolution(variant, kind string, duration time.Duration, junctions, connectors int) {
	status := "success"
	if kind != "" {
		status = "error"
		r.TopologyErrorsTotal.WithLabelValues(variant, kind).Inc()
	}
	r.ResolutionsTotal.WithLabelValues(variant, status).Inc()
	r.ResolutionDuration.WithLabelValues(variant).Observe(duration.Seconds())
	if kind == "" {
		r.JunctionsResolved.WithLabelValues(variant).Observe(float64(junctions))
		r.ConnectorsResolved.WithLabelValues(variant).Observe(float64(connectors))
	}
}

// RecordExcludedFeatures counts optional features left out of a loop.
func (r *Registry) RecordExcludedFeatures(variant string, n int) {
	if n > 0 {
		r.FeaturesExcludedTotal.WithLabelValues(variant).Add(float64(n))
	}
}

// TrackInFlight increments the in-flight gauge and returns a func that decrements it.
func (r *Registry) TrackInFlight() func() {
	r.ResolutionsInFlight.Inc()
	return r.ResolutionsInFlight.Dec
}

// RecordExport records one artifact write through a sink.
func (r *Registry) RecordExport(sink, status string, bytes int, duration time.Duration) {
	r.ExportsTotal.WithLabelValues(sink, status).Inc()
	r.ExportDuration.WithLabelValues(sink).Observe(duration.Seconds())
	if status == "success" {
		r.ExportBytesTotal.WithLabelValues(sink).Add(float64(bytes))
	}
}

// UpdateSystemMetrics samples runtime statistics.
func (r *Registry) UpdateSystemMetrics(start time.Time) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	r.UptimeSeconds.Set(time.Since(start).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))
	r.MemoryAllocBytes.Set(float64(m.Alloc))
	r.MemorySysBytes.Set(float64(m.Sys))
}

// WriteTextfile writes every metric in the Prometheus text format to path.
func (r *Registry) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
