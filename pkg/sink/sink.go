// Package sink writes resolved artifacts (GeoJSON documents, metrics) to a
// destination: a local directory, an S3 bucket, or memory.
package sink

import (
	"context"
	"fmt"
	"mime"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dd0wney/cluso-district/pkg/config"
	"github.com/dd0wney/cluso-district/pkg/logging"
	"github.com/dd0wney/cluso-district/pkg/metrics"
)

// Sink stores named artifacts. Names are slash-separated relative paths.
type Sink interface {
	Write(ctx context.Context, name string, data []byte) error
	// Kind labels the sink in logs and metrics.
	Kind() string
}

// FromConfig builds the sink described by out: S3 when a bucket is set,
// otherwise a directory, snappy-compressed when requested.
func FromConfig(ctx context.Context, out config.OutputConfig) (Sink, error) {
	var s Sink
	if out.S3.Bucket != "" {
		s3s, err := NewS3Sink(ctx, out.S3)
		if err != nil {
			return nil, err
		}
		s = s3s
	} else {
		fs, err := NewFileSink(out.Dir)
		if err != nil {
			return nil, err
		}
		s = fs
	}
	if out.Compress {
		s = NewSnappySink(s)
	}
	return s, nil
}

// checkName rejects names that would escape the sink's root.
func checkName(name string) error {
	if name == "" || path.IsAbs(name) || path.Clean(name) != name ||
		name == ".." || strings.HasPrefix(name, "../") {
		return fmt.Errorf("invalid artifact name %q", name)
	}
	return nil
}

func contentType(name string) string {
	switch path.Ext(name) {
	case ".geojson":
		return "application/geo+json"
	case ".sz":
		return "application/x-snappy-framed"
	}
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// MemorySink keeps artifacts in memory. It is safe for concurrent use.
type MemorySink struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemorySink creates an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{files: make(map[string][]byte)}
}

// Write implements Sink.
func (m *MemorySink) Write(_ context.Context, name string, data []byte) error {
	if err := checkName(name); err != nil {
		return err
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = buf
	return nil
}

// Kind implements Sink.
func (m *MemorySink) Kind() string { return "memory" }

// Get returns the artifact stored under name.
func (m *MemorySink) Get(name string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[name]
	return data, ok
}

// Names returns the stored names in sorted order.
func (m *MemorySink) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.files))
	for name := range m.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// instrumented logs and meters every write of the wrapped sink.
type instrumented struct {
	next    Sink
	logger  logging.Logger
	metrics *metrics.Registry
}

// Instrument wraps s so each write is logged and, when reg is non-nil, counted.
func Instrument(s Sink, logger logging.Logger, reg *metrics.Registry) Sink {
	return &instrumented{
		next:    s,
		logger:  logging.OrDefault(logger).With(logging.Component("sink"), logging.String("sink", s.Kind())),
		metrics: reg,
	}
}

func (s *instrumented) Kind() string { return s.next.Kind() }

func (s *instrumented) Write(ctx context.Context, name string, data []byte) error {
	start := time.Now()
	err := s.next.Write(ctx, name, data)
	elapsed := time.Since(start)

	status := "success"
	if err != nil {
		status = "error"
		s.logger.Error("artifact write failed", logging.Path(name), logging.Error(err))
	} else {
		s.logger.Debug("artifact written", logging.Path(name), logging.Int("bytes", len(data)), logging.Latency(elapsed))
	}
	if s.metrics != nil {
		s.metrics.RecordExport(s.Kind(), status, len(data), elapsed)
	}
	return err
}
