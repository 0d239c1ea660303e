package sink

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/golang/snappy"
)

// Ext is appended to the names of compressed artifacts.
const Ext = ".sz"

// SnappySink compresses artifacts with the snappy framing format before
// handing them to the wrapped sink.
type SnappySink struct {
	next Sink
}

// NewSnappySink wraps next.
func NewSnappySink(next Sink) *SnappySink {
	return &SnappySink{next: next}
}

// Kind implements Sink.
func (s *SnappySink) Kind() string { return s.next.Kind() + "+snappy" }

// Write implements Sink. The artifact is stored as name + Ext.
func (s *SnappySink) Write(ctx context.Context, name string, data []byte) error {
	compressed, err := Compress(data)
	if err != nil {
		return err
	}
	return s.next.Write(ctx, name+Ext, compressed)
}

// Compress encodes data as a snappy stream.
func Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := snappy.NewBufferedWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("snappy: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("snappy: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress decodes a snappy stream written by Compress.
func Decompress(data []byte) ([]byte, error) {
	out, err := io.ReadAll(snappy.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, fmt.Errorf("snappy: %w", err)
	}
	return out, nil
}
