package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/alanyoungcy/expiryscan/internal/domain"
)

// WriterSink encodes each report as JSON to an io.Writer, one document per
// report followed by a newline.
type WriterSink struct {
	mu     sync.Mutex
	w      io.Writer
	pretty bool
}

// NewWriterSink creates a sink writing to w.
func NewWriterSink(w io.Writer, pretty bool) *WriterSink {
	return &WriterSink{w: w, pretty: pretty}
}

// Name implements Sink.
func (s *WriterSink) Name() string { return "writer" }

// Deliver implements Sink.
func (s *WriterSink) Deliver(_ context.Context, r *domain.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	enc := json.NewEncoder(s.w)
	if s.pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("report: write: %w", err)
	}
	return nil
}

// FileSink replaces a file with the latest report on every delivery. The
// file is written to a temporary sibling first and renamed into place, so
// readers never see a half-written report.
type FileSink struct {
	path   string
	pretty bool
}

// NewFileSink creates a sink for path.
func NewFileSink(path string, pretty bool) *FileSink {
	return &FileSink{path: path, pretty: pretty}
}

// Name implements Sink.
func (s *FileSink) Name() string { return "file" }

// Deliver implements Sink.
func (s *FileSink) Deliver(_ context.Context, r *domain.Report) error {
	var (
		data []byte
		err  error
	)
	if s.pretty {
		data, err = json.MarshalIndent(r, "", "  ")
	} else {
		data, err = json.Marshal(r)
	}
	if err != nil {
		return fmt.Errorf("report: encode: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".report-*.json")
	if err != nil {
		return fmt.Errorf("report: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("report: write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("report: close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("report: rename into %s: %w", s.path, err)
	}
	return nil
}
