package handler

import (
	"context"
	"sync"

	"github.com/alanyoungcy/expiryscan/internal/domain"
)

// Latest holds the most recent report. It is the server's only shared
// mutable state; reports are stored whole and never modified.
type Latest struct {
	mu     sync.RWMutex
	report *domain.Report
}

// NewLatest creates an empty holder.
func NewLatest() *Latest {
	return &Latest{}
}

// Get returns the held report, or nil before the first scan.
func (l *Latest) Get() *domain.Report {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.report
}

// Set replaces the held report.
func (l *Latest) Set(r *domain.Report) {
	l.mu.Lock()
	l.report = r
	l.mu.Unlock()
}

// Name implements report.Sink.
func (l *Latest) Name() string { return "latest" }

// Deliver implements report.Sink.
func (l *Latest) Deliver(_ context.Context, r *domain.Report) error {
	l.Set(r)
	return nil
}
