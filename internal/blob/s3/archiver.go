package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/alanyoungcy/expiryscan/internal/domain"
)

// ReportArchiver is a report sink that stores every delivered report as one
// JSON object keyed by date and scan ID.
type ReportArchiver struct {
	blob   domain.BlobWriter
	prefix string
}

// NewReportArchiver creates an archiver writing under prefix.
func NewReportArchiver(blob domain.BlobWriter, prefix string) *ReportArchiver {
	return &ReportArchiver{
		blob:   blob,
		prefix: strings.Trim(prefix, "/"),
	}
}

// Name identifies the sink in logs and metrics.
func (a *ReportArchiver) Name() string { return "s3-archive" }

// Deliver uploads the report to <prefix>/YYYY/MM/DD/<scan id>.json.
func (a *ReportArchiver) Deliver(ctx context.Context, r *domain.Report) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("s3blob: encode report: %w", err)
	}
	key := a.ObjectKey(r)
	if err := a.blob.Put(ctx, key, bytes.NewReader(body), "application/json"); err != nil {
		return fmt.Errorf("s3blob: archive report %s: %w", r.ScanID, err)
	}
	return nil
}

// ObjectKey returns the object path a report is archived under.
func (a *ReportArchiver) ObjectKey(r *domain.Report) string {
	day := r.GeneratedAt.UTC().Format("2006/01/02")
	return path.Join(a.prefix, day, r.ScanID+".json")
}
