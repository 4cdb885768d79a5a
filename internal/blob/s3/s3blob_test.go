package s3blob

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/expiryscan/internal/domain"
)

type memBlob struct {
	objects      map[string][]byte
	contentTypes map[string]string
	err          error
}

func newMemBlob() *memBlob {
	return &memBlob{objects: map[string][]byte{}, contentTypes: map[string]string{}}
}

func (m *memBlob) Put(_ context.Context, path string, data io.Reader, contentType string) error {
	if m.err != nil {
		return m.err
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	m.objects[path] = b
	m.contentTypes[path] = contentType
	return nil
}

func TestNormaliseEndpoint(t *testing.T) {
	assert.Equal(t, "https://s3.example.com", normaliseEndpoint("https://s3.example.com", false))
	assert.Equal(t, "http://minio:9000", normaliseEndpoint("minio:9000", false))
	assert.Equal(t, "https://e2.example.com", normaliseEndpoint("e2.example.com", true))
	assert.Equal(t, "http://localhost:9000", normaliseEndpoint("localhost:9000", false))
	assert.Equal(t, "https://10.0.0.5:9000", normaliseEndpoint("10.0.0.5:9000", true))
	assert.Equal(t, "http://minio:9000/", normaliseEndpoint("http://minio:9000/", true))
}

func TestNew_RequiresBucketAndRegion(t *testing.T) {
	_, err := New(context.Background(), ClientConfig{Region: "us-east-1"})
	require.Error(t, err)
	_, err = New(context.Background(), ClientConfig{Bucket: "b"})
	require.Error(t, err)
}

func TestReportArchiver_Deliver(t *testing.T) {
	blob := newMemBlob()
	a := NewReportArchiver(blob, "/reports/")
	r := &domain.Report{
		ScanID:           "scan-1",
		GeneratedAt:      time.Date(2026, 3, 4, 23, 30, 0, 0, time.UTC),
		LookaheadMinutes: 60,
	}

	require.NoError(t, a.Deliver(context.Background(), r))

	key := "reports/2026/03/04/scan-1.json"
	require.Contains(t, blob.objects, key)
	assert.Equal(t, "application/json", blob.contentTypes[key])

	var got domain.Report
	require.NoError(t, json.Unmarshal(blob.objects[key], &got))
	assert.Equal(t, "scan-1", got.ScanID)
	assert.Equal(t, 60, got.LookaheadMinutes)
}

func TestReportArchiver_EmptyPrefix(t *testing.T) {
	a := NewReportArchiver(newMemBlob(), "")
	r := &domain.Report{ScanID: "x", GeneratedAt: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)}
	assert.Equal(t, "2026/01/02/x.json", a.ObjectKey(r))
}

func TestReportArchiver_PropagatesUploadError(t *testing.T) {
	blob := newMemBlob()
	blob.err = errors.New("access denied")
	a := NewReportArchiver(blob, "reports")
	err := a.Deliver(context.Background(), &domain.Report{ScanID: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
	assert.Equal(t, "s3-archive", a.Name())
}
