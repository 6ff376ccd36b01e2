// Package metrics collects counters during a reconciliation run and
// produces the end-of-run report. The report is an observability side
// channel: it is printed to stdout and optionally uploaded to S3, and never
// feeds back into reconciliation decisions.
package metrics

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	json "github.com/goccy/go-json"

	"github.com/aws-samples/running-sql-on-org-audit-logs-using-partition-projection/aws"
)

// Metrics collects run counters. It uses atomic operations for thread-safe
// updates even though the run is sequential today.
type Metrics struct {
	accountsDiscovered  int64 // Account IDs kept after filtering
	regionsDiscovered   int64 // Regions enabled for the account
	candidatesDiscarded int64 // Folder names rejected as non-account-IDs
	propertiesWritten   int64 // Projection properties rewritten this run
	propertiesSkipped   int64 // Projection properties left unchanged

	startTime time.Time // When the run started
}

// NewMetrics creates a new Metrics instance with initialized counters
func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),
	}
}

// RecordAccountsDiscovered sets the number of account IDs kept this run
func (m *Metrics) RecordAccountsDiscovered(n int) {
	atomic.StoreInt64(&m.accountsDiscovered, int64(n))
}

// RecordRegionsDiscovered sets the number of regions found this run
func (m *Metrics) RecordRegionsDiscovered(n int) {
	atomic.StoreInt64(&m.regionsDiscovered, int64(n))
}

// RecordDiscarded increments the rejected-candidate counter
func (m *Metrics) RecordDiscarded() {
	atomic.AddInt64(&m.candidatesDiscarded, 1)
}

// RecordWrite increments the rewritten-properties counter
func (m *Metrics) RecordWrite() {
	atomic.AddInt64(&m.propertiesWritten, 1)
}

// RecordSkip increments the unchanged-properties counter
func (m *Metrics) RecordSkip() {
	atomic.AddInt64(&m.propertiesSkipped, 1)
}

// Report contains the final run report.
type Report struct {
	StartTime           time.Time     `json:"startTime"`           // When the run started
	EndTime             time.Time     `json:"endTime"`             // When the run completed
	AccountsDiscovered  int64         `json:"accountsDiscovered"`  // Account IDs kept after filtering
	RegionsDiscovered   int64         `json:"regionsDiscovered"`   // Regions enabled for the account
	CandidatesDiscarded int64         `json:"candidatesDiscarded"` // Folder names rejected as non-account-IDs
	PropertiesWritten   int64         `json:"propertiesWritten"`   // Projection properties rewritten
	PropertiesSkipped   int64         `json:"propertiesSkipped"`   // Projection properties left unchanged
	Duration            time.Duration `json:"duration"`            // Total duration of the run
}

// GenerateReport snapshots the counters into a Report ready for JSON output.
func (m *Metrics) GenerateReport() Report {
	endTime := time.Now()

	return Report{
		StartTime:           m.startTime,
		EndTime:             endTime,
		AccountsDiscovered:  atomic.LoadInt64(&m.accountsDiscovered),
		RegionsDiscovered:   atomic.LoadInt64(&m.regionsDiscovered),
		CandidatesDiscarded: atomic.LoadInt64(&m.candidatesDiscarded),
		PropertiesWritten:   atomic.LoadInt64(&m.propertiesWritten),
		PropertiesSkipped:   atomic.LoadInt64(&m.propertiesSkipped),
		Duration:            endTime.Sub(m.startTime),
	}
}

// MarshalJSON implements json.Marshaler to render the duration in a
// human-readable form for the stdout and S3 outputs.
func (r Report) MarshalJSON() ([]byte, error) {
	type Alias Report
	return json.Marshal(&struct {
		Alias
		Duration string `json:"duration"`
	}{
		Alias:    Alias(r),
		Duration: r.Duration.String(),
	})
}

// String returns a human-readable representation of the report for console
// output.
func (r Report) String() string {
	return fmt.Sprintf(
		"Reconciliation completed in %s\n"+
			"Accounts discovered: %d (%d candidates discarded)\n"+
			"Regions discovered: %d\n"+
			"Properties written: %d, unchanged: %d",
		r.Duration,
		r.AccountsDiscovered,
		r.CandidatesDiscarded,
		r.RegionsDiscovered,
		r.PropertiesWritten,
		r.PropertiesSkipped,
	)
}

// S3Uploader writes the JSON run report to a fixed S3 location.
// Example:
//
//	uploader, err := metrics.NewS3Uploader(client, "s3://audit-ops/reports/projection.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = uploader.Upload(ctx, report)
type S3Uploader struct {
	client aws.S3Client
	bucket string
	key    string
}

// NewS3Uploader creates a new S3Uploader instance from an S3 URI.
func NewS3Uploader(client aws.S3Client, uri string) (*S3Uploader, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid S3 URI: %w", err)
	}
	if u.Scheme != "s3" {
		return nil, fmt.Errorf("invalid S3 URI scheme: %s", u.Scheme)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return nil, fmt.Errorf("S3 URI must be of the form s3://bucket/key")
	}

	return &S3Uploader{
		client: client,
		bucket: u.Host,
		key:    key,
	}, nil
}

// Upload serializes the report and puts it at the configured location.
func (u *S3Uploader) Upload(ctx context.Context, report Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      awssdk.String(u.bucket),
		Key:         awssdk.String(u.key),
		Body:        bytes.NewReader(data),
		ContentType: awssdk.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload report: %w", err)
	}

	return nil
}
