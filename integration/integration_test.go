package integration

import (
	"context"
	"strings"
	"testing"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/glue/types"
	"go.uber.org/zap"

	"github.com/aws-samples/running-sql-on-org-audit-logs-using-partition-projection/catalog"
	"github.com/aws-samples/running-sql-on-org-audit-logs-using-partition-projection/config"
	"github.com/aws-samples/running-sql-on-org-audit-logs-using-partition-projection/integration/mock"
	"github.com/aws-samples/running-sql-on-org-audit-logs-using-partition-projection/listing"
	"github.com/aws-samples/running-sql-on-org-audit-logs-using-partition-projection/metrics"
	"github.com/aws-samples/running-sql-on-org-audit-logs-using-partition-projection/reconciler"
	"github.com/aws-samples/running-sql-on-org-audit-logs-using-partition-projection/regions"
)

func testCatalogTable() *types.Table {
	return &types.Table{
		Name:         awssdk.String("cloudtrail_logs"),
		DatabaseName: awssdk.String("audit"),
		Description:  awssdk.String("Organization CloudTrail logs"),
		Owner:        awssdk.String("security"),
		TableType:    awssdk.String("EXTERNAL_TABLE"),
		PartitionKeys: []types.Column{
			{Name: awssdk.String("accountid"), Type: awssdk.String("string")},
			{Name: awssdk.String("region"), Type: awssdk.String("string")},
			{Name: awssdk.String("timestamp"), Type: awssdk.String("string")},
		},
		StorageDescriptor: &types.StorageDescriptor{
			Location: awssdk.String("s3://org-trail-bucket/AWSLogs/"),
		},
		Parameters: map[string]string{
			"projection.enabled":          "true",
			"projection.accountid.values": "111111111111",
			"projection.region.values":    "eu-west-1",
			"projection.timestamp.type":   "date",
		},
	}
}

func testIntegrationConfig() *config.Config {
	return &config.Config{
		Bucket:     "org-trail-bucket",
		Prefix:     "AWSLogs",
		Database:   "audit",
		Table:      "cloudtrail_logs",
		RunTimeout: 30 * time.Second,
	}
}

// TestFullReconciliationFlow wires the mock AWS clients through the real
// listing, region and catalog components and runs the reconciler twice: the
// first run must bring both projection properties up to date, the second
// must be a no-op against the already reconciled table.
func TestFullReconciliationFlow(t *testing.T) {
	mockS3 := mock.NewS3Client()
	mockS3.Folders["org-trail-bucket/AWSLogs/"] = []string{
		"111111111111",
		"222222222222",
		"o-abcd1234", // organization ID folder, must be excluded
		"CloudTrail", // junk folder, must be excluded
	}

	mockEC2 := &mock.EC2Client{
		Regions: []string{"eu-west-1", "us-east-1", "ap-southeast-2"},
	}
	mockGlue := &mock.GlueClient{Table: testCatalogTable()}

	cfg := testIntegrationConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("invalid config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RunTimeout)
	defer cancel()

	rec := reconciler.New(
		cfg,
		listing.NewS3Lister(mockS3),
		regions.NewEC2Enumerator(mockEC2),
		catalog.NewGlueStore(mockGlue),
		zap.NewNop(),
	)

	report, err := rec.Run(ctx)
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	if report.AccountsDiscovered != 2 {
		t.Errorf("expected 2 accounts discovered, got %d", report.AccountsDiscovered)
	}
	if report.CandidatesDiscarded != 2 {
		t.Errorf("expected 2 folders discarded, got %d", report.CandidatesDiscarded)
	}
	if report.RegionsDiscovered != 3 {
		t.Errorf("expected 3 regions discovered, got %d", report.RegionsDiscovered)
	}
	if report.PropertiesWritten != 2 {
		t.Errorf("expected both properties written, got %d", report.PropertiesWritten)
	}
	if len(mockGlue.Updates) != 2 {
		t.Fatalf("expected 2 table updates, got %d", len(mockGlue.Updates))
	}

	params := mockGlue.Table.Parameters
	if got := params["projection.accountid.values"]; got != "111111111111,222222222222" {
		t.Errorf("accountid values mismatch: %q", got)
	}
	for _, junk := range []string{"o-abcd1234", "CloudTrail"} {
		if strings.Contains(params["projection.accountid.values"], junk) {
			t.Errorf("non-account folder %s leaked into accountid values: %q", junk, params["projection.accountid.values"])
		}
	}

	regionValues := strings.Split(params["projection.region.values"], ",")
	if len(regionValues) != 3 {
		t.Errorf("region values mismatch: %q", params["projection.region.values"])
	}

	// Unrelated table state must survive the read-modify-write cycle.
	if params["projection.enabled"] != "true" {
		t.Errorf("projection.enabled changed: %q", params["projection.enabled"])
	}
	if params["projection.timestamp.type"] != "date" {
		t.Errorf("projection.timestamp.type changed: %q", params["projection.timestamp.type"])
	}
	if awssdk.ToString(mockGlue.Table.Description) != "Organization CloudTrail logs" {
		t.Error("table description was not carried forward")
	}
	if len(mockGlue.Table.PartitionKeys) != 3 {
		t.Error("partition keys were not carried forward")
	}
	if mockGlue.Table.StorageDescriptor == nil ||
		awssdk.ToString(mockGlue.Table.StorageDescriptor.Location) != "s3://org-trail-bucket/AWSLogs/" {
		t.Error("storage descriptor was not carried forward")
	}

	// Second run against the reconciled table must not write anything.
	second := reconciler.New(
		cfg,
		listing.NewS3Lister(mockS3),
		regions.NewEC2Enumerator(mockEC2),
		catalog.NewGlueStore(mockGlue),
		zap.NewNop(),
	)

	report, err = second.Run(ctx)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if report.PropertiesSkipped != 2 {
		t.Errorf("expected both properties skipped on second run, got %d", report.PropertiesSkipped)
	}
	if len(mockGlue.Updates) != 2 {
		t.Errorf("second run produced unexpected table updates: %d total", len(mockGlue.Updates))
	}
}

// TestDryRunLeavesCatalogUntouched verifies that dry-run mode reports the
// writes it would perform without calling UpdateTable.
func TestDryRunLeavesCatalogUntouched(t *testing.T) {
	mockS3 := mock.NewS3Client()
	mockS3.Folders["org-trail-bucket/AWSLogs/"] = []string{
		"111111111111",
		"222222222222",
	}

	mockEC2 := &mock.EC2Client{Regions: []string{"eu-west-1", "us-east-1"}}
	mockGlue := &mock.GlueClient{Table: testCatalogTable()}

	cfg := testIntegrationConfig()
	cfg.DryRun = true

	rec := reconciler.New(
		cfg,
		listing.NewS3Lister(mockS3),
		regions.NewEC2Enumerator(mockEC2),
		catalog.NewGlueStore(mockGlue),
		zap.NewNop(),
	)

	report, err := rec.Run(context.Background())
	if err != nil {
		t.Fatalf("dry run failed: %v", err)
	}

	if report.PropertiesWritten != 2 {
		t.Errorf("expected dry run to report 2 pending writes, got %d", report.PropertiesWritten)
	}
	if len(mockGlue.Updates) != 0 {
		t.Errorf("dry run must not update the table, got %d updates", len(mockGlue.Updates))
	}
	if got := mockGlue.Table.Parameters["projection.accountid.values"]; got != "111111111111" {
		t.Errorf("dry run mutated the catalog: %q", got)
	}
}

// TestReportUploadAfterRun runs a reconciliation and uploads the resulting
// report through the same mock S3 client the lister reads from.
func TestReportUploadAfterRun(t *testing.T) {
	mockS3 := mock.NewS3Client()
	mockS3.Folders["org-trail-bucket/AWSLogs/"] = []string{"111111111111"}

	mockEC2 := &mock.EC2Client{Regions: []string{"eu-west-1"}}
	mockGlue := &mock.GlueClient{Table: testCatalogTable()}

	rec := reconciler.New(
		testIntegrationConfig(),
		listing.NewS3Lister(mockS3),
		regions.NewEC2Enumerator(mockEC2),
		catalog.NewGlueStore(mockGlue),
		zap.NewNop(),
	)

	report, err := rec.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	uploader, err := metrics.NewS3Uploader(mockS3, "s3://audit-ops/reports/projection.json")
	if err != nil {
		t.Fatalf("failed to create uploader: %v", err)
	}
	if err := uploader.Upload(context.Background(), report); err != nil {
		t.Fatalf("failed to upload report: %v", err)
	}

	if _, ok := mockS3.Objects["audit-ops/reports/projection.json"]; !ok {
		t.Error("expected report object to be written")
	}
}

// TestMissingTableFailsRun verifies the run fails with ErrNotFound when the
// catalog table does not exist and that nothing is written.
func TestMissingTableFailsRun(t *testing.T) {
	mockS3 := mock.NewS3Client()
	mockS3.Folders["org-trail-bucket/AWSLogs/"] = []string{"111111111111"}

	mockEC2 := &mock.EC2Client{Regions: []string{"eu-west-1"}}
	mockGlue := &mock.GlueClient{} // no table

	rec := reconciler.New(
		testIntegrationConfig(),
		listing.NewS3Lister(mockS3),
		regions.NewEC2Enumerator(mockEC2),
		catalog.NewGlueStore(mockGlue),
		zap.NewNop(),
	)

	_, err := rec.Run(context.Background())
	if err == nil {
		t.Fatal("expected run to fail for a missing table")
	}
	if len(mockGlue.Updates) != 0 {
		t.Errorf("expected no updates for a missing table, got %d", len(mockGlue.Updates))
	}
}
