// Package aws provides the narrow AWS service abstractions the
// reconciliation job depends on. It defines interfaces for the S3, EC2 and
// Glue operations the job performs, plus thin concrete wrappers around the
// SDK clients.
package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Client defines the S3 operations used by account discovery and the
// optional run-report upload. Listing is delimiter-grouped and paginated.
type S3Client interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// EC2Client defines the EC2 operations used to enumerate the regions
// enabled for the hosting account.
type EC2Client interface {
	DescribeRegions(ctx context.Context, params *ec2.DescribeRegionsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error)
}

// GlueClient defines the Glue Data Catalog operations used to read and
// rewrite the projected table. Glue only supports whole-table replacement,
// so UpdateTable always carries the full table definition.
type GlueClient interface {
	GetTable(ctx context.Context, params *glue.GetTableInput, optFns ...func(*glue.Options)) (*glue.GetTableOutput, error)
	UpdateTable(ctx context.Context, params *glue.UpdateTableInput, optFns ...func(*glue.Options)) (*glue.UpdateTableOutput, error)
}

// Compile-time interface checks to ensure implementations satisfy interfaces
var (
	_ S3Client   = (*S3ClientImpl)(nil)
	_ EC2Client  = (*EC2ClientImpl)(nil)
	_ GlueClient = (*GlueClientImpl)(nil)

	// AWS SDK interface checks to ensure SDK clients satisfy interfaces
	_ S3Client   = (*s3.Client)(nil)
	_ EC2Client  = (*ec2.Client)(nil)
	_ GlueClient = (*glue.Client)(nil)
)
