// Package aws provides the narrow AWS service abstractions the
// reconciliation job depends on. This file contains the concrete
// implementations of the service interfaces.
package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3ClientImpl implements S3Client using the AWS SDK.
type S3ClientImpl struct {
	client *s3.Client
}

// NewS3Client creates a new S3ClientImpl instance
func NewS3Client(client *s3.Client) *S3ClientImpl {
	return &S3ClientImpl{client: client}
}

// ListObjectsV2 implements the S3Client interface for delimiter-grouped listing
func (c *S3ClientImpl) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	return c.client.ListObjectsV2(ctx, params, optFns...)
}

// PutObject implements the S3Client interface for writing objects
func (c *S3ClientImpl) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	return c.client.PutObject(ctx, params, optFns...)
}

// EC2ClientImpl implements EC2Client using the AWS SDK.
type EC2ClientImpl struct {
	client *ec2.Client
}

// NewEC2Client creates a new EC2ClientImpl instance
func NewEC2Client(client *ec2.Client) *EC2ClientImpl {
	return &EC2ClientImpl{client: client}
}

// DescribeRegions implements the EC2Client interface for region enumeration
func (c *EC2ClientImpl) DescribeRegions(ctx context.Context, params *ec2.DescribeRegionsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error) {
	return c.client.DescribeRegions(ctx, params, optFns...)
}

// GlueClientImpl implements GlueClient using the AWS SDK.
type GlueClientImpl struct {
	client *glue.Client
}

// NewGlueClient creates a new GlueClientImpl instance
func NewGlueClient(client *glue.Client) *GlueClientImpl {
	return &GlueClientImpl{client: client}
}

// GetTable implements the GlueClient interface for reading the full table definition
func (c *GlueClientImpl) GetTable(ctx context.Context, params *glue.GetTableInput, optFns ...func(*glue.Options)) (*glue.GetTableOutput, error) {
	return c.client.GetTable(ctx, params, optFns...)
}

// UpdateTable implements the GlueClient interface for replacing the full table definition
func (c *GlueClientImpl) UpdateTable(ctx context.Context, params *glue.UpdateTableInput, optFns ...func(*glue.Options)) (*glue.UpdateTableOutput, error) {
	return c.client.UpdateTable(ctx, params, optFns...)
}
