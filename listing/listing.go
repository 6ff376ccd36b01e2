// Package listing implements the object listing adapter used to discover
// which AWS accounts currently have folders under the log bucket prefix.
// Listing is read-only: objects are grouped by the path delimiter one level
// deep and only the resulting common prefixes are consumed.
package listing

import (
	"context"
	"fmt"
	"strings"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/aws-samples/running-sql-on-org-audit-logs-using-partition-projection/aws"
)

// delimiter is the path separator CloudTrail uses when laying out
// AWSLogs/<account-id>/... keys in the organization bucket.
const delimiter = "/"

// Lister enumerates the immediate child folder names under a bucket prefix.
// Example:
//
//	var lister listing.Lister
//	folders, err := lister.ListCommonPrefixes(ctx, "org-trail-bucket", "AWSLogs")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("found %d account folders\n", len(folders))
type Lister interface {
	ListCommonPrefixes(ctx context.Context, bucket, prefix string) ([]string, error)
}

// S3Lister implements the Lister interface using delimiter-grouped,
// paginated S3 listing.
type S3Lister struct {
	client aws.S3Client
}

// NewS3Lister creates a new S3Lister instance.
func NewS3Lister(client aws.S3Client) *S3Lister {
	return &S3Lister{client: client}
}

// ListCommonPrefixes returns the deduplicated, unordered set of first-level
// folder names under prefix. The supplied prefix must not end with the
// delimiter; the lister appends it before grouping. Returned names have the
// parent prefix and the trailing delimiter stripped. Pagination is handled
// transparently; a listing failure after the SDK's own retries surfaces as
// an error and no partial result is returned.
func (l *S3Lister) ListCommonPrefixes(ctx context.Context, bucket, prefix string) ([]string, error) {
	parent := prefix + delimiter

	input := &s3.ListObjectsV2Input{
		Bucket:    awssdk.String(bucket),
		Prefix:    awssdk.String(parent),
		Delimiter: awssdk.String(delimiter),
	}

	seen := make(map[string]struct{})
	names := make([]string, 0, 16)

	paginator := s3.NewListObjectsV2Paginator(l.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list prefixes under s3://%s/%s: %w", bucket, parent, err)
		}

		for _, cp := range page.CommonPrefixes {
			if cp.Prefix == nil {
				continue
			}
			name := strings.TrimSuffix(strings.TrimPrefix(*cp.Prefix, parent), delimiter)
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}

	return names, nil
}
