// Package regions implements the region enumeration adapter. It returns the
// set of AWS regions enabled for the hosting account, which bounds the
// region partition-projection dimension of the log table.
package regions

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"

	"github.com/aws-samples/running-sql-on-org-audit-logs-using-partition-projection/aws"
)

// Enumerator returns the current, unordered set of region identifiers
// usable by the invoking account.
type Enumerator interface {
	Enumerate(ctx context.Context) ([]string, error)
}

// EC2Enumerator implements the Enumerator interface using DescribeRegions.
type EC2Enumerator struct {
	client aws.EC2Client
}

// NewEC2Enumerator creates a new EC2Enumerator instance.
func NewEC2Enumerator(client aws.EC2Client) *EC2Enumerator {
	return &EC2Enumerator{client: client}
}

// Enumerate returns the names of all regions enabled for the account.
// Opted-out regions are excluded; CloudTrail cannot deliver logs from a
// region the account has not enabled.
func (e *EC2Enumerator) Enumerate(ctx context.Context) ([]string, error) {
	out, err := e.client.DescribeRegions(ctx, &ec2.DescribeRegionsInput{
		AllRegions: awssdk.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe regions: %w", err)
	}

	names := make([]string, 0, len(out.Regions))
	for _, region := range out.Regions {
		if region.RegionName == nil {
			continue
		}
		names = append(names, *region.RegionName)
	}

	return names, nil
}
