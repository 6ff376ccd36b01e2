package mock

import (
	"context"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// EC2Client is an in-memory implementation of the aws.EC2Client interface
// for testing. It serves a fixed region list.
type EC2Client struct {
	// Regions are the region names returned by DescribeRegions.
	Regions []string
	// Calls counts DescribeRegions invocations.
	Calls int
	// Err, when set, is returned by every call.
	Err error
}

// DescribeRegions implements the EC2Client interface for region enumeration
func (m *EC2Client) DescribeRegions(ctx context.Context, params *ec2.DescribeRegionsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}

	out := &ec2.DescribeRegionsOutput{}
	for _, name := range m.Regions {
		out.Regions = append(out.Regions, types.Region{
			RegionName: awssdk.String(name),
		})
	}

	return out, nil
}
