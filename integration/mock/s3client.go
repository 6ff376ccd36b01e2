package mock

import (
	"context"
	"io"
	"strconv"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Client is an in-memory implementation of the aws.S3Client interface for
// testing. It serves delimiter-grouped listings from canned folder names
// and records uploaded objects.
type S3Client struct {
	// Folders maps "bucket/prefix" (prefix including the trailing
	// delimiter) to the child folder names returned as common prefixes.
	Folders map[string][]string
	// PageSize limits how many common prefixes each page returns.
	// Zero means everything in one page.
	PageSize int
	// Objects records PutObject payloads keyed by "bucket/key".
	Objects map[string][]byte
	// ListCalls counts ListObjectsV2 invocations.
	ListCalls int
	// Err, when set, is returned by every call.
	Err error
}

// NewS3Client creates a new mock S3 client
func NewS3Client() *S3Client {
	return &S3Client{
		Folders: make(map[string][]string),
		Objects: make(map[string][]byte),
	}
}

// ListObjectsV2 implements the S3Client interface, returning the configured
// folder names as common prefixes with pagination driven by a numeric
// continuation token.
func (m *S3Client) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	m.ListCalls++
	if m.Err != nil {
		return nil, m.Err
	}

	prefix := awssdk.ToString(params.Prefix)
	folders := m.Folders[awssdk.ToString(params.Bucket)+"/"+prefix]

	start := 0
	if params.ContinuationToken != nil {
		start, _ = strconv.Atoi(*params.ContinuationToken)
	}
	end := len(folders)
	if m.PageSize > 0 && start+m.PageSize < end {
		end = start + m.PageSize
	}

	out := &s3.ListObjectsV2Output{
		IsTruncated: awssdk.Bool(end < len(folders)),
	}
	for _, name := range folders[start:end] {
		out.CommonPrefixes = append(out.CommonPrefixes, types.CommonPrefix{
			Prefix: awssdk.String(prefix + name + "/"),
		})
	}
	if end < len(folders) {
		out.NextContinuationToken = awssdk.String(strconv.Itoa(end))
	}

	return out, nil
}

// PutObject implements the S3Client interface for writing objects
func (m *S3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.Err != nil {
		return nil, m.Err
	}

	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	m.Objects[awssdk.ToString(params.Bucket)+"/"+awssdk.ToString(params.Key)] = data

	return &s3.PutObjectOutput{}, nil
}
