package roster

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"strings"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Source yields the raw CSV bytes of a dataset.
type Source interface {
	// Name identifies the source in logs and errors.
	Name() string
	// Open returns a reader positioned at the start of the CSV data.
	Open(ctx context.Context) (io.ReadCloser, error)
}

// FileSource reads a dataset from the local filesystem.
type FileSource struct {
	Path string
}

// Name returns the file path.
func (s FileSource) Name() string { return s.Path }

// Open opens the file. A missing file yields a KindNotFound LoadError.
func (s FileSource) Open(_ context.Context) (io.ReadCloser, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &LoadError{Kind: KindNotFound, Source: s.Path, Err: err}
		}

		return nil, &LoadError{Kind: KindMalformed, Source: s.Path, Err: err}
	}

	return f, nil
}

// S3API is the subset of the S3 client used by S3Source.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config holds the connection parameters for S3-compatible backends.
type S3Config struct {
	// Region defaults to us-east-1.
	Region string
	// Endpoint overrides the service endpoint (e.g. MinIO).
	Endpoint string
	// PathStyle forces path-style addressing.
	PathStyle bool
	// AppID is appended to the SDK user agent.
	AppID string
}

// S3Source reads a dataset object from an S3 bucket.
type S3Source struct {
	Bucket string
	Key    string
	client S3API
}

// NewS3Source creates a source for bucket/key using client.
func NewS3Source(client S3API, bucket, key string) *S3Source {
	return &S3Source{Bucket: bucket, Key: key, client: client}
}

// NewS3Client builds an S3 client from cfg and the default AWS credential
// chain.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AppID != "" {
		opts = append(opts, awsconfig.WithAppID(cfg.AppID))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}

		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// Name returns the s3:// URI of the object.
func (s *S3Source) Name() string {
	return "s3://" + s.Bucket + "/" + s.Key
}

// Open fetches the object body.
func (s *S3Source) Open(ctx context.Context) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, &LoadError{Kind: KindNotFound, Source: s.Name(), Err: err}
		}

		return nil, &LoadError{Kind: KindMalformed, Source: s.Name(), Err: fmt.Errorf("fetching object: %w", err)}
	}

	return out.Body, nil
}

// ParseS3URI splits "s3://bucket/key" into bucket and key.
func ParseS3URI(uri string) (bucket, key string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", fmt.Errorf("parsing %q: %w", uri, err)
	}

	if u.Scheme != "s3" {
		return "", "", fmt.Errorf("not an s3 uri: %q", uri)
	}

	key = strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", fmt.Errorf("s3 uri %q must name a bucket and a key", uri)
	}

	return u.Host, key, nil
}

// OpenSource resolves a dataset location. "s3://bucket/key" locations are
// served from S3; everything else is treated as a local path.
func OpenSource(ctx context.Context, location string, cfg S3Config) (Source, error) {
	if !strings.HasPrefix(location, "s3://") {
		return FileSource{Path: location}, nil
	}

	bucket, key, err := ParseS3URI(location)
	if err != nil {
		return nil, err
	}

	client, err := NewS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return NewS3Source(client, bucket, key), nil
}
