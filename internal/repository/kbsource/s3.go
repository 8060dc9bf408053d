package kbsource

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/kailas-cloud/nutrisafe/internal/domain"
	"github.com/kailas-cloud/nutrisafe/internal/kb"
)

// ObjectGetter is the subset of s3.Client used by S3.
type ObjectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Params configures an S3 client. Endpoint is optional and enables
// S3-compatible stores such as MinIO.
type S3Params struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// NewS3Client builds an S3 client with static credentials when given,
// otherwise the default AWS credential chain.
func NewS3Client(ctx context.Context, p S3Params) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(p.Region)}
	if p.Endpoint != "" {
		opts = append(opts, config.WithBaseEndpoint(p.Endpoint))
	}
	if p.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(p.AccessKey, p.SecretKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = p.Endpoint != ""
	}), nil
}

// S3 reads a bundle object. The format follows the key extension.
type S3 struct {
	client ObjectGetter
	bucket string
	key    string
}

// NewS3 creates an S3 source.
func NewS3(client ObjectGetter, bucket, key string) *S3 {
	return &S3{client: client, bucket: bucket, key: key}
}

// Name identifies the source in logs and metrics.
func (s *S3) Name() string { return "s3" }

// Fetch downloads the bundle object.
func (s *S3) Fetch(ctx context.Context) ([]byte, kb.Format, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, "", fmt.Errorf("s3://%s/%s: %w", s.bucket, s.key, domain.ErrNotFound)
		}
		return nil, "", fmt.Errorf("get s3://%s/%s: %w", s.bucket, s.key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read s3://%s/%s: %w", s.bucket, s.key, err)
	}
	return data, kb.FormatFromName(s.key), nil
}
