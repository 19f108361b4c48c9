package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the subset of the S3 client the artifact store uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Presigner issues time-limited GET URLs.
type S3Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3ArtifactStore keeps objects in one bucket under an optional key prefix.
// Links are stored as s3://bucket/key.
type S3ArtifactStore struct {
	client    S3API
	presigner S3Presigner
	bucket    string
	prefix    string
	urlTTL    time.Duration
}

// S3Options configures NewS3ArtifactStore.
type S3Options struct {
	Bucket   string
	Region   string
	Prefix   string
	Endpoint string
}

// NewS3ArtifactStore builds a store from the default AWS credential chain.
func NewS3ArtifactStore(ctx context.Context, opts S3Options) (*S3ArtifactStore, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3ArtifactStoreWithClient(client, s3.NewPresignClient(client), opts.Bucket, opts.Prefix), nil
}

// NewS3ArtifactStoreWithClient wires an existing client.
func NewS3ArtifactStoreWithClient(client S3API, presigner S3Presigner, bucket, prefix string) *S3ArtifactStore {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &S3ArtifactStore{
		client:    client,
		presigner: presigner,
		bucket:    bucket,
		prefix:    prefix,
		urlTTL:    15 * time.Minute,
	}
}

func (s *S3ArtifactStore) Put(ctx context.Context, objectPath string, body io.Reader, contentType string) (string, error) {
	cleaned, err := CleanPath(objectPath)
	if err != nil {
		return "", err
	}
	// Buffer so the SDK can compute the payload hash on a seekable body.
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", cleaned, err)
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.prefix + cleaned),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", cleaned, err)
	}
	return fmt.Sprintf("s3://%s/%s%s", s.bucket, s.prefix, cleaned), nil
}

func (s *S3ArtifactStore) URL(ctx context.Context, objectPath string) (string, error) {
	cleaned, err := CleanPath(objectPath)
	if err != nil {
		return "", err
	}
	if s.presigner == nil {
		return fmt.Sprintf("s3://%s/%s%s", s.bucket, s.prefix, cleaned), nil
	}
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.prefix + cleaned),
	}, s3.WithPresignExpires(s.urlTTL))
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", cleaned, err)
	}
	return req.URL, nil
}

// Delete relies on S3 treating deletes of missing keys as success.
func (s *S3ArtifactStore) Delete(ctx context.Context, objectPath string) error {
	cleaned, err := CleanPath(objectPath)
	if err != nil {
		return err
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.prefix + cleaned),
	}); err != nil {
		return fmt.Errorf("failed to delete %s: %w", cleaned, err)
	}
	return nil
}

func (s *S3ArtifactStore) PathFromLink(link string) (string, error) {
	prefix := fmt.Sprintf("s3://%s/%s", s.bucket, s.prefix)
	if !strings.HasPrefix(link, prefix) {
		return "", fmt.Errorf("%q: %w", link, ErrForeignLink)
	}
	return CleanPath(strings.TrimPrefix(link, prefix))
}

var (
	_ ArtifactStore = (*S3ArtifactStore)(nil)
	_ ArtifactStore = (*LocalArtifactStore)(nil)
)
