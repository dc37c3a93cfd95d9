// Package storage keeps generated files in S3-compatible object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/diewo77/cna-billing/internal/config"
)

// ErrDisabled is returned when object storage is not configured.
var ErrDisabled = errors.New("storage: object storage is not configured")

// Storage is what the services need from a blob store.
type Storage interface {
	Put(ctx context.Context, key, contentType string, body io.ReadSeeker) error
	URL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// S3 stores objects in one bucket.
type S3 struct {
	bucket  string
	client  *s3.Client
	presign *s3.PresignClient
}

// NewS3 builds a client from the AWS_* settings. A custom endpoint (MinIO, R2, ...) switches
// to path-style addressing.
func NewS3(ctx context.Context, cfg config.StorageConfig) (*S3, error) {
	if !cfg.Enabled() {
		return nil, ErrDisabled
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("storage.NewS3: load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})
	return &S3{bucket: cfg.Bucket, client: client, presign: s3.NewPresignClient(client)}, nil
}

// Put uploads body under key.
func (s *S3) Put(ctx context.Context, key, contentType string, body io.ReadSeeker) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("storage.S3.Put %s: %w", key, err)
	}
	return nil
}

// URL returns a pre-signed GET URL valid for ttl.
func (s *S3) URL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("storage.S3.URL %s: %w", key, err)
	}
	return req.URL, nil
}

// Key builds "prefix/YYYY/MM/<uuid>_<name>" with name reduced to a safe file name.
func Key(prefix, name string, at time.Time) string {
	return path.Join(prefix, at.Format("2006/01"), uuid.NewString()+"_"+safeName(name))
}

func safeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if s := strings.Trim(b.String(), "."); s != "" {
		return s
	}
	return "file"
}
