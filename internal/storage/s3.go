package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/spec-kit/support-desk/internal/config"
)

// S3Store implements BlobStore against an S3-compatible backend (AWS S3 or
// MinIO). Single bucket; keys map to object keys directly.
type S3Store struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

// NewS3Store builds the store from service configuration.
func NewS3Store(ctx context.Context, cfg config.StorageConfig) (*S3Store, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.S3Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3PathStyle {
			o.UsePathStyle = true
		}
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
	})

	base := cfg.S3BaseURL
	if base == "" {
		if cfg.S3Endpoint != "" {
			base = strings.TrimSuffix(cfg.S3Endpoint, "/") + "/" + cfg.S3Bucket
		} else {
			base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.S3Bucket, region)
		}
	}

	return &S3Store{client: client, bucket: cfg.S3Bucket, baseURL: strings.TrimSuffix(base, "/")}, nil
}

// Put uploads the payload and returns its public reference.
func (s *S3Store) Put(ctx context.Context, key string, in UploadInput) (StoredObject, error) {
	input := &s3.PutObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
		Body:   bytes.NewReader(in.Body),
	}
	if in.MimeType != "" {
		input.ContentType = &in.MimeType
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return StoredObject{}, err
	}
	return StoredObject{
		URL:      s.baseURL + "/" + url.PathEscape(key),
		FileName: in.FileName,
		MimeType: in.MimeType,
		Size:     int64(len(in.Body)),
	}, nil
}
