package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/alnah/go-md2pdf-server/internal/fileutil"
)

const pdfContentType = "application/pdf"

// S3Config selects the bucket artifacts are uploaded to.
// Credentials come from the default AWS chain.
type S3Config struct {
	Bucket string
	Prefix string
	Region string
	// Endpoint overrides the service URL (MinIO, LocalStack).
	Endpoint  string
	PathStyle bool
}

// s3API is the subset of *s3.Client used for uploads.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store uploads artifacts with PutObject.
type S3Store struct {
	api    s3API
	bucket string
	prefix string
}

// Compile-time interface check.
var _ Store = (*S3Store)(nil)

// NewS3Store loads the default AWS configuration and builds a client for cfg.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: s3 bucket is required", ErrInvalidConfig)
	}
	if cfg.Endpoint != "" && !fileutil.IsURL(cfg.Endpoint) {
		return nil, fmt.Errorf("%w: s3 endpoint must be an http(s) URL", ErrInvalidConfig)
	}

	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: loading aws config: %v", ErrInvalidConfig, err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})
	return newS3Store(client, cfg.Bucket, cfg.Prefix), nil
}

func newS3Store(api s3API, bucket, prefix string) *S3Store {
	return &S3Store{api: api, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// Key returns the object key for name.
func (s *S3Store) Key(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// Put uploads data and returns an s3:// URL.
func (s *S3Store) Put(ctx context.Context, name string, data []byte) (string, error) {
	if err := fileutil.ValidateName(name); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorage, err)
	}

	key := s.Key(name)
	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(pdfContentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("%w: uploading %s: %v", ErrStorage, key, err)
	}
	return "s3://" + s.bucket + "/" + key, nil
}
