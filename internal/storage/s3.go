// internal/storage/s3.go
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	apperrors "resume-analyzer/internal/common/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// ObjectStore holds uploaded resumes.
type ObjectStore interface {
	Upload(ctx context.Context, originalName, contentType string, body io.ReadSeeker) (string, error)
	PresignGet(ctx context.Context, key string) (string, error)
}

// Config holds S3Store configuration.
type Config struct {
	Bucket     string
	Region     string
	Endpoint   string // Optional custom endpoint (MinIO, LocalStack)
	Prefix     string
	PresignTTL time.Duration
}

// S3Store implements ObjectStore on an S3-compatible bucket.
type S3Store struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	prefix    string
	ttl       time.Duration
	newID     func() string
}

var _ ObjectStore = (*S3Store)(nil)

// NewS3Store loads the default AWS credential chain and builds a client.
func NewS3Store(ctx context.Context, cfg Config) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewS3StoreFromConfig(awsCfg, cfg), nil
}

// NewS3StoreFromConfig builds a store from an already resolved aws.Config.
func NewS3StoreFromConfig(awsCfg aws.Config, cfg Config) *S3Store {
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &S3Store{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		prefix:    cfg.Prefix,
		ttl:       ttl,
		newID:     func() string { return uuid.NewString() },
	}
}

// Upload stores body under "<prefix><uuid>_<name>" and returns the key.
func (s *S3Store) Upload(ctx context.Context, originalName, contentType string, body io.ReadSeeker) (string, error) {
	key := s.prefix + s.newID() + "_" + sanitizeName(originalName)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", apperrors.NewObjectStoreUnavailableError("put", err)
	}
	return key, nil
}

// PresignGet returns a time-limited download URL for key.
func (s *S3Store) PresignGet(ctx context.Context, key string) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return "", apperrors.NewObjectStoreUnavailableError("presign", err)
	}
	return req.URL, nil
}

func sanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "resume"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r == ' ':
			return '_'
		case r < 0x20 || r == 0x7f:
			return -1
		}
		return r
	}, name)
}
