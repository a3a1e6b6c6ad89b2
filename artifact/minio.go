package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig locates an S3-compatible bucket.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	Bucket    string
	// Prefix is prepended to every object key.
	Prefix string
	UseSSL bool
}

// Validate reports the first missing or malformed field.
func (c MinioConfig) Validate() error {
	var reason string

	switch {
	case strings.TrimSpace(c.Endpoint) == "":
		reason = "endpoint is required"
	case strings.Contains(c.Endpoint, "://"):
		reason = fmt.Sprintf("endpoint must not include scheme: %q", c.Endpoint)
	case strings.TrimSpace(c.AccessKey) == "":
		reason = "access key is required"
	case strings.TrimSpace(c.SecretKey) == "":
		reason = "secret key is required"
	case strings.TrimSpace(c.Bucket) == "":
		reason = "bucket is required"
	default:
		return nil
	}

	return ErrStore.Wrap(errors.New(reason))
}

// MinioStore keeps entries as objects in a bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinioStore connects to the bucket described by cfg, creating the
// bucket if it does not exist.
func NewMinioStore(ctx context.Context, cfg MinioConfig) (*MinioStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, ErrStore.Wrap(err).With(slog.String("endpoint", cfg.Endpoint))
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, ErrStore.Wrap(err).With(slog.String("bucket", cfg.Bucket))
	}

	if !exists {
		err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region})
		if err != nil {
			return nil, ErrStore.Wrap(err).With(slog.String("bucket", cfg.Bucket))
		}
	}

	return &MinioStore{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (s *MinioStore) object(key string) string {
	return path.Join(s.prefix, key+".json")
}

// Get implements [Store].
func (s *MinioStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.object(key), minio.GetObjectOptions{})
	if err == nil {
		defer obj.Close()

		var data []byte

		if data, err = io.ReadAll(obj); err == nil {
			return data, true, nil
		}
	}

	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return nil, false, nil
	}

	return nil, false, ErrStore.Wrap(err).With(
		slog.String("bucket", s.bucket), slog.String("object", s.object(key)))
}

// Put implements [Store].
func (s *MinioStore) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.object(key),
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return ErrStore.Wrap(err).With(
			slog.String("bucket", s.bucket), slog.String("object", s.object(key)))
	}

	return nil
}
