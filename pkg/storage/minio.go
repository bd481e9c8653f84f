package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"dengue-platform/pkg/logging"
)

// Config holds object storage connection settings
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	Secure    bool
}

// MinioStore reads model artifacts from an S3-compatible bucket
type MinioStore struct {
	client *minio.Client
	bucket string
	prefix string
	logger *logging.StructuredLogger
}

// NewMinioStore connects to the object store and verifies the artifact bucket exists
func NewMinioStore(ctx context.Context, cfg Config, logger *logging.StructuredLogger) (*MinioStore, error) {
	endpoint := strings.TrimPrefix(cfg.Endpoint, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize object storage client: %w", err)
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(checkCtx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check artifact bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		return nil, fmt.Errorf("artifact bucket %s does not exist", cfg.Bucket)
	}

	logger.Info(ctx, "[STORAGE_INIT] Object storage connected", logging.Fields{
		"endpoint": endpoint,
		"bucket":   cfg.Bucket,
		"prefix":   cfg.Prefix,
	})

	return &MinioStore{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		logger: logger,
	}, nil
}

// ObjectName joins the configured prefix with name
func (s *MinioStore) ObjectName(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

// Open returns a reader for the named artifact. The caller closes it.
func (s *MinioStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	objectName := s.ObjectName(name)

	obj, err := s.client.GetObject(ctx, s.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", objectName, err)
	}

	// GetObject is lazy; Stat surfaces missing objects before the caller starts decoding.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("object %s: %w", objectName, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to stat object %s: %w", objectName, err)
	}

	s.logger.Debug(ctx, "[STORAGE_OPEN] Artifact opened", logging.Fields{
		"bucket": s.bucket,
		"object": objectName,
	})

	return obj, nil
}
