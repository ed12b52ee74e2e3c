package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/subiekt-planner/backend/internal/config"
)

// MinioArchiver stores export artifacts in an S3-compatible bucket.
type MinioArchiver struct {
	client *minio.Client
	bucket string
}

func NewMinioArchiver(cfg config.ArchiveConfig) (*MinioArchiver, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("archive endpoint must be provided")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("archive credentials must be provided")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive bucket must be provided")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &MinioArchiver{client: client, bucket: cfg.Bucket}, nil
}

func (a *MinioArchiver) Store(ctx context.Context, key, contentType string, data []byte) error {
	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("store archive object %s: %w", key, err)
	}
	return nil
}

var _ Archiver = (*MinioArchiver)(nil)
