package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

// MinIOConfig configures an S3 compatible bucket.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL prefixes returned paths; defaults to "/<bucket>".
	PublicURL string
}

// MinIOUploader implements Uploader on top of MinIO or any S3 compatible store.
type MinIOUploader struct {
	client    *minio.Client
	bucket    string
	publicURL string
	logger    zerolog.Logger
}

// NewMinIO constructs a MinIO uploader.
func NewMinIO(cfg MinIOConfig, logger zerolog.Logger) (*MinIOUploader, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("minio endpoint and bucket must be provided")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize minio: %w", err)
	}

	publicURL := strings.TrimRight(cfg.PublicURL, "/")
	if publicURL == "" {
		publicURL = "/" + cfg.Bucket
	}

	return &MinIOUploader{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: publicURL,
		logger:    logger.With().Str("component", "minio").Logger(),
	}, nil
}

// Upload stores the object under a generated key inside the configured bucket.
func (u *MinIOUploader) Upload(ctx context.Context, data []byte, opts UploadOptions) (StoredFile, error) {
	key := ObjectKey(opts.Directory, opts.OriginalName)

	info, err := u.client.PutObject(ctx, u.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: opts.MimeType,
	})
	if err != nil {
		return StoredFile{}, fmt.Errorf("failed to put object: %w", err)
	}

	u.logger.Info().Str("key", info.Key).Int64("size", info.Size).Msg("file uploaded to minio")

	return StoredFile{Path: u.publicURL + "/" + key, OriginalName: opts.OriginalName}, nil
}
