package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"
)

// CloudinaryConfig contains credentials required to talk to Cloudinary.
type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// CloudinaryUploader implements Uploader using Cloudinary.
type CloudinaryUploader struct {
	client *cloudinary.Cloudinary
	folder string
	logger zerolog.Logger
}

// NewCloudinary constructs a Cloudinary uploader.
func NewCloudinary(cfg CloudinaryConfig, logger zerolog.Logger) (*CloudinaryUploader, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return &CloudinaryUploader{
		client: cld,
		folder: strings.Trim(cfg.Folder, "/"),
		logger: logger.With().Str("component", "cloudinary").Logger(),
	}, nil
}

// Upload sends the file to Cloudinary and returns its secure URL.
func (u *CloudinaryUploader) Upload(ctx context.Context, data []byte, opts UploadOptions) (StoredFile, error) {
	key := ObjectKey(opts.Directory, opts.OriginalName)
	folder := path.Join(u.folder, path.Dir(key))
	if folder == "." {
		folder = ""
	}
	publicID := strings.TrimSuffix(path.Base(key), path.Ext(key))

	params := uploader.UploadParams{
		Folder:       folder,
		PublicID:     publicID,
		ResourceType: "auto",
	}

	result, err := u.client.Upload.Upload(ctx, bytes.NewReader(data), params)
	if err != nil {
		return StoredFile{}, fmt.Errorf("failed to upload asset: %w", err)
	}

	u.logger.Info().Str("public_id", result.PublicID).Int64("size", opts.Size).Msg("file uploaded to cloudinary")

	return StoredFile{Path: result.SecureURL, OriginalName: opts.OriginalName}, nil
}
