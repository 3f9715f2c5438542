package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// LocalUploader writes files below a directory on local disk.
type LocalUploader struct {
	root      string
	publicURL string
	logger    zerolog.Logger
}

// NewLocal constructs a disk backed uploader. publicURL prefixes returned
// paths and defaults to "/uploads".
func NewLocal(root, publicURL string, logger zerolog.Logger) (*LocalUploader, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("local storage root must be provided")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	publicURL = strings.TrimRight(publicURL, "/")
	if publicURL == "" {
		publicURL = "/uploads"
	}

	return &LocalUploader{
		root:      root,
		publicURL: publicURL,
		logger:    logger.With().Str("component", "local_storage").Logger(),
	}, nil
}

// Upload writes data to disk and returns its public path.
func (u *LocalUploader) Upload(ctx context.Context, data []byte, opts UploadOptions) (StoredFile, error) {
	if err := ctx.Err(); err != nil {
		return StoredFile{}, err
	}

	key := ObjectKey(opts.Directory, opts.OriginalName)
	dst := filepath.Join(u.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return StoredFile{}, fmt.Errorf("create upload directory: %w", err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return StoredFile{}, fmt.Errorf("write upload: %w", err)
	}

	u.logger.Debug().Str("key", key).Int("size", len(data)).Msg("file stored on disk")

	return StoredFile{Path: u.publicURL + "/" + key, OriginalName: opts.OriginalName}, nil
}
