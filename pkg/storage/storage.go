package storage

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// UploadOptions describes the file being stored.
type UploadOptions struct {
	OriginalName string
	MimeType     string
	Size         int64
	// Directory groups objects, e.g. "submissions/12".
	Directory string
}

// StoredFile is the location of a persisted object.
type StoredFile struct {
	Path         string
	OriginalName string
}

// Uploader persists file contents to a backing store.
type Uploader interface {
	Upload(ctx context.Context, data []byte, opts UploadOptions) (StoredFile, error)
}

// Provider names accepted by configuration.
const (
	ProviderLocal      = "local"
	ProviderCloudinary = "cloudinary"
	ProviderMinIO      = "minio"
)

// ObjectKey derives a collision free key from the directory and original name.
func ObjectKey(directory, originalName string) string {
	base := SanitizeFileName(originalName)
	ext := strings.ToLower(filepath.Ext(base))
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = "file"
	}

	name := fmt.Sprintf("%s-%s%s", stem, uuid.NewString()[:8], ext)
	directory = strings.Trim(strings.ReplaceAll(directory, "\\", "/"), "/")
	if directory == "" {
		return name
	}
	return path.Join(directory, name)
}

// SanitizeFileName strips path components and characters unsafe for object keys.
func SanitizeFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, name)
	return strings.Trim(cleaned, "-.")
}
