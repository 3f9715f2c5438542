package service

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/noah-isme/coursework-api/internal/dto"
	"github.com/noah-isme/coursework-api/internal/models"
	apperrors "github.com/noah-isme/coursework-api/pkg/errors"
)

// MaxSubmissionFileSize is the ceiling for a single submission file.
const MaxSubmissionFileSize int64 = 10 << 20

// allowedSubmissionTypes maps accepted MIME types to their file extensions.
var allowedSubmissionTypes = map[string][]string{
	"application/pdf": {".pdf"},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {".docx"},
	"image/jpeg": {".jpg", ".jpeg"},
	"image/png":  {".png"},
}

// validateSubmissionFile applies the type and size rules to a submission file.
func validateSubmissionFile(file dto.UploadedFile, assignment *models.Assignment, maxSize int64) error {
	if maxSize <= 0 {
		maxSize = MaxSubmissionFileSize
	}
	size := file.Size
	if int64(len(file.Data)) > size {
		size = int64(len(file.Data))
	}
	if size == 0 {
		return apperrors.Validation("File is empty")
	}
	if size > maxSize {
		return apperrors.Validation("File exceeds maximum allowed size of 10 MiB")
	}

	declared := normalizeMimeType(file.MimeType)
	extensions, ok := allowedSubmissionTypes[declared]
	if !ok {
		return apperrors.Validation("File type not allowed, use PDF, DOCX, JPEG or PNG")
	}

	ext := strings.ToLower(filepath.Ext(file.Name))
	if !containsString(extensions, ext) {
		return apperrors.Validation("File extension does not match its type")
	}
	if !assignment.AcceptsExtension(ext) {
		return apperrors.Validation("File format is not accepted for this assignment")
	}

	detected := mimetype.Detect(file.Data)
	if !detectedAllowed(detected, declared) {
		return apperrors.Validation("File content does not match its declared type")
	}

	return nil
}

func detectedAllowed(detected *mimetype.MIME, declared string) bool {
	for mime := detected; mime != nil; mime = mime.Parent() {
		if mime.Is(declared) {
			return true
		}
	}
	return false
}

func normalizeMimeType(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if idx := strings.Index(value, ";"); idx >= 0 {
		value = strings.TrimSpace(value[:idx])
	}
	if value == "image/jpg" {
		return "image/jpeg"
	}
	return value
}

func containsString(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
