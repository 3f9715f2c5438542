package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	apperrors "github.com/noah-isme/coursework-api/pkg/errors"
)

// validationError converts validator output into a VALIDATION_FAILED error.
func validationError(err error) error {
	return apperrors.Wrap(err, apperrors.CodeValidation, apperrors.ErrValidation.Status, validationMessage(err))
}

func validationMessage(err error) string {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return "Invalid request payload"
	}

	parts := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		parts = append(parts, fmt.Sprintf("%s failed on '%s'", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

// lookupError maps a repository lookup failure onto the domain taxonomy.
func lookupError(err error, notFoundMessage string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound(notFoundMessage)
	}
	var domainErr *apperrors.Error
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return apperrors.Internal(err, "failed to load "+strings.ToLower(strings.TrimSuffix(notFoundMessage, " not found")))
}

// persistError keeps typed errors from the repository and hides the rest.
func persistError(err error, message string) error {
	if err == nil {
		return nil
	}
	var domainErr *apperrors.Error
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return apperrors.Internal(err, message)
}
