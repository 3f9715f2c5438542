package handler

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/coursework-api/internal/dto"
	"github.com/noah-isme/coursework-api/internal/middleware"
	"github.com/noah-isme/coursework-api/internal/service"
	"github.com/noah-isme/coursework-api/internal/utils"
	apperrors "github.com/noah-isme/coursework-api/pkg/errors"
)

func splitAndTrim(input string) []string {
	parts := strings.Split(input, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func parseUintParam(c *fiber.Ctx, key string) (uint, error) {
	value := strings.TrimSpace(c.Params(key))
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil || parsed == 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(parsed), nil
}

func userIDFromContext(c *fiber.Ctx) uint {
	if v := c.Locals("user_id"); v != nil {
		if id, ok := v.(uint); ok {
			return id
		}
		if id, ok := v.(int); ok {
			if id < 0 {
				return 0
			}
			return uint(id)
		}
	}
	return 0
}

func userRoleFromContext(c *fiber.Ctx) string {
	if v := c.Locals("user_role"); v != nil {
		if role, ok := v.(string); ok {
			return role
		}
	}
	return ""
}

func activityActorFromContext(c *fiber.Ctx) service.ActivityActor {
	return service.ActivityActor{
		ID:   userIDFromContext(c),
		Role: userRoleFromContext(c),
	}
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

// respondError renders any service error as {success:false, code, message}.
// Internal failures are logged with their cause and rendered generically.
func respondError(c *fiber.Ctx, base zerolog.Logger, err error) error {
	appErr := apperrors.FromError(err)
	message := appErr.Message

	if appErr.Status >= fiber.StatusInternalServerError {
		requestLogger(base, c).Error().
			Err(err).
			Str("code", appErr.Code).
			Str("route", c.Path()).
			Msg("request failed")
		message = apperrors.ErrInternal.Message
	} else if errors.Is(err, apperrors.ErrConcurrentModification) {
		requestLogger(base, c).Info().Str("route", c.Path()).Msg("rejected stale write")
	}

	return utils.SendErrorCode(c, appErr.Status, appErr.Code, message)
}

func badRequest(c *fiber.Ctx, message string) error {
	return utils.SendErrorCode(c, fiber.StatusBadRequest, apperrors.CodeValidation, message)
}

// readUpload loads an optional multipart file fully into memory. Files larger
// than limit are reported with their declared size only so the service can
// reject them without buffering the body twice.
func readUpload(c *fiber.Ctx, field string, limit int64) (*dto.UploadedFile, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return nil, nil
	}

	upload := &dto.UploadedFile{
		Name:     header.Filename,
		MimeType: header.Header.Get(fiber.HeaderContentType),
		Size:     header.Size,
	}
	if limit > 0 && header.Size > limit {
		return upload, nil
	}

	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	upload.Data = data
	return upload, nil
}
