package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/coursework-api/internal/middleware"
	"github.com/noah-isme/coursework-api/internal/service"
	"github.com/noah-isme/coursework-api/internal/utils"
	apperrors "github.com/noah-isme/coursework-api/pkg/errors"
)

// StudentDashboardHandler exposes the student dashboard endpoint.
type StudentDashboardHandler struct {
	service service.StudentDashboardService
	logger  zerolog.Logger
}

// NewStudentDashboardHandler creates a new handler instance.
func NewStudentDashboardHandler(service service.StudentDashboardService, logger zerolog.Logger) *StudentDashboardHandler {
	return &StudentDashboardHandler{
		service: service,
		logger:  logger.With().Str("component", "student_dashboard_handler").Logger(),
	}
}

// Register attaches the dashboard endpoint.
func (h *StudentDashboardHandler) Register(router fiber.Router) {
	router.Get("/dashboard", middleware.WithAuth(h.getDashboard, middleware.AuthOptions{Role: middleware.AuthRoleStudent}))
}

func (h *StudentDashboardHandler) getDashboard(c *fiber.Ctx) error {
	studentID := userIDFromContext(c)
	if studentID == 0 {
		return utils.SendErrorCode(c, fiber.StatusUnauthorized, apperrors.CodeUnauthorized, "missing user context")
	}

	dashboard, err := h.service.GetDashboard(c.UserContext(), studentID)
	if err != nil {
		return respondError(c, h.logger.With().Uint("student_id", studentID).Logger(), err)
	}

	return utils.SendSuccess(c, "dashboard retrieved", dashboard)
}
