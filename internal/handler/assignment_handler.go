package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/coursework-api/internal/dto"
	"github.com/noah-isme/coursework-api/internal/middleware"
	"github.com/noah-isme/coursework-api/internal/service"
	"github.com/noah-isme/coursework-api/internal/utils"
)

// AssignmentHandler wires assignment HTTP routes.
type AssignmentHandler struct {
	service       service.AssignmentService
	maxUploadSize int64
	logger        zerolog.Logger
}

// NewAssignmentHandler constructs the handler.
func NewAssignmentHandler(service service.AssignmentService, maxUploadSize int64, logger zerolog.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		service:       service,
		maxUploadSize: maxUploadSize,
		logger:        logger.With().Str("component", "assignment_handler").Logger(),
	}
}

// RegisterCourseRoutes attaches /courses/:courseId/assignments endpoints.
func (h *AssignmentHandler) RegisterCourseRoutes(router fiber.Router) {
	router.Get("/:courseId/assignments", middleware.WithAuth(h.list, middleware.AuthOptions{Role: middleware.AuthRoleAny, RequireUser: true}))
	router.Post("/:courseId/assignments", middleware.WithAuth(h.create, middleware.AuthOptions{Role: middleware.AuthRoleStaff}))
}

// Register attaches /assignments/:id endpoints to the router group.
func (h *AssignmentHandler) Register(router fiber.Router) {
	router.Get("/:id", middleware.WithAuth(h.get, middleware.AuthOptions{Role: middleware.AuthRoleAny, RequireUser: true}))
	router.Patch("/:id", middleware.WithAuth(h.update, middleware.AuthOptions{Role: middleware.AuthRoleStaff}))
	router.Delete("/:id", middleware.WithAuth(h.delete, middleware.AuthOptions{Role: middleware.AuthRoleStaff}))
}

func (h *AssignmentHandler) list(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseId")
	if err != nil {
		return badRequest(c, "invalid course id")
	}

	req := dto.AssignmentListRequest{
		Search:   strings.TrimSpace(c.Query("search")),
		Sort:     c.Query("sort"),
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", 20),
	}

	assignments, err := h.service.ListByCourse(c.UserContext(), courseID, req)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.OK(c, assignments.Items, "assignments retrieved", assignments.Pagination)
}

func (h *AssignmentHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, "invalid assignment id")
	}

	assignment, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "assignment retrieved", assignment)
}

func (h *AssignmentHandler) create(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseId")
	if err != nil {
		return badRequest(c, "invalid course id")
	}

	var (
		payload    dto.AssignmentCreateRequest
		attachment *dto.UploadedFile
	)

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		payload = dto.AssignmentCreateRequest{
			Title:               c.FormValue("title"),
			Description:         c.FormValue("description"),
			DueDate:             c.FormValue("due_date"),
			SubmissionType:      strings.ToUpper(strings.TrimSpace(c.FormValue("submission_type"))),
			AcceptedFileFormats: splitAndTrim(c.FormValue("accepted_file_formats")),
		}
		attachment, err = readUpload(c, "attachment", h.maxUploadSize)
		if err != nil {
			return respondError(c, h.logger, err)
		}
	} else if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid request body")
	}

	assignment, err := h.service.Create(c.UserContext(), courseID, activityActorFromContext(c), payload, attachment)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "assignment created", assignment)
}

func (h *AssignmentHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, "invalid assignment id")
	}

	var payload dto.AssignmentUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid request body")
	}

	assignment, err := h.service.Update(c.UserContext(), id, activityActorFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "assignment updated", assignment)
}

func (h *AssignmentHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, "invalid assignment id")
	}

	if err := h.service.Delete(c.UserContext(), id, activityActorFromContext(c)); err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "assignment deleted", fiber.Map{"id": id})
}
