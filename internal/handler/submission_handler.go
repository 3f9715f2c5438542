package handler

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/coursework-api/internal/dto"
	"github.com/noah-isme/coursework-api/internal/middleware"
	"github.com/noah-isme/coursework-api/internal/service"
	"github.com/noah-isme/coursework-api/internal/utils"
)

// SubmissionHandler manages submission endpoints.
type SubmissionHandler struct {
	service       service.SubmissionService
	grading       service.GradingService
	maxUploadSize int64
	logger        zerolog.Logger
}

// NewSubmissionHandler builds a submission handler instance.
func NewSubmissionHandler(submissions service.SubmissionService, grading service.GradingService, maxUploadSize int64, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service:       submissions,
		grading:       grading,
		maxUploadSize: maxUploadSize,
		logger:        logger.With().Str("component", "submission_handler").Logger(),
	}
}

// Register attaches the /submissions routes to the provided router group.
func (h *SubmissionHandler) Register(router fiber.Router) {
	router.Get("", middleware.WithAuth(h.list, middleware.AuthOptions{Role: middleware.AuthRoleAny, RequireUser: true}))
	router.Get("/:id", middleware.WithAuth(h.get, middleware.AuthOptions{Role: middleware.AuthRoleAny, RequireUser: true}))
	router.Patch("/:id/grade", middleware.WithAuth(h.grade, middleware.AuthOptions{Role: middleware.AuthRoleStaff}))
}

// RegisterSubmit attaches the submit route below an assignment group.
func (h *SubmissionHandler) RegisterSubmit(router fiber.Router, guards ...fiber.Handler) {
	handlers := append([]fiber.Handler{}, guards...)
	handlers = append(handlers, middleware.WithAuth(h.submit, middleware.AuthOptions{Role: middleware.AuthRoleStudent}))
	router.Post("/:id/submissions", handlers...)
}

func (h *SubmissionHandler) submit(c *fiber.Ctx) error {
	assignmentID, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, "invalid assignment id")
	}

	payload := dto.SubmissionCreateRequest{Content: c.FormValue("content")}
	file, err := readUpload(c, "file", h.maxUploadSize)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	submission, err := h.service.Submit(c.UserContext(), assignmentID, activityActorFromContext(c), payload, file)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submission accepted", submission)
}

func (h *SubmissionHandler) list(c *fiber.Ctx) error {
	filter := dto.SubmissionFilter{}
	for key, target := range map[string]**uint{
		"assignment_id": &filter.AssignmentID,
		"student_id":    &filter.StudentID,
		"course_id":     &filter.CourseID,
	} {
		value, err := parseQueryUint(c, key)
		if err != nil {
			return badRequest(c, "invalid "+key)
		}
		*target = value
	}
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		status = strings.ToUpper(status)
		filter.Status = &status
	}

	filter.Page = c.QueryInt("page", 1)
	filter.PageSize = c.QueryInt("page_size", 20)

	submissions, err := h.service.List(c.UserContext(), filter, activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.OK(c, submissions.Items, "submissions retrieved", submissions.Pagination)
}

func (h *SubmissionHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, "invalid submission id")
	}

	submission, err := h.service.Get(c.UserContext(), id, activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submission retrieved", submission)
}

func (h *SubmissionHandler) grade(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, "invalid submission id")
	}

	var payload dto.GradeSubmissionRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid request body")
	}

	submission, err := h.grading.Grade(c.UserContext(), id, activityActorFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submission graded", submission)
}

func parseQueryUint(c *fiber.Ctx, key string) (*uint, error) {
	value := c.Query(key)
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return nil, err
	}
	result := uint(parsed)
	return &result, nil
}
