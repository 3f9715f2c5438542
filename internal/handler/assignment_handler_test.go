package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coursework-api/internal/dto"
	"github.com/noah-isme/coursework-api/internal/handler"
	"github.com/noah-isme/coursework-api/internal/service"
	apperrors "github.com/noah-isme/coursework-api/pkg/errors"
)

type stubAssignmentService struct {
	createCourse  uint
	createPayload dto.AssignmentCreateRequest
	attachment    *dto.UploadedFile
	updatePayload dto.AssignmentUpdateRequest
	deleted       []uint
	actor         service.ActivityActor
	err           error
}

func (s *stubAssignmentService) ListByCourse(_ context.Context, courseID uint, req dto.AssignmentListRequest) (dto.AssignmentListResponse, error) {
	return dto.AssignmentListResponse{
		Items:      []dto.AssignmentResponse{{ID: 1, CourseID: courseID, Title: req.Search}},
		Pagination: dto.NewPaginationMeta(req.Page, req.PageSize, 1),
	}, s.err
}

func (s *stubAssignmentService) Get(_ context.Context, id uint) (dto.AssignmentResponse, error) {
	if s.err != nil {
		return dto.AssignmentResponse{}, s.err
	}
	return dto.AssignmentResponse{ID: id}, nil
}

func (s *stubAssignmentService) Create(_ context.Context, courseID uint, actor service.ActivityActor, payload dto.AssignmentCreateRequest, attachment *dto.UploadedFile) (dto.AssignmentResponse, error) {
	s.createCourse = courseID
	s.createPayload = payload
	s.attachment = attachment
	s.actor = actor
	if s.err != nil {
		return dto.AssignmentResponse{}, s.err
	}
	return dto.AssignmentResponse{ID: 5, CourseID: courseID, Title: payload.Title}, nil
}

func (s *stubAssignmentService) Update(_ context.Context, id uint, actor service.ActivityActor, payload dto.AssignmentUpdateRequest) (dto.AssignmentResponse, error) {
	s.updatePayload = payload
	s.actor = actor
	if s.err != nil {
		return dto.AssignmentResponse{}, s.err
	}
	return dto.AssignmentResponse{ID: id}, nil
}

func (s *stubAssignmentService) Delete(_ context.Context, id uint, actor service.ActivityActor) error {
	s.deleted = append(s.deleted, id)
	s.actor = actor
	return s.err
}

var _ service.AssignmentService = (*stubAssignmentService)(nil)

func assignmentApp(svc service.AssignmentService, userID uint, role string) *fiber.App {
	app := fiber.New()
	auth := func(c *fiber.Ctx) error {
		c.Locals("user_id", userID)
		c.Locals("user_role", role)
		return c.Next()
	}
	h := handler.NewAssignmentHandler(svc, 1<<20, zerolog.Nop())
	h.RegisterCourseRoutes(app.Group("/api/v2/courses", auth))
	h.Register(app.Group("/api/v2/assignments", auth))
	return app
}

func TestAssignmentHandlerCreateFromJSON(t *testing.T) {
	svc := &stubAssignmentService{}
	app := assignmentApp(svc, 10, "teacher")

	body, err := json.Marshal(map[string]interface{}{
		"title":                 "Essay",
		"description":           "Write about waves",
		"due_date":              "2026-03-05T09:00:00Z",
		"submission_type":       "FILE",
		"accepted_file_formats": []string{"pdf", "docx"},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v2/courses/3/assignments", bytes.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	require.Equal(t, uint(3), svc.createCourse)
	require.Equal(t, "Essay", svc.createPayload.Title)
	require.Equal(t, []string{"pdf", "docx"}, svc.createPayload.AcceptedFileFormats)
	require.Nil(t, svc.attachment)
	require.Equal(t, service.ActivityActor{ID: 10, Role: "teacher"}, svc.actor)
}

func TestAssignmentHandlerCreateFromMultipart(t *testing.T) {
	svc := &stubAssignmentService{}
	app := assignmentApp(svc, 10, "teacher")

	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	require.NoError(t, writer.WriteField("title", "Lab"))
	require.NoError(t, writer.WriteField("description", "Pendulum"))
	require.NoError(t, writer.WriteField("due_date", "2026-03-05T09:00:00Z"))
	require.NoError(t, writer.WriteField("submission_type", "both"))
	require.NoError(t, writer.WriteField("accepted_file_formats", "pdf, png ,"))
	part, err := writer.CreateFormFile("attachment", "brief.pdf")
	require.NoError(t, err)
	_, err = part.Write(flowPDF)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v2/courses/3/assignments", buf)
	req.Header.Set(fiber.HeaderContentType, writer.FormDataContentType())
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	require.Equal(t, "BOTH", svc.createPayload.SubmissionType)
	require.Equal(t, []string{"pdf", "png"}, svc.createPayload.AcceptedFileFormats)
	require.NotNil(t, svc.attachment)
	require.Equal(t, "brief.pdf", svc.attachment.Name)
	require.Equal(t, flowPDF, svc.attachment.Data)
}

func TestAssignmentHandlerStudentCannotWrite(t *testing.T) {
	svc := &stubAssignmentService{}
	app := assignmentApp(svc, 20, "student")

	req := httptest.NewRequest(http.MethodDelete, "/api/v2/assignments/4", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	require.Empty(t, svc.deleted)

	req = httptest.NewRequest(http.MethodGet, "/api/v2/assignments/4", nil)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestAssignmentHandlerMapsServiceErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "not found", err: apperrors.NotFound("Assignment not found"), status: fiber.StatusNotFound, code: apperrors.CodeNotFound},
		{name: "edit window", err: apperrors.StateConflict("Assignment can no longer be edited"), status: fiber.StatusBadRequest, code: apperrors.CodeStateConflict},
		{name: "forbidden", err: apperrors.Forbidden("not your course"), status: fiber.StatusForbidden, code: apperrors.CodeForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := assignmentApp(&stubAssignmentService{err: tc.err}, 10, "teacher")

			req := httptest.NewRequest(http.MethodPatch, "/api/v2/assignments/4", bytes.NewReader([]byte(`{"title":"New"}`)))
			req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)

			var payload envelope
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
			resp.Body.Close()
			require.Equal(t, tc.code, payload.Code)
			require.Equal(t, tc.err.(*apperrors.Error).Message, payload.Message)
		})
	}
}

func TestAssignmentHandlerListPassesQuery(t *testing.T) {
	app := assignmentApp(&stubAssignmentService{}, 20, "student")

	req := httptest.NewRequest(http.MethodGet, "/api/v2/courses/3/assignments?search=lab&page=2&page_size=5", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	resp.Body.Close()

	var meta dto.PaginationMeta
	require.NoError(t, json.Unmarshal(payload.Meta, &meta))
	require.Equal(t, 2, meta.Page)
	require.Equal(t, 5, meta.PageSize)

	req = httptest.NewRequest(http.MethodGet, "/api/v2/courses/zero/assignments", nil)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
