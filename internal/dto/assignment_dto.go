package dto

import (
	"time"

	"github.com/noah-isme/coursework-api/internal/models"
)

const isoLayout = time.RFC3339

// AssignmentCreateRequest describes the payload for creating a new assignment.
type AssignmentCreateRequest struct {
	Title               string   `form:"title" json:"title" validate:"required,max=255"`
	Description         string   `form:"description" json:"description" validate:"required"`
	DueDate             string   `form:"due_date" json:"due_date" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	SubmissionType      string   `form:"submission_type" json:"submission_type" validate:"required,oneof=FILE TEXT BOTH"`
	AcceptedFileFormats []string `form:"accepted_file_formats" json:"accepted_file_formats" validate:"omitempty,dive,oneof=pdf docx jpg jpeg png .pdf .docx .jpg .jpeg .png"`
}

// ParsedDueDate returns the due date as time.Time.
func (r AssignmentCreateRequest) ParsedDueDate() (time.Time, error) {
	return time.Parse(isoLayout, r.DueDate)
}

// AssignmentUpdateRequest describes the payload for updating an assignment.
type AssignmentUpdateRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=255"`
	Description *string `json:"description"`
	DueDate     *string `json:"due_date" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

// AssignmentListRequest captures query filters for course assignment listings.
type AssignmentListRequest struct {
	Search   string `query:"search" validate:"omitempty,max=100"`
	Sort     string `query:"sort"`
	Page     int    `query:"page" validate:"omitempty,gte=1"`
	PageSize int    `query:"page_size" validate:"omitempty,gte=1,lte=100"`
}

// AssignmentResponse is the serialized representation returned to API clients.
type AssignmentResponse struct {
	ID                  uint      `json:"id"`
	CourseID            uint      `json:"course_id"`
	Title               string    `json:"title"`
	Description         string    `json:"description"`
	DueDate             time.Time `json:"due_date"`
	SubmissionType      string    `json:"submission_type"`
	AcceptedFileFormats []string  `json:"accepted_file_formats"`
	GradingStarted      bool      `json:"grading_started"`
	FileURL             string    `json:"file_url"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// AssignmentListResponse wraps a page of assignments.
type AssignmentListResponse struct {
	Items      []AssignmentResponse `json:"items"`
	Pagination PaginationMeta       `json:"pagination"`
}

// NewAssignmentResponse converts a model into a DTO.
func NewAssignmentResponse(model models.Assignment) AssignmentResponse {
	formats := []string(model.AcceptedFileFormats)
	if formats == nil {
		formats = []string{}
	}
	return AssignmentResponse{
		ID:                  model.ID,
		CourseID:            model.CourseID,
		Title:               model.Title,
		Description:         model.Description,
		DueDate:             model.DueDate,
		SubmissionType:      string(model.SubmissionType),
		AcceptedFileFormats: formats,
		GradingStarted:      model.GradingStarted,
		FileURL:             model.FileURL,
		CreatedAt:           model.CreatedAt,
		UpdatedAt:           model.UpdatedAt,
	}
}

// NewAssignmentResponseSlice converts a slice of models into DTOs.
func NewAssignmentResponseSlice(assignments []models.Assignment) []AssignmentResponse {
	responses := make([]AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, NewAssignmentResponse(assignment))
	}

	return responses
}
