package dto

import (
	"time"

	"github.com/noah-isme/coursework-api/internal/models"
)

// SubmissionCreateRequest describes the multipart text fields of a submission.
type SubmissionCreateRequest struct {
	Content string `form:"content" validate:"omitempty,max=100000"`
}

// UploadedFile is a multipart file read fully into memory.
type UploadedFile struct {
	Name     string
	MimeType string
	Size     int64
	Data     []byte
}

// GradeSubmissionRequest is the grading payload. Grade stays a pointer so a
// missing value is distinguishable from zero.
type GradeSubmissionRequest struct {
	Grade           *float64 `json:"grade" validate:"required"`
	Feedback        *string  `json:"feedback" validate:"omitempty,max=5000"`
	ExpectedVersion *int     `json:"expected_version" validate:"omitempty,gte=0"`
}

// SubmissionFilter describes query string filters for listing submissions.
type SubmissionFilter struct {
	AssignmentID *uint   `query:"assignment_id"`
	StudentID    *uint   `query:"student_id"`
	CourseID     *uint   `query:"course_id"`
	Status       *string `query:"status" validate:"omitempty,oneof=NOT_SUBMITTED SUBMITTED GRADED"`
	Page         int     `query:"page" validate:"omitempty,gte=1"`
	PageSize     int     `query:"page_size" validate:"omitempty,gte=1,lte=100"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID           uint                             `json:"id"`
	AssignmentID uint                             `json:"assignment_id"`
	StudentID    uint                             `json:"student_id"`
	Content      string                           `json:"content"`
	FileURL      string                           `json:"file_url"`
	FileName     string                           `json:"file_name"`
	Status       string                           `json:"status"`
	IsLate       bool                             `json:"is_late"`
	Version      int                              `json:"version"`
	Grade        *float64                         `json:"grade"`
	Feedback     string                           `json:"feedback"`
	GradedBy     *uint                            `json:"graded_by"`
	GradedAt     *time.Time                       `json:"graded_at"`
	SubmittedAt  *time.Time                       `json:"submitted_at"`
	History      []SubmissionGradeHistoryResponse `json:"history,omitempty"`
	CreatedAt    time.Time                        `json:"created_at"`
	UpdatedAt    time.Time                        `json:"updated_at"`
	Assignment   *AssignmentLite                  `json:"assignment,omitempty"`
	Student      *StudentLite                     `json:"student,omitempty"`
}

// SubmissionListResponse wraps a page of submissions.
type SubmissionListResponse struct {
	Items      []SubmissionResponse `json:"items"`
	Pagination PaginationMeta       `json:"pagination"`
}

// AssignmentLite summarizes an assignment in submission responses.
type AssignmentLite struct {
	ID      uint      `json:"id"`
	Title   string    `json:"title"`
	DueDate time.Time `json:"due_date"`
}

// SubmissionGradeHistoryResponse serializes grading history entries.
type SubmissionGradeHistoryResponse struct {
	Score    float64   `json:"score"`
	Feedback string    `json:"feedback"`
	GradedBy uint      `json:"graded_by"`
	GradedAt time.Time `json:"graded_at"`
	Version  int       `json:"version"`
}

// StudentLite summarizes a student without exposing full profile data.
type StudentLite struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	response := SubmissionResponse{
		ID:           model.ID,
		AssignmentID: model.AssignmentID,
		StudentID:    model.StudentID,
		Content:      model.Content,
		FileURL:      model.FilePath,
		FileName:     model.FileName,
		Status:       string(model.Status),
		IsLate:       model.IsLate,
		Version:      model.Version,
		Grade:        model.Grade,
		Feedback:     model.Feedback,
		GradedBy:     model.GradedBy,
		GradedAt:     model.GradedAt,
		SubmittedAt:  model.SubmittedAt,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}

	if model.Assignment.ID != 0 {
		response.Assignment = &AssignmentLite{
			ID:      model.Assignment.ID,
			Title:   model.Assignment.Title,
			DueDate: model.Assignment.DueDate,
		}
	}

	if model.Student.ID != 0 {
		response.Student = &StudentLite{
			ID:    model.Student.ID,
			Name:  model.Student.Name,
			Email: model.Student.Email,
		}
	}

	if len(model.History) > 0 {
		history := make([]SubmissionGradeHistoryResponse, 0, len(model.History))
		for _, entry := range model.History {
			history = append(history, SubmissionGradeHistoryResponse{
				Score:    entry.Score,
				Feedback: entry.Feedback,
				GradedBy: entry.GradedBy,
				GradedAt: entry.GradedAt,
				Version:  entry.Version,
			})
		}
		response.History = history
	}

	return response
}

// NewSubmissionResponseSlice converts submission models into DTOs.
func NewSubmissionResponseSlice(models []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(models))
	for _, submission := range models {
		responses = append(responses, NewSubmissionResponse(submission))
	}

	return responses
}
