package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"

	apperrors "github.com/noah-isme/coursework-api/pkg/errors"
)

// SubmissionType declares which content a submission must carry.
type SubmissionType string

const (
	// SubmissionTypeFile requires an uploaded file.
	SubmissionTypeFile SubmissionType = "FILE"
	// SubmissionTypeText requires non-empty text content.
	SubmissionTypeText SubmissionType = "TEXT"
	// SubmissionTypeBoth requires a file and text content.
	SubmissionTypeBoth SubmissionType = "BOTH"
)

// Valid reports whether the submission type is one of the known values.
func (t SubmissionType) Valid() bool {
	switch t {
	case SubmissionTypeFile, SubmissionTypeText, SubmissionTypeBoth:
		return true
	default:
		return false
	}
}

// AllowsFiles reports whether submissions of this type carry a file.
func (t SubmissionType) AllowsFiles() bool {
	return t == SubmissionTypeFile || t == SubmissionTypeBoth
}

// RequiresText reports whether submissions of this type carry text content.
func (t SubmissionType) RequiresText() bool {
	return t == SubmissionTypeText || t == SubmissionTypeBoth
}

// Assignment represents a gradable unit of coursework owned by a course.
type Assignment struct {
	ID                  uint                        `gorm:"primaryKey" json:"id"`
	CourseID            uint                        `gorm:"not null;index" json:"course_id"`
	Title               string                      `gorm:"size:255;not null" json:"title"`
	Description         string                      `gorm:"type:text;not null" json:"description"`
	DueDate             time.Time                   `gorm:"not null" json:"due_date"`
	SubmissionType      SubmissionType              `gorm:"size:16;not null" json:"submission_type"`
	AcceptedFileFormats datatypes.JSONSlice[string] `json:"accepted_file_formats"`
	GradingStarted      bool                        `gorm:"not null;default:false" json:"grading_started"`
	FileURL             string                      `gorm:"size:512" json:"file_url"`
	CreatedAt           time.Time                   `json:"created_at"`
	UpdatedAt           time.Time                   `json:"updated_at"`
	Submissions         []Submission                `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// NewAssignmentParams carries the teacher supplied fields for a new assignment.
type NewAssignmentParams struct {
	CourseID            uint
	Title               string
	Description         string
	DueDate             time.Time
	SubmissionType      SubmissionType
	AcceptedFileFormats []string
	FileURL             string
}

// NewAssignment validates params and builds a fresh assignment. The due date
// must lie after now.
func NewAssignment(params NewAssignmentParams, now time.Time) (*Assignment, error) {
	assignment := &Assignment{
		CourseID:            params.CourseID,
		Title:               strings.TrimSpace(params.Title),
		Description:         strings.TrimSpace(params.Description),
		DueDate:             params.DueDate,
		SubmissionType:      params.SubmissionType,
		AcceptedFileFormats: normalizeFormats(params.AcceptedFileFormats),
		FileURL:             strings.TrimSpace(params.FileURL),
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := assignment.checkInvariants(); err != nil {
		return nil, err
	}
	if err := requireFutureDueDate(params.DueDate, now); err != nil {
		return nil, err
	}

	return assignment, nil
}

// ReconstituteAssignment validates a row loaded from storage. Historic rows
// legitimately carry past due dates, so that rule is not applied here.
func ReconstituteAssignment(row Assignment) (*Assignment, error) {
	if err := row.checkInvariants(); err != nil {
		return nil, err
	}
	return &row, nil
}

func (a *Assignment) checkInvariants() error {
	if err := validateTitle(a.Title); err != nil {
		return err
	}
	if err := validateDescription(a.Description); err != nil {
		return err
	}
	if !a.SubmissionType.Valid() {
		return apperrors.Validation("Submission type must be one of FILE, TEXT or BOTH")
	}
	return nil
}

// IsPastDueDate reports whether now is after the due date.
func (a *Assignment) IsPastDueDate(now time.Time) bool {
	return now.After(a.DueDate)
}

// IsSubmissionLate reports whether a submission made at now counts as late.
func (a *Assignment) IsSubmissionLate(now time.Time) bool {
	return now.After(a.DueDate)
}

// CanAcceptSubmissions reports whether students may still submit or resubmit.
func (a *Assignment) CanAcceptSubmissions() bool {
	return !a.GradingStarted
}

// AcceptsExtension reports whether a file extension (with or without the dot)
// is listed in the accepted formats. An empty list accepts everything.
func (a *Assignment) AcceptsExtension(ext string) bool {
	if len(a.AcceptedFileFormats) == 0 {
		return true
	}
	ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
	for _, format := range a.AcceptedFileFormats {
		if format == ext {
			return true
		}
	}
	return false
}

// UpdateTitle replaces the title while the edit window is open.
func (a *Assignment) UpdateTitle(title string, now time.Time) error {
	title = strings.TrimSpace(title)
	if err := validateTitle(title); err != nil {
		return err
	}
	if err := a.ensureEditable(now); err != nil {
		return err
	}
	a.Title = title
	a.UpdatedAt = now
	return nil
}

// UpdateDescription replaces the description while the edit window is open.
func (a *Assignment) UpdateDescription(description string, now time.Time) error {
	description = strings.TrimSpace(description)
	if err := validateDescription(description); err != nil {
		return err
	}
	if err := a.ensureEditable(now); err != nil {
		return err
	}
	a.Description = description
	a.UpdatedAt = now
	return nil
}

// UpdateDueDate moves the deadline while the edit window is open. The new date
// must be in the future.
func (a *Assignment) UpdateDueDate(dueDate time.Time, now time.Time) error {
	if err := requireFutureDueDate(dueDate, now); err != nil {
		return err
	}
	if err := a.ensureEditable(now); err != nil {
		return err
	}
	a.DueDate = dueDate
	a.UpdatedAt = now
	return nil
}

// StartGrading locks the assignment against further edits and submissions.
// The transition is one-way.
func (a *Assignment) StartGrading(now time.Time) error {
	if a.GradingStarted {
		return apperrors.StateConflict("Grading has already started for this assignment")
	}
	a.GradingStarted = true
	a.UpdatedAt = now
	return nil
}

func (a *Assignment) ensureEditable(now time.Time) error {
	if a.IsPastDueDate(now) {
		return apperrors.StateConflict("Cannot edit assignment after due date")
	}
	if a.GradingStarted {
		return apperrors.StateConflict("Cannot edit assignment after grading has started")
	}
	return nil
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return apperrors.Validation("Title is required")
	}
	return nil
}

func validateDescription(description string) error {
	if strings.TrimSpace(description) == "" {
		return apperrors.Validation("Description is required")
	}
	return nil
}

func requireFutureDueDate(dueDate, now time.Time) error {
	if dueDate.IsZero() {
		return apperrors.Validation("Due date is required")
	}
	if !dueDate.After(now) {
		return apperrors.Validation("Due date must be in the future")
	}
	return nil
}

func normalizeFormats(formats []string) datatypes.JSONSlice[string] {
	if len(formats) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(formats))
	result := make(datatypes.JSONSlice[string], 0, len(formats))
	for _, format := range formats {
		normalized := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(format)), ".")
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		result = append(result, normalized)
	}
	return result
}
