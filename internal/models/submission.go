package models

import (
	"math"
	"strings"
	"time"

	apperrors "github.com/noah-isme/coursework-api/pkg/errors"
)

// SubmissionStatus tracks where a submission is in its lifecycle.
type SubmissionStatus string

const (
	// SubmissionStatusNotSubmitted indicates a placeholder without student content.
	SubmissionStatusNotSubmitted SubmissionStatus = "NOT_SUBMITTED"
	// SubmissionStatusSubmitted indicates the submission has been handed in but not graded.
	SubmissionStatusSubmitted SubmissionStatus = "SUBMITTED"
	// SubmissionStatusGraded indicates the submission has been evaluated.
	SubmissionStatusGraded SubmissionStatus = "GRADED"
)

// Valid reports whether the status is one of the known values.
func (s SubmissionStatus) Valid() bool {
	switch s {
	case SubmissionStatusNotSubmitted, SubmissionStatusSubmitted, SubmissionStatusGraded:
		return true
	default:
		return false
	}
}

const (
	// MinGrade is the lowest grade a submission may receive.
	MinGrade = 0.0
	// MaxGrade is the highest grade a submission may receive.
	MaxGrade = 100.0
)

const versionConflictMessage = "Submission was modified by another user, reload and try again"

// Submission represents one student's attempt at an assignment.
type Submission struct {
	ID           uint                     `gorm:"primaryKey" json:"id"`
	AssignmentID uint                     `gorm:"not null;uniqueIndex:idx_submission_assignment_student" json:"assignment_id"`
	StudentID    uint                     `gorm:"not null;uniqueIndex:idx_submission_assignment_student" json:"student_id"`
	Content      string                   `gorm:"type:text" json:"content"`
	FilePath     string                   `gorm:"size:512" json:"file_path"`
	FileName     string                   `gorm:"size:255" json:"file_name"`
	Grade        *float64                 `json:"grade"`
	Feedback     string                   `gorm:"type:text" json:"feedback"`
	IsLate       bool                     `gorm:"not null;default:false" json:"is_late"`
	Status       SubmissionStatus         `gorm:"size:32;not null" json:"status"`
	Version      int                      `gorm:"not null;default:0" json:"version"`
	SubmittedAt  *time.Time               `json:"submitted_at"`
	GradedAt     *time.Time               `json:"graded_at"`
	GradedBy     *uint                    `json:"graded_by"`
	CreatedAt    time.Time                `json:"created_at"`
	UpdatedAt    time.Time                `json:"updated_at"`
	Assignment   Assignment               `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Student      User                     `gorm:"foreignKey:StudentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	History      []SubmissionGradeHistory `gorm:"foreignKey:SubmissionID" json:"-"`
}

// SubmissionContent is the student supplied payload of a submission.
type SubmissionContent struct {
	Text     string
	FilePath string
	FileName string
}

// NewSubmissionParams describes a submission being created.
type NewSubmissionParams struct {
	AssignmentID uint
	StudentID    uint
	Content      SubmissionContent
	// Submitted creates the submission directly in SUBMITTED state.
	Submitted bool
	IsLate    bool
}

// NewSubmission builds a submission at version 0, either as an empty
// NOT_SUBMITTED placeholder or as a first SUBMITTED attempt.
func NewSubmission(params NewSubmissionParams, now time.Time) (*Submission, error) {
	if params.AssignmentID == 0 || params.StudentID == 0 {
		return nil, apperrors.Validation("Assignment and student are required")
	}

	submission := &Submission{
		AssignmentID: params.AssignmentID,
		StudentID:    params.StudentID,
		Status:       SubmissionStatusNotSubmitted,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	submission.applyContent(params.Content)

	if params.Submitted {
		if err := submission.Submit(params.IsLate, now); err != nil {
			return nil, err
		}
	}

	return submission, nil
}

// ReconstituteSubmission validates a row loaded from storage.
func ReconstituteSubmission(row Submission) (*Submission, error) {
	if !row.Status.Valid() {
		return nil, apperrors.Validation("Submission status is invalid")
	}
	if row.Version < 0 {
		return nil, apperrors.Validation("Submission version must not be negative")
	}
	if row.Status == SubmissionStatusGraded && row.Grade == nil {
		return nil, apperrors.Validation("Graded submission must carry a grade")
	}
	if row.Grade != nil {
		if err := ValidateGrade(*row.Grade); err != nil {
			return nil, err
		}
	}
	return &row, nil
}

// IsGraded reports whether the submission has a final grade.
func (s *Submission) IsGraded() bool {
	return s.Status == SubmissionStatusGraded
}

// Submit hands in a NOT_SUBMITTED submission. The version is not bumped.
func (s *Submission) Submit(isLate bool, now time.Time) error {
	if s.Status != SubmissionStatusNotSubmitted {
		return apperrors.StateConflict("Submission has already been submitted")
	}
	s.Status = SubmissionStatusSubmitted
	s.IsLate = isLate
	s.SubmittedAt = timePointer(now)
	s.UpdatedAt = now
	return nil
}

// Resubmit refreshes the submission timestamp and lateness of a SUBMITTED
// submission and bumps its version.
func (s *Submission) Resubmit(isLate bool, now time.Time, expectedVersion *int) error {
	if err := s.checkVersion(expectedVersion); err != nil {
		return err
	}
	switch s.Status {
	case SubmissionStatusGraded:
		return apperrors.StateConflict("Cannot resubmit after grading has started")
	case SubmissionStatusNotSubmitted:
		return apperrors.StateConflict("Cannot resubmit before the first submission")
	}

	s.IsLate = isLate
	s.SubmittedAt = timePointer(now)
	s.UpdatedAt = now
	s.Version++
	return nil
}

// UpdateContent replaces the student content. Graded submissions are frozen.
func (s *Submission) UpdateContent(content SubmissionContent, now time.Time) error {
	if s.Status == SubmissionStatusGraded {
		return apperrors.StateConflict("Cannot update submission content after grading has started")
	}
	s.applyContent(content)
	s.UpdatedAt = now
	return nil
}

// AssignGrade records a grade and moves the submission to GRADED.
// Checks run in order: expected version, grade value, status.
func (s *Submission) AssignGrade(grade float64, feedback *string, graderID uint, now time.Time, expectedVersion *int) error {
	if err := s.checkVersion(expectedVersion); err != nil {
		return err
	}
	if err := ValidateGrade(grade); err != nil {
		return err
	}
	if s.Status == SubmissionStatusNotSubmitted {
		return apperrors.StateConflict("Cannot grade an unsubmitted item")
	}

	s.applyGrade(grade, feedback, graderID, now)
	s.Status = SubmissionStatusGraded
	s.Version++
	return nil
}

// UpdateGrade replaces the grade of an already graded submission.
// Checks run in order: expected version, grade value, status.
func (s *Submission) UpdateGrade(grade float64, feedback *string, graderID uint, now time.Time, expectedVersion *int) error {
	if err := s.checkVersion(expectedVersion); err != nil {
		return err
	}
	if err := ValidateGrade(grade); err != nil {
		return err
	}
	if s.Status != SubmissionStatusGraded {
		return apperrors.StateConflict("Cannot update a grade that was never assigned")
	}

	s.applyGrade(grade, feedback, graderID, now)
	s.Version++
	return nil
}

// ValidateGrade accepts finite grades within [MinGrade, MaxGrade].
func ValidateGrade(grade float64) error {
	if math.IsNaN(grade) || math.IsInf(grade, 0) {
		return apperrors.Validation("Grade must be a number")
	}
	if grade < MinGrade || grade > MaxGrade {
		return apperrors.Validation("Grade must be between 0 and 100")
	}
	return nil
}

func (s *Submission) checkVersion(expected *int) error {
	if expected == nil {
		return nil
	}
	if *expected != s.Version {
		return apperrors.ConcurrentModification(versionConflictMessage)
	}
	return nil
}

func (s *Submission) applyGrade(grade float64, feedback *string, graderID uint, now time.Time) {
	value := grade
	s.Grade = &value
	if feedback != nil {
		s.Feedback = strings.TrimSpace(*feedback)
	}
	if graderID != 0 {
		grader := graderID
		s.GradedBy = &grader
	}
	s.GradedAt = timePointer(now)
	s.UpdatedAt = now
}

func (s *Submission) applyContent(content SubmissionContent) {
	s.Content = content.Text
	if content.FilePath != "" {
		s.FilePath = content.FilePath
		s.FileName = content.FileName
	}
}

func timePointer(t time.Time) *time.Time {
	return &t
}
