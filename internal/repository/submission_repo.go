package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/coursework-api/internal/models"
	apperrors "github.com/noah-isme/coursework-api/pkg/errors"
)

const (
	submissionNotFoundMessage = "Submission not found"
	submissionConflictMessage = "Submission was modified by another user, reload and try again"
	duplicateSubmissionReason = "A submission for this assignment already exists, reload and try again"
)

// SubmissionFilter allows narrowing submission queries.
type SubmissionFilter struct {
	AssignmentID *uint
	StudentID    *uint
	CourseID     *uint
	Status       *models.SubmissionStatus
	Page         int
	PageSize     int
}

// SubmissionRepository defines data operations for submissions.
type SubmissionRepository interface {
	List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, int64, error)
	GetByID(ctx context.Context, id uint) (*models.Submission, error)
	GetByAssignmentAndStudent(ctx context.Context, assignmentID, studentID uint) (*models.Submission, error)
	Create(ctx context.Context, submission *models.Submission) error
	Update(ctx context.Context, submission *models.Submission, expectedVersion int) error
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Submission{})

	if filter.AssignmentID != nil {
		query = query.Where("submissions.assignment_id = ?", *filter.AssignmentID)
	}

	if filter.StudentID != nil {
		query = query.Where("submissions.student_id = ?", *filter.StudentID)
	}

	if filter.CourseID != nil {
		query = query.Where("submissions.assignment_id IN (?)",
			r.db.Model(&models.Assignment{}).Select("id").Where("course_id = ?", *filter.CourseID))
	}

	if filter.Status != nil {
		query = query.Where("submissions.status = ?", *filter.Status)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var submissions []models.Submission
	if err := query.
		Preload("Assignment").
		Preload("Student").
		Order("submissions.created_at DESC").
		Find(&submissions).Error; err != nil {
		return nil, 0, err
	}

	return submissions, total, nil
}

// GetByID loads and validates a submission. Missing rows return gorm.ErrRecordNotFound.
func (r *submissionRepository) GetByID(ctx context.Context, id uint) (*models.Submission, error) {
	var row models.Submission
	if err := r.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return nil, err
	}

	return reconstituteSubmission(row)
}

// reconstituteSubmission treats a stored row that breaks the entity rules as
// corrupt data rather than caller input.
func reconstituteSubmission(row models.Submission) (*models.Submission, error) {
	submission, err := models.ReconstituteSubmission(row)
	if err != nil {
		return nil, apperrors.Internal(err, "stored submission is invalid")
	}
	return submission, nil
}

func (r *submissionRepository) GetByAssignmentAndStudent(ctx context.Context, assignmentID, studentID uint) (*models.Submission, error) {
	var row models.Submission
	if err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Where("student_id = ?", studentID).
		First(&row).Error; err != nil {
		return nil, err
	}

	return reconstituteSubmission(row)
}

// Create inserts a new submission. A concurrent first submission by the same
// student loses on the unique index and is reported as a concurrent modification.
func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(submission).Error
	if err != nil && isDuplicateKey(err) {
		return apperrors.Wrap(err, apperrors.CodeConcurrentModification, apperrors.ErrConcurrentModification.Status, duplicateSubmissionReason)
	}
	return err
}

// Update writes the submission only if the stored version still equals
// expectedVersion. When no row matches, a probe distinguishes a deleted row
// (NOT_FOUND) from a lost race (CONCURRENT_MODIFICATION).
func (r *submissionRepository) Update(ctx context.Context, submission *models.Submission, expectedVersion int) error {
	result := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("id = ? AND version = ?", submission.ID, expectedVersion).
		Updates(map[string]any{
			"content":      submission.Content,
			"file_path":    submission.FilePath,
			"file_name":    submission.FileName,
			"grade":        submission.Grade,
			"feedback":     submission.Feedback,
			"is_late":      submission.IsLate,
			"status":       submission.Status,
			"version":      submission.Version,
			"submitted_at": submission.SubmittedAt,
			"graded_at":    submission.GradedAt,
			"graded_by":    submission.GradedBy,
			"updated_at":   submission.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Submission{}).Where("id = ?", submission.ID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return apperrors.NotFound(submissionNotFoundMessage)
	}
	return apperrors.ConcurrentModification(submissionConflictMessage)
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
