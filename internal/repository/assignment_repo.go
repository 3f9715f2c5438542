package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/coursework-api/internal/models"
	apperrors "github.com/noah-isme/coursework-api/pkg/errors"
)

// AssignmentFilter describes pagination & search options.
type AssignmentFilter struct {
	Search   string
	Sort     string
	Page     int
	PageSize int
}

// AssignmentRepository defines persistence operations for assignments.
type AssignmentRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Assignment, error)
	ListByCourse(ctx context.Context, courseID uint, filter AssignmentFilter) ([]models.Assignment, int64, error)
	ListByCourses(ctx context.Context, courseIDs []uint) ([]models.Assignment, error)
	Create(ctx context.Context, assignment *models.Assignment) error
	Update(ctx context.Context, assignment *models.Assignment) error
	MarkGradingStarted(ctx context.Context, id uint, at time.Time) error
	Delete(ctx context.Context, id uint) error
}

type assignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository instantiates a GORM-backed repository.
func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

// GetByID loads and validates a single assignment. Missing rows return gorm.ErrRecordNotFound.
func (r *assignmentRepository) GetByID(ctx context.Context, id uint) (*models.Assignment, error) {
	var row models.Assignment
	if err := r.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return nil, err
	}

	assignment, err := models.ReconstituteAssignment(row)
	if err != nil {
		return nil, apperrors.Internal(err, "stored assignment is invalid")
	}
	return assignment, nil
}

func (r *assignmentRepository) ListByCourse(ctx context.Context, courseID uint, filter AssignmentFilter) ([]models.Assignment, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Assignment{}).Where("course_id = ?", courseID)

	if filter.Search != "" {
		pattern := "%" + strings.ToLower(strings.TrimSpace(filter.Search)) + "%"
		query = query.Where("(LOWER(title) LIKE ? OR LOWER(description) LIKE ?)", pattern, pattern)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order(normalizeAssignmentSort(filter.Sort))

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		offset := (page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	var assignments []models.Assignment
	if err := query.Find(&assignments).Error; err != nil {
		return nil, 0, err
	}

	return assignments, total, nil
}

func (r *assignmentRepository) ListByCourses(ctx context.Context, courseIDs []uint) ([]models.Assignment, error) {
	if len(courseIDs) == 0 {
		return []models.Assignment{}, nil
	}

	var assignments []models.Assignment
	if err := r.db.WithContext(ctx).
		Where("course_id IN ?", courseIDs).
		Order("due_date ASC").
		Find(&assignments).Error; err != nil {
		return nil, err
	}

	return assignments, nil
}

func (r *assignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(assignment).Error
}

// Update overwrites the editable columns of the assignment. The grading lock is
// never written here; a row locked since it was loaded rejects the edit.
func (r *assignmentRepository) Update(ctx context.Context, assignment *models.Assignment) error {
	result := r.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("id = ? AND grading_started = ?", assignment.ID, false).
		Updates(map[string]interface{}{
			"title":                 assignment.Title,
			"description":           assignment.Description,
			"due_date":              assignment.DueDate,
			"submission_type":       assignment.SubmissionType,
			"accepted_file_formats": assignment.AcceptedFileFormats,
			"file_url":              assignment.FileURL,
			"updated_at":            assignment.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Assignment{}).Where("id = ?", assignment.ID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return gorm.ErrRecordNotFound
	}
	return apperrors.StateConflict("Cannot edit assignment after grading has started")
}

// MarkGradingStarted sets the one-way grading lock. Setting it twice is a no-op.
func (r *assignmentRepository) MarkGradingStarted(ctx context.Context, id uint, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"grading_started": true, "updated_at": at})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *assignmentRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var submissionIDs []uint
		if err := tx.Model(&models.Submission{}).Where("assignment_id = ?", id).Pluck("id", &submissionIDs).Error; err != nil {
			return err
		}
		if len(submissionIDs) > 0 {
			if err := tx.Where("submission_id IN ?", submissionIDs).Delete(&models.SubmissionGradeHistory{}).Error; err != nil {
				return err
			}
			if err := tx.Where("assignment_id = ?", id).Delete(&models.Submission{}).Error; err != nil {
				return err
			}
		}

		result := tx.Delete(&models.Assignment{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	return err
}

func normalizeAssignmentSort(sort string) string {
	switch strings.ToLower(strings.TrimSpace(sort)) {
	case "-due_date", "due_date:desc", "due_date.desc":
		return "due_date DESC"
	case "updated_at", "updated_at:asc", "updated_at.asc":
		return "updated_at ASC"
	case "-updated_at", "updated_at:desc", "updated_at.desc":
		return "updated_at DESC"
	case "title", "title:asc", "title.asc":
		return "title ASC"
	case "-title", "title:desc", "title.desc":
		return "title DESC"
	default:
		return "due_date ASC"
	}
}
