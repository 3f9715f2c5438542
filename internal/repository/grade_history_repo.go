package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/coursework-api/internal/models"
)

// GradeHistoryRepository stores the append-only record of grade writes.
type GradeHistoryRepository interface {
	Create(ctx context.Context, entry *models.SubmissionGradeHistory) error
	ListBySubmission(ctx context.Context, submissionID uint) ([]models.SubmissionGradeHistory, error)
}

type gradeHistoryRepository struct {
	db *gorm.DB
}

// NewGradeHistoryRepository constructs the grade history repository.
func NewGradeHistoryRepository(db *gorm.DB) GradeHistoryRepository {
	return &gradeHistoryRepository{db: db}
}

func (r *gradeHistoryRepository) Create(ctx context.Context, entry *models.SubmissionGradeHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *gradeHistoryRepository) ListBySubmission(ctx context.Context, submissionID uint) ([]models.SubmissionGradeHistory, error) {
	var entries []models.SubmissionGradeHistory
	if err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("version ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}

	return entries, nil
}
