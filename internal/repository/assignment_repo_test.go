package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/coursework-api/internal/models"
	apperrors "github.com/noah-isme/coursework-api/pkg/errors"
)

func TestAssignmentRepositoryListByCourseFiltersAndSorts(t *testing.T) {
	db := newTestDB(t)
	repo := NewAssignmentRepository(db)
	now := time.Now()

	seedAssignment(t, db, 1, "Algebra homework", now.Add(48*time.Hour))
	seedAssignment(t, db, 1, "Geometry project", now.Add(24*time.Hour))
	seedAssignment(t, db, 2, "Algebra quiz prep", now.Add(12*time.Hour))

	items, total, err := repo.ListByCourse(context.Background(), 1, AssignmentFilter{})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Equal(t, "Geometry project", items[0].Title, "expected earliest due date first")

	items, total, err = repo.ListByCourse(context.Background(), 1, AssignmentFilter{Search: "ALGEBRA", PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "Algebra homework", items[0].Title)

	items, _, err = repo.ListByCourse(context.Background(), 1, AssignmentFilter{Sort: "-title", PageSize: 1, Page: 1})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "Geometry project", items[0].Title)
}

func TestAssignmentRepositoryMarkGradingStarted(t *testing.T) {
	db := newTestDB(t)
	repo := NewAssignmentRepository(db)
	ctx := context.Background()
	seeded := seedAssignment(t, db, 1, "Essay", time.Now().Add(time.Hour))

	require.NoError(t, repo.MarkGradingStarted(ctx, seeded.ID, time.Now()))
	require.NoError(t, repo.MarkGradingStarted(ctx, seeded.ID, time.Now()), "locking twice is tolerated")

	reloaded, err := repo.GetByID(ctx, seeded.ID)
	require.NoError(t, err)
	require.True(t, reloaded.GradingStarted)
	require.False(t, reloaded.CanAcceptSubmissions())

	require.ErrorIs(t, repo.MarkGradingStarted(ctx, 999, time.Now()), gorm.ErrRecordNotFound)
	_, err = repo.GetByID(ctx, 999)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestAssignmentRepositoryUpdateEditsFields(t *testing.T) {
	db := newTestDB(t)
	repo := NewAssignmentRepository(db)
	ctx := context.Background()
	now := time.Now()
	seeded := seedAssignment(t, db, 1, "Essay", now.Add(time.Hour))

	loaded, err := repo.GetByID(ctx, seeded.ID)
	require.NoError(t, err)
	require.NoError(t, loaded.UpdateTitle("Essay v2", now))
	require.NoError(t, loaded.UpdateDueDate(now.Add(48*time.Hour), now))
	require.NoError(t, repo.Update(ctx, loaded))

	reloaded, err := repo.GetByID(ctx, seeded.ID)
	require.NoError(t, err)
	require.Equal(t, "Essay v2", reloaded.Title)
	require.WithinDuration(t, now.Add(48*time.Hour), reloaded.DueDate, time.Second)
	require.False(t, reloaded.GradingStarted)

	missing := *loaded
	missing.ID = 999
	require.ErrorIs(t, repo.Update(ctx, &missing), gorm.ErrRecordNotFound)
}

func TestAssignmentRepositoryStaleEditKeepsGradingLock(t *testing.T) {
	db := newTestDB(t)
	repo := NewAssignmentRepository(db)
	ctx := context.Background()
	now := time.Now()
	seeded := seedAssignment(t, db, 1, "Essay", now.Add(time.Hour))

	editorCopy, err := repo.GetByID(ctx, seeded.ID)
	require.NoError(t, err)
	graderCopy, err := repo.GetByID(ctx, seeded.ID)
	require.NoError(t, err)

	require.NoError(t, graderCopy.StartGrading(now))
	require.NoError(t, repo.MarkGradingStarted(ctx, graderCopy.ID, now))

	require.NoError(t, editorCopy.UpdateTitle("Essay v2", now), "editor copy still sees an open window")
	err = repo.Update(ctx, editorCopy)
	require.ErrorIs(t, err, apperrors.ErrStateConflict)
	require.Contains(t, err.Error(), "Cannot edit assignment after grading has started")

	reloaded, err := repo.GetByID(ctx, seeded.ID)
	require.NoError(t, err)
	require.True(t, reloaded.GradingStarted)
	require.Equal(t, "Essay", reloaded.Title)
}

func TestAssignmentRepositoryCorruptRowIsInternal(t *testing.T) {
	db := newTestDB(t)
	repo := NewAssignmentRepository(db)
	corrupt := models.Assignment{CourseID: 1, Title: "", Description: "no title", DueDate: time.Now(), SubmissionType: models.SubmissionTypeText}
	require.NoError(t, db.Create(&corrupt).Error)

	_, err := repo.GetByID(context.Background(), corrupt.ID)
	require.ErrorIs(t, err, apperrors.ErrInternal)
	require.Equal(t, apperrors.CodeInternal, apperrors.FromError(err).Code)
}

func TestAssignmentRepositoryDeleteRemovesSubmissions(t *testing.T) {
	db := newTestDB(t)
	repo := NewAssignmentRepository(db)
	ctx := context.Background()
	seeded := seedAssignment(t, db, 1, "Essay", time.Now().Add(time.Hour))
	submission := seedSubmission(t, db, seeded.ID, 5, models.SubmissionStatusGraded)
	require.NoError(t, db.Create(&models.SubmissionGradeHistory{SubmissionID: submission.ID, Score: 80, GradedBy: 2, GradedAt: time.Now(), Version: 1}).Error)

	require.NoError(t, repo.Delete(ctx, seeded.ID))

	var count int64
	require.NoError(t, db.Model(&models.Submission{}).Where("assignment_id = ?", seeded.ID).Count(&count).Error)
	require.Zero(t, count)
	require.NoError(t, db.Model(&models.SubmissionGradeHistory{}).Count(&count).Error)
	require.Zero(t, count)

	require.ErrorIs(t, repo.Delete(ctx, seeded.ID), gorm.ErrRecordNotFound)
}

func TestAssignmentRepositoryListByCourses(t *testing.T) {
	db := newTestDB(t)
	repo := NewAssignmentRepository(db)
	now := time.Now()
	seedAssignment(t, db, 1, "One", now.Add(time.Hour))
	seedAssignment(t, db, 2, "Two", now.Add(2*time.Hour))
	seedAssignment(t, db, 3, "Three", now.Add(3*time.Hour))

	items, err := repo.ListByCourses(context.Background(), []uint{1, 3})
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "One", items[0].Title)

	items, err = repo.ListByCourses(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, items)
}
