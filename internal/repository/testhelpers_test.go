package repository

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/coursework-api/internal/database"
	"github.com/noah-isme/coursework-api/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func seedAssignment(t *testing.T, db *gorm.DB, courseID uint, title string, due time.Time) models.Assignment {
	t.Helper()
	assignment := models.Assignment{
		CourseID:       courseID,
		Title:          title,
		Description:    title + " description",
		DueDate:        due,
		SubmissionType: models.SubmissionTypeText,
	}
	require.NoError(t, db.Create(&assignment).Error)
	return assignment
}

func seedSubmission(t *testing.T, db *gorm.DB, assignmentID, studentID uint, status models.SubmissionStatus) models.Submission {
	t.Helper()
	submission := models.Submission{
		AssignmentID: assignmentID,
		StudentID:    studentID,
		Content:      "answer",
		Status:       status,
	}
	if status == models.SubmissionStatusGraded {
		grade := 80.0
		submission.Grade = &grade
	}
	require.NoError(t, db.Create(&submission).Error)
	return submission
}
