package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/coursework-api/internal/dto"
	"github.com/noah-isme/coursework-api/internal/models"
	"github.com/noah-isme/coursework-api/internal/repository"
	apperrors "github.com/noah-isme/coursework-api/pkg/errors"
)

const recentSubmissionLimit = 5

// DashboardInvalidator drops cached dashboards after coursework changes.
// InvalidateCourse covers every student enrolled in the course.
type DashboardInvalidator interface {
	Invalidate(ctx context.Context, studentID uint) error
	InvalidateCourse(ctx context.Context, courseID uint) error
}

// StudentDashboardService produces aggregated dashboard metrics.
type StudentDashboardService interface {
	DashboardInvalidator
	GetDashboard(ctx context.Context, studentID uint) (dto.StudentDashboardResponse, error)
}

type studentDashboardService struct {
	enrollments repository.EnrollmentRepository
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

// NewStudentDashboardService builds the dashboard aggregator.
func NewStudentDashboardService(enrollments repository.EnrollmentRepository, assignments repository.AssignmentRepository, submissions repository.SubmissionRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) StudentDashboardService {
	return &studentDashboardService{
		enrollments: enrollments,
		assignments: assignments,
		submissions: submissions,
		cache:       cache,
		cacheTTL:    ttl,
		logger:      logger.With().Str("component", "student_dashboard_service").Logger(),
		now:         time.Now,
	}
}

func dashboardCacheKey(studentID uint) string {
	return fmt.Sprintf("dashboard:student:%d", studentID)
}

func (s *studentDashboardService) GetDashboard(ctx context.Context, studentID uint) (dto.StudentDashboardResponse, error) {
	cacheKey := dashboardCacheKey(studentID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.StudentDashboardResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Uint("student_id", studentID).Msg("dashboard cache hit")
				return response, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read dashboard cache")
		}
	}

	courseIDs, err := s.enrollments.CourseIDsForStudent(ctx, studentID)
	if err != nil {
		return dto.StudentDashboardResponse{}, apperrors.Internal(err, "failed to load enrollments")
	}

	assignments, err := s.assignments.ListByCourses(ctx, courseIDs)
	if err != nil {
		return dto.StudentDashboardResponse{}, apperrors.Internal(err, "failed to load assignments")
	}

	submissions, _, err := s.submissions.List(ctx, repository.SubmissionFilter{StudentID: &studentID})
	if err != nil {
		return dto.StudentDashboardResponse{}, apperrors.Internal(err, "failed to load submissions")
	}

	response := s.buildResponse(assignments, submissions)

	if s.cache != nil {
		payload, err := json.Marshal(response)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store dashboard cache")
			}
		}
	}

	return response, nil
}

func (s *studentDashboardService) Invalidate(ctx context.Context, studentID uint) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Del(ctx, dashboardCacheKey(studentID)).Err()
}

func (s *studentDashboardService) InvalidateCourse(ctx context.Context, courseID uint) error {
	if s.cache == nil {
		return nil
	}
	studentIDs, err := s.enrollments.StudentIDsForCourse(ctx, courseID)
	if err != nil {
		return fmt.Errorf("load course enrollments: %w", err)
	}
	if len(studentIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(studentIDs))
	for _, id := range studentIDs {
		keys = append(keys, dashboardCacheKey(id))
	}
	return s.cache.Del(ctx, keys...).Err()
}

func (s *studentDashboardService) buildResponse(assignments []models.Assignment, submissions []models.Submission) dto.StudentDashboardResponse {
	now := s.now()
	submissionByAssignment := make(map[uint]models.Submission, len(submissions))
	for _, submission := range submissions {
		submissionByAssignment[submission.AssignmentID] = submission
	}

	summary := dto.ProgressSummary{}
	pending := make([]dto.AssignmentProgress, 0)
	var gradeTotal float64
	var gradedCount int

	for _, assignment := range assignments {
		summary.TotalAssignments++
		submission, exists := submissionByAssignment[assignment.ID]
		handedIn := exists && submission.Status != models.SubmissionStatusNotSubmitted
		pastDue := assignment.IsPastDueDate(now)

		item := dto.AssignmentProgress{
			AssignmentID:   assignment.ID,
			CourseID:       assignment.CourseID,
			Title:          assignment.Title,
			DueDate:        assignment.DueDate,
			SubmissionType: string(assignment.SubmissionType),
			Status:         string(models.SubmissionStatusNotSubmitted),
			Locked:         !assignment.CanAcceptSubmissions(),
			UpdatedAt:      assignment.UpdatedAt,
		}

		if exists {
			id := submission.ID
			item.SubmissionID = &id
			item.Status = string(submission.Status)
			item.IsLate = submission.IsLate
			item.Feedback = submission.Feedback
			item.Grade = submission.Grade
			item.UpdatedAt = submission.UpdatedAt
		}

		switch {
		case exists && submission.Status == models.SubmissionStatusGraded:
			summary.Submitted++
			summary.Graded++
			if submission.Grade != nil {
				gradeTotal += *submission.Grade
				gradedCount++
			}
		case handedIn:
			summary.Submitted++
			summary.Pending++
		default:
			summary.Pending++
			if pastDue {
				summary.Overdue++
				item.Overdue = true
			}
		}
		if handedIn && submission.IsLate {
			summary.Late++
		}

		if item.Status != string(models.SubmissionStatusGraded) {
			pending = append(pending, item)
		}
	}

	if gradedCount > 0 {
		summary.AverageGrade = gradeTotal / float64(gradedCount)
	}
	if summary.TotalAssignments > 0 {
		summary.CompletionRate = (float64(summary.Graded) / float64(summary.TotalAssignments)) * 100
	}

	activities := make([]dto.SubmissionActivity, 0, recentSubmissionLimit)
	for _, submission := range submissions {
		if len(activities) >= recentSubmissionLimit {
			break
		}
		if submission.Status == models.SubmissionStatusNotSubmitted {
			continue
		}
		activities = append(activities, dto.SubmissionActivity{
			SubmissionID:   submission.ID,
			AssignmentID:   submission.AssignmentID,
			AssignmentName: submission.Assignment.Title,
			Status:         string(submission.Status),
			IsLate:         submission.IsLate,
			Grade:          submission.Grade,
			Feedback:       submission.Feedback,
			SubmittedAt:    submission.SubmittedAt,
			UpdatedAt:      submission.UpdatedAt,
		})
	}

	return dto.StudentDashboardResponse{
		Summary:           summary,
		Pending:           pending,
		RecentSubmissions: activities,
		GeneratedAt:       now.UTC(),
	}
}
