package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/coursework-api/internal/dto"
	"github.com/noah-isme/coursework-api/internal/events"
	"github.com/noah-isme/coursework-api/internal/models"
	"github.com/noah-isme/coursework-api/internal/observability"
	"github.com/noah-isme/coursework-api/internal/repository"
	apperrors "github.com/noah-isme/coursework-api/pkg/errors"
)

// GradingService is the only path that locks assignments and grades submissions.
type GradingService interface {
	Grade(ctx context.Context, submissionID uint, actor ActivityActor, payload dto.GradeSubmissionRequest) (dto.SubmissionResponse, error)
}

// GradingDependencies groups the collaborators of the grading service.
type GradingDependencies struct {
	Assignments  repository.AssignmentRepository
	Submissions  repository.SubmissionRepository
	Courses      repository.CourseRepository
	Users        repository.UserRepository
	GradeHistory repository.GradeHistoryRepository
	Policy       Policy
	Sanitizer    HTMLSanitizer
	FollowUps    FollowUps
}

type gradingService struct {
	deps      GradingDependencies
	validator *validator.Validate
	followUps followUpRunner
	tracer    trace.Tracer
	logger    zerolog.Logger
	now       func() time.Time
}

// NewGradingService constructs the grading service.
func NewGradingService(deps GradingDependencies, validate *validator.Validate, logger zerolog.Logger) GradingService {
	if deps.Policy == nil {
		deps.Policy = NewPolicy()
	}
	if deps.Sanitizer == nil {
		deps.Sanitizer = NewHTMLSanitizer()
	}
	log := logger.With().Str("component", "grading_service").Logger()
	return &gradingService{
		deps:      deps,
		validator: validate,
		followUps: followUpRunner{FollowUps: deps.FollowUps, logger: log},
		tracer:    otel.Tracer("github.com/noah-isme/coursework-api/internal/service/grading"),
		logger:    log,
		now:       time.Now,
	}
}

func (s *gradingService) Grade(ctx context.Context, submissionID uint, actor ActivityActor, payload dto.GradeSubmissionRequest) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grading.grade")
	span.SetAttributes(
		attribute.Int64("grading.submission_id", int64(submissionID)),
		attribute.Int64("grading.actor_id", int64(actor.ID)),
		attribute.Bool("grading.expected_version_supplied", payload.ExpectedVersion != nil),
	)
	defer span.End()

	response, err := s.grade(ctx, submissionID, actor, payload, span)
	if err != nil {
		code := apperrors.FromError(err).Code
		if errors.Is(err, apperrors.ErrConcurrentModification) {
			observability.GradeConflicts().Inc()
		}
		observability.Grades().WithLabelValues(strings.ToLower(code)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, strings.ToLower(code))
		return dto.SubmissionResponse{}, err
	}

	observability.Grades().WithLabelValues("success").Inc()
	return response, nil
}

func (s *gradingService) grade(ctx context.Context, submissionID uint, actor ActivityActor, payload dto.GradeSubmissionRequest, span trace.Span) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, validationError(err)
	}

	grader, err := s.deps.Users.GetByID(ctx, actor.ID)
	if err != nil {
		return dto.SubmissionResponse{}, lookupError(err, "Grader not found")
	}
	submission, err := s.deps.Submissions.GetByID(ctx, submissionID)
	if err != nil {
		return dto.SubmissionResponse{}, lookupError(err, "Submission not found")
	}
	assignment, err := s.deps.Assignments.GetByID(ctx, submission.AssignmentID)
	if err != nil {
		return dto.SubmissionResponse{}, lookupError(err, "Assignment not found")
	}
	course, err := s.deps.Courses.GetByID(ctx, assignment.CourseID)
	if err != nil {
		return dto.SubmissionResponse{}, lookupError(err, "Course not found")
	}

	if !s.deps.Policy.CanGradeSubmissions(grader, course) {
		return dto.SubmissionResponse{}, apperrors.Forbidden("You are not allowed to grade submissions for this course")
	}
	if course.IsArchived() {
		return dto.SubmissionResponse{}, apperrors.StateConflict("Course is archived")
	}

	grade := *payload.Grade
	if err := models.ValidateGrade(grade); err != nil {
		return dto.SubmissionResponse{}, err
	}

	now := s.now()

	var feedback *string
	if payload.Feedback != nil {
		cleaned := s.deps.Sanitizer.Sanitize(*payload.Feedback)
		feedback = &cleaned
	}

	// The entity rejects stale versions and unsubmitted work in memory, so a
	// refused grade never locks the assignment.
	expected := submission.Version
	regrade := submission.IsGraded()
	if regrade {
		err = submission.UpdateGrade(grade, feedback, grader.ID, now, payload.ExpectedVersion)
	} else {
		err = submission.AssignGrade(grade, feedback, grader.ID, now, payload.ExpectedVersion)
	}
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	s.lockAssignment(ctx, assignment, now)

	if err := s.deps.Submissions.Update(ctx, submission, expected); err != nil {
		return dto.SubmissionResponse{}, persistError(err, "failed to save grade")
	}

	span.SetAttributes(
		attribute.Float64("grading.score", grade),
		attribute.Bool("grading.regrade", regrade),
		attribute.Int("grading.version", submission.Version),
	)
	s.logger.Info().
		Uint("submission_id", submission.ID).
		Uint("grader_id", grader.ID).
		Float64("grade", grade).
		Int("version", submission.Version).
		Bool("regrade", regrade).
		Msg("submission graded")

	s.recordHistory(ctx, submission)
	s.followUps.record(ctx, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     ActionSubmissionGraded,
		EntityType: entityTypeSubmission,
		EntityID:   &submission.ID,
		Metadata: map[string]interface{}{
			"assignment_id": submission.AssignmentID,
			"student_id":    submission.StudentID,
			"score":         grade,
			"version":       submission.Version,
			"regrade":       regrade,
		},
	})
	s.followUps.publish(ctx, events.SubmissionGraded, submission)
	s.followUps.invalidateDashboard(ctx, submission.StudentID)

	return dto.NewSubmissionResponse(*submission), nil
}

// lockAssignment sets the grading lock on first grade. Losing the race to
// another grader or failing to persist is tolerated; the grade write proceeds.
func (s *gradingService) lockAssignment(ctx context.Context, assignment *models.Assignment, now time.Time) {
	if assignment.GradingStarted {
		observability.AssignmentLocks().WithLabelValues("already_locked").Inc()
		return
	}
	if err := assignment.StartGrading(now); err != nil {
		observability.AssignmentLocks().WithLabelValues("already_locked").Inc()
		return
	}
	if err := s.deps.Assignments.MarkGradingStarted(ctx, assignment.ID, now); err != nil {
		observability.AssignmentLocks().WithLabelValues("failed").Inc()
		s.logger.Warn().Err(err).Uint("assignment_id", assignment.ID).Msg("failed to persist grading lock")
		return
	}
	observability.AssignmentLocks().WithLabelValues("locked").Inc()
	s.logger.Info().Uint("assignment_id", assignment.ID).Msg("assignment locked for grading")
	s.followUps.invalidateCourse(ctx, assignment.CourseID)
}

func (s *gradingService) recordHistory(ctx context.Context, submission *models.Submission) {
	if s.deps.GradeHistory == nil || submission.Grade == nil {
		return
	}
	entry := models.SubmissionGradeHistory{
		SubmissionID: submission.ID,
		Score:        *submission.Grade,
		Feedback:     submission.Feedback,
		GradedAt:     s.now(),
		Version:      submission.Version,
	}
	if submission.GradedBy != nil {
		entry.GradedBy = *submission.GradedBy
	}
	if submission.GradedAt != nil {
		entry.GradedAt = *submission.GradedAt
	}
	if err := s.deps.GradeHistory.Create(ctx, &entry); err != nil {
		observability.SideEffectErrors().WithLabelValues("grade_history").Inc()
		s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("failed to persist grading history")
	}
}
