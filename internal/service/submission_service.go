package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/coursework-api/internal/dto"
	"github.com/noah-isme/coursework-api/internal/events"
	"github.com/noah-isme/coursework-api/internal/models"
	"github.com/noah-isme/coursework-api/internal/observability"
	"github.com/noah-isme/coursework-api/internal/repository"
	apperrors "github.com/noah-isme/coursework-api/pkg/errors"
	"github.com/noah-isme/coursework-api/pkg/storage"
)

// SubmissionService orchestrates the student submission lifecycle.
type SubmissionService interface {
	Submit(ctx context.Context, assignmentID uint, actor ActivityActor, payload dto.SubmissionCreateRequest, file *dto.UploadedFile) (dto.SubmissionResponse, error)
	Get(ctx context.Context, id uint, actor ActivityActor) (dto.SubmissionResponse, error)
	List(ctx context.Context, filter dto.SubmissionFilter, actor ActivityActor) (dto.SubmissionListResponse, error)
}

// SubmissionDependencies groups the collaborators of the submission service.
type SubmissionDependencies struct {
	Assignments  repository.AssignmentRepository
	Submissions  repository.SubmissionRepository
	Courses      repository.CourseRepository
	Users        repository.UserRepository
	Enrollments  repository.EnrollmentRepository
	GradeHistory repository.GradeHistoryRepository
	Policy       Policy
	Sanitizer    HTMLSanitizer
	Storage      storage.Uploader
	FollowUps    FollowUps
	MaxFileSize  int64
}

type submissionService struct {
	deps      SubmissionDependencies
	validator *validator.Validate
	followUps followUpRunner
	tracer    trace.Tracer
	logger    zerolog.Logger
	now       func() time.Time
}

// NewSubmissionService constructs a SubmissionService instance.
func NewSubmissionService(deps SubmissionDependencies, validate *validator.Validate, logger zerolog.Logger) SubmissionService {
	if deps.Policy == nil {
		deps.Policy = NewPolicy()
	}
	if deps.Sanitizer == nil {
		deps.Sanitizer = NewHTMLSanitizer()
	}
	if deps.MaxFileSize <= 0 {
		deps.MaxFileSize = MaxSubmissionFileSize
	}
	log := logger.With().Str("component", "submission_service").Logger()
	return &submissionService{
		deps:      deps,
		validator: validate,
		followUps: followUpRunner{FollowUps: deps.FollowUps, logger: log},
		tracer:    otel.Tracer("github.com/noah-isme/coursework-api/internal/service/submission"),
		logger:    log,
		now:       time.Now,
	}
}

func (s *submissionService) Submit(ctx context.Context, assignmentID uint, actor ActivityActor, payload dto.SubmissionCreateRequest, file *dto.UploadedFile) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "submission.submit")
	span.SetAttributes(
		attribute.Int64("submission.assignment_id", int64(assignmentID)),
		attribute.Int64("submission.student_id", int64(actor.ID)),
		attribute.Bool("submission.file_present", file != nil),
	)
	defer span.End()

	response, err := s.submit(ctx, assignmentID, actor, payload, file)
	if err != nil {
		code := apperrors.FromError(err).Code
		observability.SubmissionsRejected().WithLabelValues(code).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, strings.ToLower(code))
		return dto.SubmissionResponse{}, err
	}

	span.SetAttributes(
		attribute.Int64("submission.id", int64(response.ID)),
		attribute.Int("submission.version", response.Version),
		attribute.Bool("submission.late", response.IsLate),
	)
	return response, nil
}

func (s *submissionService) submit(ctx context.Context, assignmentID uint, actor ActivityActor, payload dto.SubmissionCreateRequest, file *dto.UploadedFile) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, validationError(err)
	}

	assignment, err := s.deps.Assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return dto.SubmissionResponse{}, lookupError(err, "Assignment not found")
	}
	course, err := s.deps.Courses.GetByID(ctx, assignment.CourseID)
	if err != nil {
		return dto.SubmissionResponse{}, lookupError(err, "Course not found")
	}
	student, err := s.deps.Users.GetByID(ctx, actor.ID)
	if err != nil {
		return dto.SubmissionResponse{}, lookupError(err, "User not found")
	}

	enrolled, err := s.deps.Enrollments.IsEnrolled(ctx, course.ID, student.ID)
	if err != nil {
		return dto.SubmissionResponse{}, apperrors.Internal(err, "failed to check enrollment")
	}
	if !s.deps.Policy.CanSubmitAssignment(student, course, enrolled) {
		return dto.SubmissionResponse{}, apperrors.Forbidden("You are not allowed to submit to this assignment")
	}

	if !assignment.CanAcceptSubmissions() {
		return dto.SubmissionResponse{}, apperrors.StateConflict("Assignment is no longer accepting submissions")
	}

	text := s.deps.Sanitizer.Sanitize(payload.Content)
	if err := checkSubmissionType(assignment.SubmissionType, text, file); err != nil {
		return dto.SubmissionResponse{}, err
	}
	if file != nil {
		if err := validateSubmissionFile(*file, assignment, s.deps.MaxFileSize); err != nil {
			return dto.SubmissionResponse{}, err
		}
	}

	prior, err := s.deps.Submissions.GetByAssignmentAndStudent(ctx, assignment.ID, student.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.SubmissionResponse{}, lookupError(err, "Submission not found")
	}
	if prior != nil && prior.IsGraded() {
		return dto.SubmissionResponse{}, apperrors.StateConflict("Cannot resubmit after grading has started")
	}

	now := s.now()
	isLate := assignment.IsSubmissionLate(now)

	content := models.SubmissionContent{Text: text}
	if file != nil {
		stored, err := s.store(ctx, assignment.ID, student.ID, *file)
		if err != nil {
			return dto.SubmissionResponse{}, err
		}
		content.FilePath = stored.Path
		content.FileName = stored.OriginalName
	}

	var (
		submission *models.Submission
		action     = ActionSubmissionSubmitted
		eventType  = events.SubmissionSubmitted
		kind       = "first"
	)

	if prior != nil {
		submission = prior
		expected := prior.Version
		if err := submission.UpdateContent(content, now); err != nil {
			return dto.SubmissionResponse{}, err
		}
		if submission.Status == models.SubmissionStatusSubmitted {
			if err := submission.Resubmit(isLate, now, nil); err != nil {
				return dto.SubmissionResponse{}, err
			}
			action = ActionSubmissionResubmitted
			eventType = events.SubmissionResubmitted
			kind = "resubmission"
		} else if err := submission.Submit(isLate, now); err != nil {
			return dto.SubmissionResponse{}, err
		}
		if err := s.deps.Submissions.Update(ctx, submission, expected); err != nil {
			return dto.SubmissionResponse{}, persistError(err, "failed to save submission")
		}
	} else {
		submission, err = models.NewSubmission(models.NewSubmissionParams{
			AssignmentID: assignment.ID,
			StudentID:    student.ID,
			Content:      content,
			Submitted:    true,
			IsLate:       isLate,
		}, now)
		if err != nil {
			return dto.SubmissionResponse{}, err
		}
		if err := s.deps.Submissions.Create(ctx, submission); err != nil {
			return dto.SubmissionResponse{}, persistError(err, "failed to save submission")
		}
	}

	observability.Submissions().WithLabelValues(kind, strconv.FormatBool(isLate)).Inc()
	s.logger.Info().
		Uint("submission_id", submission.ID).
		Uint("assignment_id", assignment.ID).
		Uint("student_id", student.ID).
		Bool("late", isLate).
		Int("version", submission.Version).
		Msg("submission accepted")

	s.followUps.record(ctx, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: entityTypeSubmission,
		EntityID:   &submission.ID,
		Metadata: map[string]interface{}{
			"assignment_id": assignment.ID,
			"is_late":       isLate,
			"version":       submission.Version,
		},
	})
	s.followUps.publish(ctx, eventType, submission)
	s.followUps.invalidateDashboard(ctx, student.ID)

	return dto.NewSubmissionResponse(*submission), nil
}

func (s *submissionService) store(ctx context.Context, assignmentID, studentID uint, file dto.UploadedFile) (storage.StoredFile, error) {
	if s.deps.Storage == nil {
		return storage.StoredFile{}, apperrors.Internal(errors.New("storage not configured"), "file storage is unavailable")
	}

	start := time.Now()
	stored, err := s.deps.Storage.Upload(ctx, file.Data, storage.UploadOptions{
		OriginalName: file.Name,
		MimeType:     normalizeMimeType(file.MimeType),
		Size:         int64(len(file.Data)),
		Directory:    fmt.Sprintf("submissions/%d/%d", assignmentID, studentID),
	})
	observability.UploadLatency().Observe(time.Since(start).Seconds())
	if err != nil {
		return storage.StoredFile{}, apperrors.Internal(err, "failed to store submission file")
	}
	return stored, nil
}

func checkSubmissionType(submissionType models.SubmissionType, text string, file *dto.UploadedFile) error {
	hasText := strings.TrimSpace(text) != ""
	hasFile := file != nil

	switch submissionType {
	case models.SubmissionTypeFile:
		if !hasFile {
			return apperrors.Validation("This assignment requires a file upload")
		}
	case models.SubmissionTypeText:
		if !hasText {
			return apperrors.Validation("This assignment requires text content")
		}
		if hasFile {
			return apperrors.Validation("This assignment does not accept file uploads")
		}
	case models.SubmissionTypeBoth:
		if !hasFile || !hasText {
			return apperrors.Validation("This assignment requires both a file and text content")
		}
	default:
		return apperrors.Validation("Assignment submission type is invalid")
	}
	return nil
}

func (s *submissionService) Get(ctx context.Context, id uint, actor ActivityActor) (dto.SubmissionResponse, error) {
	submission, err := s.deps.Submissions.GetByID(ctx, id)
	if err != nil {
		return dto.SubmissionResponse{}, lookupError(err, "Submission not found")
	}

	if err := s.authorizeView(ctx, actor, submission.StudentID, submission.AssignmentID); err != nil {
		return dto.SubmissionResponse{}, err
	}

	if s.deps.GradeHistory != nil {
		history, err := s.deps.GradeHistory.ListBySubmission(ctx, submission.ID)
		if err != nil {
			s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("failed to load grade history")
		} else {
			submission.History = history
		}
	}

	return dto.NewSubmissionResponse(*submission), nil
}

func (s *submissionService) List(ctx context.Context, filter dto.SubmissionFilter, actor ActivityActor) (dto.SubmissionListResponse, error) {
	if err := s.validator.Struct(filter); err != nil {
		return dto.SubmissionListResponse{}, validationError(err)
	}

	repoFilter := repository.SubmissionFilter{
		AssignmentID: filter.AssignmentID,
		StudentID:    filter.StudentID,
		CourseID:     filter.CourseID,
		Page:         filter.Page,
		PageSize:     filter.PageSize,
	}
	if filter.Status != nil {
		status := models.SubmissionStatus(strings.ToUpper(*filter.Status))
		repoFilter.Status = &status
	}

	user := actorUser(actor)
	switch {
	case user.HasRole(models.RoleAdmin):
	case user.HasRole(models.RoleStudent):
		studentID := actor.ID
		repoFilter.StudentID = &studentID
	default:
		courseID, err := s.courseForFilter(ctx, filter)
		if err != nil {
			return dto.SubmissionListResponse{}, err
		}
		course, err := s.deps.Courses.GetByID(ctx, courseID)
		if err != nil {
			return dto.SubmissionListResponse{}, lookupError(err, "Course not found")
		}
		if !s.deps.Policy.CanGradeSubmissions(user, course) {
			return dto.SubmissionListResponse{}, apperrors.Forbidden("You are not allowed to view submissions for this course")
		}
		repoFilter.CourseID = &courseID
	}

	items, total, err := s.deps.Submissions.List(ctx, repoFilter)
	if err != nil {
		return dto.SubmissionListResponse{}, apperrors.Internal(err, "failed to list submissions")
	}

	return dto.SubmissionListResponse{
		Items:      dto.NewSubmissionResponseSlice(items),
		Pagination: dto.NewPaginationMeta(filter.Page, filter.PageSize, total),
	}, nil
}

func (s *submissionService) courseForFilter(ctx context.Context, filter dto.SubmissionFilter) (uint, error) {
	if filter.CourseID != nil {
		return *filter.CourseID, nil
	}
	if filter.AssignmentID != nil {
		assignment, err := s.deps.Assignments.GetByID(ctx, *filter.AssignmentID)
		if err != nil {
			return 0, lookupError(err, "Assignment not found")
		}
		return assignment.CourseID, nil
	}
	return 0, apperrors.Validation("course_id or assignment_id is required")
}

// authorizeView lets students read their own submissions and course staff read the rest.
func (s *submissionService) authorizeView(ctx context.Context, actor ActivityActor, studentID, assignmentID uint) error {
	user := actorUser(actor)
	if user.HasRole(models.RoleAdmin) {
		return nil
	}
	if user.HasRole(models.RoleStudent) {
		if studentID != actor.ID {
			return apperrors.Forbidden("You can only view your own submissions")
		}
		return nil
	}

	assignment, err := s.deps.Assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return lookupError(err, "Assignment not found")
	}
	course, err := s.deps.Courses.GetByID(ctx, assignment.CourseID)
	if err != nil {
		return lookupError(err, "Course not found")
	}
	if !s.deps.Policy.CanGradeSubmissions(user, course) {
		return apperrors.Forbidden("You are not allowed to view submissions for this course")
	}
	return nil
}

func actorUser(actor ActivityActor) models.User {
	return models.User{ID: actor.ID, Role: actor.Role}
}
