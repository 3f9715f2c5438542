package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/coursework-api/internal/dto"
	"github.com/noah-isme/coursework-api/internal/models"
	"github.com/noah-isme/coursework-api/internal/repository"
	apperrors "github.com/noah-isme/coursework-api/pkg/errors"
	"github.com/noah-isme/coursework-api/pkg/storage"
)

// AssignmentService exposes assignment domain use cases.
type AssignmentService interface {
	ListByCourse(ctx context.Context, courseID uint, req dto.AssignmentListRequest) (dto.AssignmentListResponse, error)
	Get(ctx context.Context, id uint) (dto.AssignmentResponse, error)
	Create(ctx context.Context, courseID uint, actor ActivityActor, payload dto.AssignmentCreateRequest, attachment *dto.UploadedFile) (dto.AssignmentResponse, error)
	Update(ctx context.Context, id uint, actor ActivityActor, payload dto.AssignmentUpdateRequest) (dto.AssignmentResponse, error)
	Delete(ctx context.Context, id uint, actor ActivityActor) error
}

type assignmentService struct {
	repo      repository.AssignmentRepository
	courses   repository.CourseRepository
	policy    Policy
	uploader  storage.Uploader
	validator *validator.Validate
	followUps followUpRunner
	logger    zerolog.Logger
	now       func() time.Time
}

// NewAssignmentService builds a new assignment service.
func NewAssignmentService(repo repository.AssignmentRepository, courses repository.CourseRepository, policy Policy, uploader storage.Uploader, followUps FollowUps, validate *validator.Validate, logger zerolog.Logger) AssignmentService {
	if policy == nil {
		policy = NewPolicy()
	}
	log := logger.With().Str("component", "assignment_service").Logger()
	return &assignmentService{
		repo:      repo,
		courses:   courses,
		policy:    policy,
		uploader:  uploader,
		validator: validate,
		followUps: followUpRunner{FollowUps: followUps, logger: log},
		logger:    log,
		now:       time.Now,
	}
}

func (s *assignmentService) ListByCourse(ctx context.Context, courseID uint, req dto.AssignmentListRequest) (dto.AssignmentListResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AssignmentListResponse{}, validationError(err)
	}
	if _, err := s.courses.GetByID(ctx, courseID); err != nil {
		return dto.AssignmentListResponse{}, lookupError(err, "Course not found")
	}

	assignments, total, err := s.repo.ListByCourse(ctx, courseID, repository.AssignmentFilter{
		Search:   req.Search,
		Sort:     req.Sort,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		return dto.AssignmentListResponse{}, apperrors.Internal(err, "failed to list assignments")
	}

	return dto.AssignmentListResponse{
		Items:      dto.NewAssignmentResponseSlice(assignments),
		Pagination: dto.NewPaginationMeta(req.Page, req.PageSize, total),
	}, nil
}

func (s *assignmentService) Get(ctx context.Context, id uint) (dto.AssignmentResponse, error) {
	assignment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return dto.AssignmentResponse{}, lookupError(err, "Assignment not found")
	}

	return dto.NewAssignmentResponse(*assignment), nil
}

func (s *assignmentService) Create(ctx context.Context, courseID uint, actor ActivityActor, payload dto.AssignmentCreateRequest, attachment *dto.UploadedFile) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, validationError(err)
	}

	if _, err := s.authorizeCourse(ctx, courseID, actor); err != nil {
		return dto.AssignmentResponse{}, err
	}

	dueDate, err := payload.ParsedDueDate()
	if err != nil {
		return dto.AssignmentResponse{}, apperrors.Validation("Due date must be an RFC3339 timestamp")
	}

	assignment, err := models.NewAssignment(models.NewAssignmentParams{
		CourseID:            courseID,
		Title:               payload.Title,
		Description:         payload.Description,
		DueDate:             dueDate,
		SubmissionType:      models.SubmissionType(strings.ToUpper(payload.SubmissionType)),
		AcceptedFileFormats: payload.AcceptedFileFormats,
	}, s.now())
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	if attachment != nil {
		url, err := s.uploadAttachment(ctx, courseID, *attachment)
		if err != nil {
			return dto.AssignmentResponse{}, err
		}
		assignment.FileURL = url
	}

	if err := s.repo.Create(ctx, assignment); err != nil {
		return dto.AssignmentResponse{}, apperrors.Internal(err, "failed to create assignment")
	}

	s.logger.Info().Uint("assignment_id", assignment.ID).Uint("course_id", courseID).Msg("assignment created")
	s.followUps.record(ctx, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     ActionAssignmentCreated,
		EntityType: entityTypeAssignment,
		EntityID:   &assignment.ID,
		Metadata:   map[string]interface{}{"course_id": courseID, "title": assignment.Title},
	})
	s.followUps.invalidateCourse(ctx, courseID)

	return dto.NewAssignmentResponse(*assignment), nil
}

func (s *assignmentService) Update(ctx context.Context, id uint, actor ActivityActor, payload dto.AssignmentUpdateRequest) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, validationError(err)
	}
	if payload.Title == nil && payload.Description == nil && payload.DueDate == nil {
		return dto.AssignmentResponse{}, apperrors.Validation("At least one field must be provided")
	}

	assignment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return dto.AssignmentResponse{}, lookupError(err, "Assignment not found")
	}
	if _, err := s.authorizeCourse(ctx, assignment.CourseID, actor); err != nil {
		return dto.AssignmentResponse{}, err
	}

	now := s.now()
	changed := make([]string, 0, 3)
	if payload.Title != nil {
		if err := assignment.UpdateTitle(*payload.Title, now); err != nil {
			return dto.AssignmentResponse{}, err
		}
		changed = append(changed, "title")
	}
	if payload.Description != nil {
		if err := assignment.UpdateDescription(*payload.Description, now); err != nil {
			return dto.AssignmentResponse{}, err
		}
		changed = append(changed, "description")
	}
	if payload.DueDate != nil {
		dueDate, err := time.Parse(time.RFC3339, *payload.DueDate)
		if err != nil {
			return dto.AssignmentResponse{}, apperrors.Validation("Due date must be an RFC3339 timestamp")
		}
		if err := assignment.UpdateDueDate(dueDate, now); err != nil {
			return dto.AssignmentResponse{}, err
		}
		changed = append(changed, "due_date")
	}

	if err := s.repo.Update(ctx, assignment); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, apperrors.NotFound("Assignment not found")
		}
		return dto.AssignmentResponse{}, persistError(err, "failed to update assignment")
	}

	s.logger.Info().Uint("assignment_id", assignment.ID).Strs("fields", changed).Msg("assignment updated")
	s.followUps.record(ctx, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     ActionAssignmentUpdated,
		EntityType: entityTypeAssignment,
		EntityID:   &assignment.ID,
		Metadata:   map[string]interface{}{"fields": changed},
	})
	s.followUps.invalidateCourse(ctx, assignment.CourseID)

	return dto.NewAssignmentResponse(*assignment), nil
}

func (s *assignmentService) Delete(ctx context.Context, id uint, actor ActivityActor) error {
	assignment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return lookupError(err, "Assignment not found")
	}
	if _, err := s.authorizeCourse(ctx, assignment.CourseID, actor); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("Assignment not found")
		}
		return apperrors.Internal(err, "failed to delete assignment")
	}

	s.logger.Info().Uint("assignment_id", id).Msg("assignment deleted")
	s.followUps.record(ctx, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     ActionAssignmentDeleted,
		EntityType: entityTypeAssignment,
		EntityID:   &id,
		Metadata:   map[string]interface{}{"course_id": assignment.CourseID, "grading_started": assignment.GradingStarted},
	})
	s.followUps.invalidateCourse(ctx, assignment.CourseID)
	return nil
}

func (s *assignmentService) authorizeCourse(ctx context.Context, courseID uint, actor ActivityActor) (models.Course, error) {
	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return models.Course{}, lookupError(err, "Course not found")
	}
	if !s.policy.CanManageAssignments(actorUser(actor), course) {
		return models.Course{}, apperrors.Forbidden("You are not allowed to manage assignments for this course")
	}
	if course.IsArchived() {
		return models.Course{}, apperrors.StateConflict("Course is archived")
	}
	return course, nil
}

func (s *assignmentService) uploadAttachment(ctx context.Context, courseID uint, file dto.UploadedFile) (string, error) {
	if s.uploader == nil {
		return "", apperrors.Internal(errors.New("storage not configured"), "file storage is unavailable")
	}
	if file.Size > MaxSubmissionFileSize || int64(len(file.Data)) > MaxSubmissionFileSize {
		return "", apperrors.Validation("Attachment exceeds maximum allowed size of 10 MiB")
	}

	detected := mimetype.Detect(file.Data)
	allowed := false
	for mime := range allowedSubmissionTypes {
		if detected.Is(mime) {
			allowed = true
			break
		}
	}
	if !allowed {
		return "", apperrors.Validation(fmt.Sprintf("Attachment type %s is not allowed", detected.String()))
	}

	stored, err := s.uploader.Upload(ctx, file.Data, storage.UploadOptions{
		OriginalName: file.Name,
		MimeType:     detected.String(),
		Size:         int64(len(file.Data)),
		Directory:    fmt.Sprintf("assignments/%d", courseID),
	})
	if err != nil {
		return "", apperrors.Internal(err, "failed to store attachment")
	}
	return stored.Path, nil
}
