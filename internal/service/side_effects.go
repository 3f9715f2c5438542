package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/noah-isme/coursework-api/internal/events"
	"github.com/noah-isme/coursework-api/internal/models"
	"github.com/noah-isme/coursework-api/internal/observability"
)

// FollowUps bundles the best-effort actions run after a successful write.
// Any field may be nil.
type FollowUps struct {
	Activity  ActivityRecorder
	Publisher events.Publisher
	Dashboard DashboardInvalidator
}

type followUpRunner struct {
	FollowUps
	logger zerolog.Logger
}

func (r followUpRunner) record(ctx context.Context, entry ActivityEntry) {
	if r.Activity == nil {
		return
	}
	if _, err := r.Activity.Record(ctx, entry); err != nil {
		observability.SideEffectErrors().WithLabelValues("activity").Inc()
		r.logger.Warn().Err(err).Str("action", entry.Action).Msg("failed to record activity")
	}
}

func (r followUpRunner) publish(ctx context.Context, eventType string, submission *models.Submission) {
	if r.Publisher == nil {
		return
	}
	payload := events.SubmissionEvent{
		SubmissionID: submission.ID,
		AssignmentID: submission.AssignmentID,
		StudentID:    submission.StudentID,
		Status:       string(submission.Status),
		Version:      submission.Version,
		IsLate:       submission.IsLate,
		Grade:        submission.Grade,
		GradedBy:     submission.GradedBy,
	}
	if err := r.Publisher.Publish(ctx, eventType, payload); err != nil {
		observability.SideEffectErrors().WithLabelValues("publish").Inc()
		r.logger.Warn().Err(err).Str("event", eventType).Uint("submission_id", submission.ID).Msg("failed to publish event")
	}
}

func (r followUpRunner) invalidateDashboard(ctx context.Context, studentID uint) {
	if r.Dashboard == nil {
		return
	}
	if err := r.Dashboard.Invalidate(ctx, studentID); err != nil {
		observability.SideEffectErrors().WithLabelValues("dashboard_cache").Inc()
		r.logger.Warn().Err(err).Uint("student_id", studentID).Msg("failed to invalidate dashboard cache")
	}
}

func (r followUpRunner) invalidateCourse(ctx context.Context, courseID uint) {
	if r.Dashboard == nil {
		return
	}
	if err := r.Dashboard.InvalidateCourse(ctx, courseID); err != nil {
		observability.SideEffectErrors().WithLabelValues("dashboard_cache").Inc()
		r.logger.Warn().Err(err).Uint("course_id", courseID).Msg("failed to invalidate course dashboards")
	}
}
