package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/noah-isme/coursework-api/pkg/errors"
)

var referenceNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func validAssignmentParams() NewAssignmentParams {
	return NewAssignmentParams{
		CourseID:       7,
		Title:          "Essay on distributed systems",
		Description:    "Explain consensus in your own words",
		DueDate:        referenceNow.Add(7 * 24 * time.Hour),
		SubmissionType: SubmissionTypeText,
	}
}

func TestNewAssignmentValidatesInvariants(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(p *NewAssignmentParams)
	}{
		{"empty title", func(p *NewAssignmentParams) { p.Title = "  " }},
		{"empty description", func(p *NewAssignmentParams) { p.Description = "" }},
		{"past due date", func(p *NewAssignmentParams) { p.DueDate = referenceNow.Add(-time.Minute) }},
		{"due date equal to now", func(p *NewAssignmentParams) { p.DueDate = referenceNow }},
		{"unknown submission type", func(p *NewAssignmentParams) { p.SubmissionType = "VIDEO" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			params := validAssignmentParams()
			tc.mutate(&params)
			_, err := NewAssignment(params, referenceNow)
			require.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}
}

func TestNewAssignmentNormalizesFormats(t *testing.T) {
	params := validAssignmentParams()
	params.SubmissionType = SubmissionTypeFile
	params.AcceptedFileFormats = []string{".PDF", "docx", "pdf", " "}

	assignment, err := NewAssignment(params, referenceNow)
	require.NoError(t, err)
	require.Equal(t, []string{"pdf", "docx"}, []string(assignment.AcceptedFileFormats))
	require.True(t, assignment.AcceptsExtension(".pdf"))
	require.False(t, assignment.AcceptsExtension("png"))
	require.False(t, assignment.GradingStarted)
	require.Equal(t, referenceNow, assignment.CreatedAt)
}

func TestReconstituteAssignmentAllowsPastDueDate(t *testing.T) {
	row := Assignment{
		ID:             3,
		CourseID:       1,
		Title:          "Archived lab",
		Description:    "Historic record",
		DueDate:        referenceNow.AddDate(-1, 0, 0),
		SubmissionType: SubmissionTypeBoth,
	}

	assignment, err := ReconstituteAssignment(row)
	require.NoError(t, err)
	require.True(t, assignment.IsPastDueDate(referenceNow))

	row.Title = ""
	_, err = ReconstituteAssignment(row)
	require.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestAssignmentEditWindowOpen(t *testing.T) {
	assignment, err := NewAssignment(validAssignmentParams(), referenceNow)
	require.NoError(t, err)

	later := referenceNow.Add(time.Hour)
	require.NoError(t, assignment.UpdateTitle("Revised title", later))
	require.NoError(t, assignment.UpdateDescription("Revised description", later))
	require.NoError(t, assignment.UpdateDueDate(referenceNow.Add(14*24*time.Hour), later))
	require.Equal(t, "Revised title", assignment.Title)
	require.Equal(t, later, assignment.UpdatedAt)
}

func TestAssignmentEditWindowClosedAfterDueDate(t *testing.T) {
	assignment, err := NewAssignment(validAssignmentParams(), referenceNow)
	require.NoError(t, err)
	afterDue := assignment.DueDate.Add(time.Minute)

	err = assignment.UpdateTitle("x", afterDue)
	require.ErrorIs(t, err, apperrors.ErrStateConflict)
	require.Equal(t, "Cannot edit assignment after due date", apperrors.FromError(err).Message)

	require.ErrorIs(t, assignment.UpdateDescription("new", afterDue), apperrors.ErrStateConflict)
	require.ErrorIs(t, assignment.UpdateDueDate(afterDue.Add(time.Hour), afterDue), apperrors.ErrStateConflict)
	require.Equal(t, "Essay on distributed systems", assignment.Title)
}

func TestAssignmentEditWindowClosedAfterGradingStarted(t *testing.T) {
	assignment, err := NewAssignment(validAssignmentParams(), referenceNow)
	require.NoError(t, err)
	require.NoError(t, assignment.StartGrading(referenceNow))

	require.ErrorIs(t, assignment.UpdateTitle("x", referenceNow), apperrors.ErrStateConflict)
	require.ErrorIs(t, assignment.UpdateDescription("y", referenceNow), apperrors.ErrStateConflict)
	require.ErrorIs(t, assignment.UpdateDueDate(referenceNow.Add(time.Hour), referenceNow), apperrors.ErrStateConflict)
	require.False(t, assignment.CanAcceptSubmissions())
}

func TestAssignmentUpdateValidatesBeforeWindow(t *testing.T) {
	assignment, err := NewAssignment(validAssignmentParams(), referenceNow)
	require.NoError(t, err)

	require.ErrorIs(t, assignment.UpdateTitle("", referenceNow), apperrors.ErrValidation)
	require.ErrorIs(t, assignment.UpdateDueDate(referenceNow.Add(-time.Hour), referenceNow), apperrors.ErrValidation)
}

func TestAssignmentStartGradingIsOneWay(t *testing.T) {
	assignment, err := NewAssignment(validAssignmentParams(), referenceNow)
	require.NoError(t, err)

	locked := referenceNow.Add(time.Minute)
	require.NoError(t, assignment.StartGrading(locked))
	require.True(t, assignment.GradingStarted)
	require.Equal(t, locked, assignment.UpdatedAt)

	err = assignment.StartGrading(locked.Add(time.Minute))
	require.ErrorIs(t, err, apperrors.ErrStateConflict)
	require.True(t, assignment.GradingStarted)
	require.Equal(t, locked, assignment.UpdatedAt)
}

func TestAssignmentLateness(t *testing.T) {
	assignment, err := NewAssignment(validAssignmentParams(), referenceNow)
	require.NoError(t, err)

	require.False(t, assignment.IsSubmissionLate(assignment.DueDate))
	require.True(t, assignment.IsSubmissionLate(assignment.DueDate.Add(time.Second)))
	require.True(t, assignment.CanAcceptSubmissions())
}
