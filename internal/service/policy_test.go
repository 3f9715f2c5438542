package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coursework-api/internal/models"
)

func TestRolePolicy(t *testing.T) {
	policy := NewPolicy()
	archivedAt := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	course := models.Course{ID: 1, TeacherID: 10}
	archived := models.Course{ID: 2, TeacherID: 10, ArchivedAt: &archivedAt}

	student := models.User{ID: 20, Role: "Student"}
	owner := models.User{ID: 10, Role: models.RoleTeacher}
	otherTeacher := models.User{ID: 11, Role: models.RoleTeacher}
	admin := models.User{ID: 1, Role: models.RoleAdmin}

	require.True(t, policy.CanSubmitAssignment(student, course, true))
	require.False(t, policy.CanSubmitAssignment(student, course, false))
	require.False(t, policy.CanSubmitAssignment(student, archived, true))
	require.False(t, policy.CanSubmitAssignment(owner, course, true))

	require.True(t, policy.CanGradeSubmissions(owner, course))
	require.True(t, policy.CanGradeSubmissions(admin, course))
	require.False(t, policy.CanGradeSubmissions(otherTeacher, course))
	require.False(t, policy.CanGradeSubmissions(student, course))

	require.True(t, policy.CanManageAssignments(owner, course))
	require.False(t, policy.CanManageAssignments(otherTeacher, course))
}

func TestHTMLSanitizerAllowList(t *testing.T) {
	sanitizer := NewHTMLSanitizer()

	require.Equal(t, "<strong>bold</strong> text", sanitizer.Sanitize(" <strong>bold</strong> text<iframe src=\"x\"></iframe> "))
	require.Equal(t, "", sanitizer.Sanitize("<script>document.cookie</script>"))
	require.Contains(t, sanitizer.Sanitize(`<a href="https://example.com" onclick="x()">link</a>`), `href="https://example.com"`)
	require.NotContains(t, sanitizer.Sanitize(`<a href="javascript:alert(1)">link</a>`), "javascript")
}

func TestNormalizeMimeType(t *testing.T) {
	require.Equal(t, "image/jpeg", normalizeMimeType("IMAGE/JPG"))
	require.Equal(t, "application/pdf", normalizeMimeType("application/pdf; charset=binary"))
}
