package service

import "github.com/noah-isme/coursework-api/internal/models"

// Policy answers authorization questions for coursework actions.
type Policy interface {
	CanSubmitAssignment(student models.User, course models.Course, isEnrolled bool) bool
	CanGradeSubmissions(grader models.User, course models.Course) bool
	CanManageAssignments(user models.User, course models.Course) bool
}

type rolePolicy struct{}

// NewPolicy returns the role and ownership based policy.
func NewPolicy() Policy {
	return rolePolicy{}
}

// CanSubmitAssignment allows enrolled students of a course that is still open.
func (rolePolicy) CanSubmitAssignment(student models.User, course models.Course, isEnrolled bool) bool {
	return student.HasRole(models.RoleStudent) && isEnrolled && !course.IsArchived()
}

// CanGradeSubmissions allows admins and the teacher who owns the course.
// Archived courses are rejected separately by the grading flow.
func (rolePolicy) CanGradeSubmissions(grader models.User, course models.Course) bool {
	return ownsOrAdministers(grader, course)
}

func (rolePolicy) CanManageAssignments(user models.User, course models.Course) bool {
	return ownsOrAdministers(user, course)
}

func ownsOrAdministers(user models.User, course models.Course) bool {
	if user.HasRole(models.RoleAdmin) {
		return true
	}
	return user.HasRole(models.RoleTeacher) && course.TeacherID == user.ID
}
