package models

import "time"

// Course groups assignments and is owned by a single teacher.
type Course struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	Title       string       `gorm:"size:255;not null" json:"title"`
	TeacherID   uint         `gorm:"not null;index" json:"teacher_id"`
	ArchivedAt  *time.Time   `json:"archived_at"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	Assignments []Assignment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// IsArchived reports whether the course is read-only.
func (c Course) IsArchived() bool {
	return c.ArchivedAt != nil
}

// Enrollment links a student to a course.
type Enrollment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CourseID  uint      `gorm:"not null;uniqueIndex:idx_enrollment_course_student" json:"course_id"`
	StudentID uint      `gorm:"not null;uniqueIndex:idx_enrollment_course_student" json:"student_id"`
	CreatedAt time.Time `json:"created_at"`
}
