package dto

import "time"

// StudentDashboardResponse aggregates coursework progress for a student.
type StudentDashboardResponse struct {
	Summary           ProgressSummary      `json:"summary"`
	Pending           []AssignmentProgress `json:"pending_assignments"`
	RecentSubmissions []SubmissionActivity `json:"recent_submissions"`
	GeneratedAt       time.Time            `json:"generated_at"`
}

// ProgressSummary captures aggregated statistics for the dashboard.
type ProgressSummary struct {
	TotalAssignments int     `json:"total_assignments"`
	Submitted        int     `json:"submitted"`
	Graded           int     `json:"graded"`
	Pending          int     `json:"pending"`
	Overdue          int     `json:"overdue"`
	Late             int     `json:"late"`
	AverageGrade     float64 `json:"average_grade"`
	CompletionRate   float64 `json:"completion_rate"`
}

// AssignmentProgress describes the state of a single assignment relative to a student.
type AssignmentProgress struct {
	AssignmentID   uint      `json:"assignment_id"`
	CourseID       uint      `json:"course_id"`
	Title          string    `json:"title"`
	DueDate        time.Time `json:"due_date"`
	SubmissionType string    `json:"submission_type"`
	Status         string    `json:"status"`
	SubmissionID   *uint     `json:"submission_id"`
	IsLate         bool      `json:"is_late"`
	Grade          *float64  `json:"grade"`
	Feedback       string    `json:"feedback"`
	Locked         bool      `json:"locked"`
	Overdue        bool      `json:"overdue"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// SubmissionActivity details recent submission events for the activity feed.
type SubmissionActivity struct {
	SubmissionID   uint       `json:"submission_id"`
	AssignmentID   uint       `json:"assignment_id"`
	AssignmentName string     `json:"assignment_name"`
	Status         string     `json:"status"`
	IsLate         bool       `json:"is_late"`
	Grade          *float64   `json:"grade"`
	Feedback       string     `json:"feedback"`
	SubmittedAt    *time.Time `json:"submitted_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
