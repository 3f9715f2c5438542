package models

import (
	"strings"
	"time"
)

// User roles recognised by the authorization policy.
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// User represents an account that can teach, submit or administer.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Role      string    `gorm:"size:32;not null" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasRole compares roles case-insensitively.
func (u User) HasRole(role string) bool {
	return strings.EqualFold(strings.TrimSpace(u.Role), role)
}
