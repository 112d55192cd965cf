package model

import (
	"time"

	"gorm.io/gorm"
)

// User represents a marketplace account. Rows are soft-deleted only; billing
// history must keep resolving user ids after account removal.
type User struct {
	ID              int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Email           string         `gorm:"uniqueIndex;not null;size:255" json:"email"`
	DisplayName     string         `gorm:"not null;size:100" json:"display_name"`
	ProfileImageURL string         `gorm:"size:512" json:"profile_image_url,omitempty"`
	CreatedAt       time.Time      `gorm:"default:now()" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"default:now()" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`

	Enrollments []Enrollment `gorm:"foreignKey:UserID" json:"enrollments,omitempty"`
}

// Enrollment links a user to a course they have access to.
type Enrollment struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"not null;uniqueIndex:idx_enrollment_user_course" json:"user_id"`
	CourseID  int64     `gorm:"not null;uniqueIndex:idx_enrollment_user_course" json:"course_id"`
	CreatedAt time.Time `gorm:"default:now()" json:"created_at"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

// TableName specifies the table name for GORM
func (Enrollment) TableName() string {
	return "enrollments"
}
