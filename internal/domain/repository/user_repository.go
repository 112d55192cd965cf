package repository

import (
	"context"

	"github.com/aionlinecourses/billing-service/internal/domain/model"
)

// UserRepository persists marketplace accounts and their course enrollments.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	AddEnrollment(ctx context.Context, userID, courseID int64) error
}

// CourseRepository reads immutable course reference data.
type CourseRepository interface {
	GetByID(ctx context.Context, id int64) (*model.Course, error)
	List(ctx context.Context) ([]*model.Course, error)
}
