package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/aionlinecourses/billing-service/internal/domain/model"
	"github.com/aionlinecourses/billing-service/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type userRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB, logger *zap.Logger) repository.UserRepository {
	return &userRepository{db: db, logger: logger}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		r.logger.Error("Failed to create user",
			zap.String("email", user.Email),
			zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User

	err := r.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get user by ID",
			zap.Int64("user_id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User

	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get user by email",
			zap.String("email", email),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// AddEnrollment grants course access. Duplicate grants are a no-op so a
// replayed payment event never fails here.
func (r *userRepository) AddEnrollment(ctx context.Context, userID, courseID int64) error {
	enrollment := &model.Enrollment{
		UserID:   userID,
		CourseID: courseID,
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(enrollment).Error
	if err != nil {
		r.logger.Error("Failed to add enrollment",
			zap.Int64("user_id", userID),
			zap.Int64("course_id", courseID),
			zap.Error(err))
		return fmt.Errorf("failed to add enrollment: %w", err)
	}

	return nil
}

type courseRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewCourseRepository creates a new course repository
func NewCourseRepository(db *gorm.DB, logger *zap.Logger) repository.CourseRepository {
	return &courseRepository{db: db, logger: logger}
}

func (r *courseRepository) GetByID(ctx context.Context, id int64) (*model.Course, error) {
	var course model.Course

	err := r.db.WithContext(ctx).First(&course, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get course by ID",
			zap.Int64("course_id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get course: %w", err)
	}

	return &course, nil
}

func (r *courseRepository) List(ctx context.Context) ([]*model.Course, error) {
	var courses []*model.Course

	err := r.db.WithContext(ctx).Order("id").Find(&courses).Error
	if err != nil {
		r.logger.Error("Failed to list courses", zap.Error(err))
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}

	return courses, nil
}
