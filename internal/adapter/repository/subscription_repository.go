package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aionlinecourses/billing-service/internal/domain/model"
	"github.com/aionlinecourses/billing-service/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type subscriptionRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db *gorm.DB, logger *zap.Logger) repository.SubscriptionRepository {
	return &subscriptionRepository{db: db, logger: logger}
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *model.Subscription) error {
	if err := r.db.WithContext(ctx).Create(sub).Error; err != nil {
		r.logger.Error("Failed to create subscription",
			zap.Int64("user_id", sub.UserID),
			zap.Int64("course_id", sub.CourseID),
			zap.Error(err))
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}

func (r *subscriptionRepository) GetByID(ctx context.Context, id int64) (*model.Subscription, error) {
	var sub model.Subscription

	err := r.db.WithContext(ctx).First(&sub, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get subscription by ID",
			zap.Int64("subscription_id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return &sub, nil
}

func (r *subscriptionRepository) GetActive(ctx context.Context, userID, courseID int64) (*model.Subscription, error) {
	var sub model.Subscription

	err := r.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ? AND status IN ?",
			userID, courseID,
			[]model.SubscriptionStatus{model.SubscriptionStatusActive, model.SubscriptionStatusTrialing}).
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get active subscription",
			zap.Int64("user_id", userID),
			zap.Int64("course_id", courseID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get active subscription: %w", err)
	}

	return &sub, nil
}

func (r *subscriptionRepository) ListByUser(ctx context.Context, userID int64) ([]*model.Subscription, error) {
	var subs []*model.Subscription

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("start_date DESC").
		Find(&subs).Error
	if err != nil {
		r.logger.Error("Failed to list subscriptions by user",
			zap.Int64("user_id", userID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	return subs, nil
}

func (r *subscriptionRepository) ListByDateRange(ctx context.Context, from, to time.Time) ([]*model.Subscription, error) {
	var subs []*model.Subscription

	err := r.db.WithContext(ctx).
		Where("start_date >= ? AND start_date < ?", from, to).
		Order("start_date").
		Find(&subs).Error
	if err != nil {
		r.logger.Error("Failed to list subscriptions by date range",
			zap.Time("from", from),
			zap.Time("to", to),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	return subs, nil
}

func (r *subscriptionRepository) ListDueForRenewal(ctx context.Context, now time.Time) ([]*model.Subscription, error) {
	var subs []*model.Subscription

	err := r.db.WithContext(ctx).
		Where("status IN ? AND next_billing_date <= ?",
			[]model.SubscriptionStatus{
				model.SubscriptionStatusActive,
				model.SubscriptionStatusTrialing,
				model.SubscriptionStatusPastDue,
			},
			now).
		Order("next_billing_date").
		Find(&subs).Error
	if err != nil {
		r.logger.Error("Failed to list subscriptions due for renewal",
			zap.Time("now", now),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list subscriptions due for renewal: %w", err)
	}

	return subs, nil
}

func (r *subscriptionRepository) MarkRenewed(ctx context.Context, id int64, lastBilling, nextBilling time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&model.Subscription{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":            model.SubscriptionStatusActive,
			"last_billing_date": lastBilling,
			"next_billing_date": nextBilling,
		})
	if result.Error != nil {
		r.logger.Error("Failed to mark subscription renewed",
			zap.Int64("subscription_id", id),
			zap.Error(result.Error))
		return fmt.Errorf("failed to mark subscription renewed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("subscription not found: %d", id)
	}
	return nil
}

func (r *subscriptionRepository) Cancel(ctx context.Context, id int64, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&model.Subscription{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      model.SubscriptionStatusCanceled,
			"canceled_at": at,
		})
	if result.Error != nil {
		r.logger.Error("Failed to cancel subscription",
			zap.Int64("subscription_id", id),
			zap.Error(result.Error))
		return fmt.Errorf("failed to cancel subscription: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("subscription not found: %d", id)
	}
	return nil
}

func (r *subscriptionRepository) UpdateStatus(ctx context.Context, id int64, status model.SubscriptionStatus) error {
	result := r.db.WithContext(ctx).
		Model(&model.Subscription{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		r.logger.Error("Failed to update subscription status",
			zap.Int64("subscription_id", id),
			zap.String("status", string(status)),
			zap.Error(result.Error))
		return fmt.Errorf("failed to update subscription status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("subscription not found: %d", id)
	}
	return nil
}

// ExpireElapsed runs before the renewal pass so an elapsed subscription is
// never charged in the same tick.
func (r *subscriptionRepository) ExpireElapsed(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Subscription{}).
		Where("status NOT IN ? AND end_date IS NOT NULL AND end_date <= ?",
			[]model.SubscriptionStatus{model.SubscriptionStatusExpired, model.SubscriptionStatusCanceled},
			now).
		Update("status", model.SubscriptionStatusExpired)
	if result.Error != nil {
		r.logger.Error("Failed to expire elapsed subscriptions",
			zap.Time("now", now),
			zap.Error(result.Error))
		return 0, fmt.Errorf("failed to expire elapsed subscriptions: %w", result.Error)
	}

	return result.RowsAffected, nil
}

func (r *subscriptionRepository) MarkPastDue(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Subscription{}).
		Where("status = ? AND next_billing_date <= ?", model.SubscriptionStatusActive, cutoff).
		Update("status", model.SubscriptionStatusPastDue)
	if result.Error != nil {
		r.logger.Error("Failed to mark subscriptions past due",
			zap.Time("cutoff", cutoff),
			zap.Error(result.Error))
		return 0, fmt.Errorf("failed to mark subscriptions past due: %w", result.Error)
	}

	return result.RowsAffected, nil
}
