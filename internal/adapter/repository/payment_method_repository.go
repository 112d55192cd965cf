package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/aionlinecourses/billing-service/internal/domain/model"
	"github.com/aionlinecourses/billing-service/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type paymentMethodRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewPaymentMethodRepository creates a new payment method repository
func NewPaymentMethodRepository(db *gorm.DB, logger *zap.Logger) repository.PaymentMethodRepository {
	return &paymentMethodRepository{db: db, logger: logger}
}

func (r *paymentMethodRepository) Create(ctx context.Context, method *model.PaymentMethod) error {
	if err := r.db.WithContext(ctx).Create(method).Error; err != nil {
		r.logger.Error("Failed to create payment method",
			zap.Int64("user_id", method.UserID),
			zap.String("type", string(method.Type)),
			zap.Error(err))
		return fmt.Errorf("failed to create payment method: %w", err)
	}
	return nil
}

func (r *paymentMethodRepository) GetByID(ctx context.Context, id, userID int64) (*model.PaymentMethod, error) {
	var method model.PaymentMethod

	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&method).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get payment method",
			zap.Int64("payment_method_id", id),
			zap.Int64("user_id", userID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get payment method: %w", err)
	}

	return &method, nil
}

func (r *paymentMethodRepository) GetDefault(ctx context.Context, userID int64) (*model.PaymentMethod, error) {
	var method model.PaymentMethod

	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_default = ?", userID, true).
		First(&method).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get default payment method",
			zap.Int64("user_id", userID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get default payment method: %w", err)
	}

	return &method, nil
}

func (r *paymentMethodRepository) ListByUser(ctx context.Context, userID int64) ([]*model.PaymentMethod, error) {
	var methods []*model.PaymentMethod

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default DESC, id").
		Find(&methods).Error
	if err != nil {
		r.logger.Error("Failed to list payment methods",
			zap.Int64("user_id", userID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list payment methods: %w", err)
	}

	return methods, nil
}

// SetDefault clears the old default and sets the new one in a single database
// transaction, so concurrent calls leave exactly one default per user.
func (r *paymentMethodRepository) SetDefault(ctx context.Context, userID, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var method model.PaymentMethod
		err := tx.Where("id = ? AND user_id = ?", id, userID).First(&method).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("payment method not found: %d", id)
			}
			return fmt.Errorf("failed to check payment method: %w", err)
		}

		err = tx.Model(&model.PaymentMethod{}).
			Where("user_id = ? AND is_default = ?", userID, true).
			Update("is_default", false).Error
		if err != nil {
			r.logger.Error("Failed to clear default payment method",
				zap.Int64("user_id", userID),
				zap.Error(err))
			return fmt.Errorf("failed to clear default payment method: %w", err)
		}

		err = tx.Model(&model.PaymentMethod{}).
			Where("id = ?", id).
			Update("is_default", true).Error
		if err != nil {
			r.logger.Error("Failed to set default payment method",
				zap.Int64("payment_method_id", id),
				zap.Int64("user_id", userID),
				zap.Error(err))
			return fmt.Errorf("failed to set default payment method: %w", err)
		}

		return nil
	})
}

func (r *paymentMethodRepository) Delete(ctx context.Context, id, userID int64) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&model.PaymentMethod{})
	if result.Error != nil {
		r.logger.Error("Failed to delete payment method",
			zap.Int64("payment_method_id", id),
			zap.Int64("user_id", userID),
			zap.Error(result.Error))
		return fmt.Errorf("failed to delete payment method: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("payment method not found: %d", id)
	}
	return nil
}

func (r *paymentMethodRepository) ListExpiringCards(ctx context.Context, month, year int) ([]*model.PaymentMethod, error) {
	var methods []*model.PaymentMethod

	err := r.db.WithContext(ctx).
		Where("type IN ?", []model.PaymentMethodType{model.PaymentMethodTypeCreditCard, model.PaymentMethodTypeDebitCard}).
		Where("expiry_year < ? OR (expiry_year = ? AND expiry_month <= ?)", year, year, month).
		Find(&methods).Error
	if err != nil {
		r.logger.Error("Failed to list expiring cards",
			zap.Int("month", month),
			zap.Int("year", year),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list expiring cards: %w", err)
	}

	return methods, nil
}
