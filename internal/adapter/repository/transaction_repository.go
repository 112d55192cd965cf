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

type transactionRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *gorm.DB, logger *zap.Logger) repository.TransactionRepository {
	return &transactionRepository{db: db, logger: logger}
}

func (r *transactionRepository) Create(ctx context.Context, tx *model.Transaction) error {
	if err := r.db.WithContext(ctx).Create(tx).Error; err != nil {
		r.logger.Error("Failed to create transaction",
			zap.Int64("user_id", tx.UserID),
			zap.String("reference", tx.Reference),
			zap.Error(err))
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *transactionRepository) GetByID(ctx context.Context, id int64) (*model.Transaction, error) {
	var tx model.Transaction

	err := r.db.WithContext(ctx).First(&tx, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get transaction by ID",
			zap.Int64("transaction_id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return &tx, nil
}

func (r *transactionRepository) GetByReference(ctx context.Context, reference string) (*model.Transaction, error) {
	var tx model.Transaction

	err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get transaction by reference",
			zap.String("reference", reference),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return &tx, nil
}

func (r *transactionRepository) UpdateStatus(ctx context.Context, id int64, status model.TransactionStatus) error {
	result := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		r.logger.Error("Failed to update transaction status",
			zap.Int64("transaction_id", id),
			zap.String("status", string(status)),
			zap.Error(result.Error))
		return fmt.Errorf("failed to update transaction status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("transaction not found: %d", id)
	}
	return nil
}

func (r *transactionRepository) ListByUser(ctx context.Context, userID int64) ([]*model.Transaction, error) {
	var txs []*model.Transaction

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp DESC").
		Find(&txs).Error
	if err != nil {
		r.logger.Error("Failed to list transactions by user",
			zap.Int64("user_id", userID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	return txs, nil
}

func (r *transactionRepository) ListByDateRange(ctx context.Context, from, to time.Time) ([]*model.Transaction, error) {
	var txs []*model.Transaction

	err := r.db.WithContext(ctx).
		Where("timestamp >= ? AND timestamp < ?", from, to).
		Order("timestamp").
		Find(&txs).Error
	if err != nil {
		r.logger.Error("Failed to list transactions by date range",
			zap.Time("from", from),
			zap.Time("to", to),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	return txs, nil
}

func (r *transactionRepository) HasCompletedPurchase(ctx context.Context, userID, courseID int64) (bool, error) {
	var count int64

	err := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("user_id = ? AND course_id = ? AND status = ?", userID, courseID, model.TransactionStatusCompleted).
		Count(&count).Error
	if err != nil {
		r.logger.Error("Failed to check completed purchase",
			zap.Int64("user_id", userID),
			zap.Int64("course_id", courseID),
			zap.Error(err))
		return false, fmt.Errorf("failed to check completed purchase: %w", err)
	}

	return count > 0, nil
}

// ExpirePending is a single conditional UPDATE so overlapping sweeps cannot
// double-transition a row.
func (r *transactionRepository) ExpirePending(ctx context.Context, olderThan time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("status = ? AND timestamp < ?", model.TransactionStatusPending, olderThan).
		Update("status", model.TransactionStatusExpired)
	if result.Error != nil {
		r.logger.Error("Failed to expire pending transactions",
			zap.Time("older_than", olderThan),
			zap.Error(result.Error))
		return 0, fmt.Errorf("failed to expire pending transactions: %w", result.Error)
	}

	return result.RowsAffected, nil
}
