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

type disputeRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewDisputeRepository creates a new dispute repository
func NewDisputeRepository(db *gorm.DB, logger *zap.Logger) repository.DisputeRepository {
	return &disputeRepository{db: db, logger: logger}
}

func (r *disputeRepository) Create(ctx context.Context, dispute *model.Dispute) error {
	if err := r.db.WithContext(ctx).Create(dispute).Error; err != nil {
		r.logger.Error("Failed to create dispute",
			zap.Int64("transaction_id", dispute.TransactionID),
			zap.Error(err))
		return fmt.Errorf("failed to create dispute: %w", err)
	}
	return nil
}

func (r *disputeRepository) GetByID(ctx context.Context, id int64) (*model.Dispute, error) {
	var dispute model.Dispute

	err := r.db.WithContext(ctx).First(&dispute, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get dispute by ID",
			zap.Int64("dispute_id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get dispute: %w", err)
	}

	return &dispute, nil
}

func (r *disputeRepository) GetByTransactionID(ctx context.Context, transactionID int64) (*model.Dispute, error) {
	var dispute model.Dispute

	err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		First(&dispute).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get dispute by transaction ID",
			zap.Int64("transaction_id", transactionID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get dispute: %w", err)
	}

	return &dispute, nil
}

func (r *disputeRepository) ListByUser(ctx context.Context, userID int64) ([]*model.Dispute, error) {
	var disputes []*model.Dispute

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&disputes).Error
	if err != nil {
		r.logger.Error("Failed to list disputes by user",
			zap.Int64("user_id", userID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list disputes: %w", err)
	}

	return disputes, nil
}

func (r *disputeRepository) ListByDateRange(ctx context.Context, from, to time.Time) ([]*model.Dispute, error) {
	var disputes []*model.Dispute

	err := r.db.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", from, to).
		Order("created_at").
		Find(&disputes).Error
	if err != nil {
		r.logger.Error("Failed to list disputes by date range",
			zap.Time("from", from),
			zap.Time("to", to),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list disputes: %w", err)
	}

	return disputes, nil
}

func (r *disputeRepository) UpdateStatus(ctx context.Context, id int64, status model.DisputeStatus, resolution *string, resolvedAt *time.Time) error {
	updates := map[string]interface{}{
		"status": status,
	}
	if resolution != nil {
		updates["resolution"] = resolution
	}
	if resolvedAt != nil {
		updates["resolved_at"] = resolvedAt
	}

	result := r.db.WithContext(ctx).
		Model(&model.Dispute{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		r.logger.Error("Failed to update dispute status",
			zap.Int64("dispute_id", id),
			zap.String("status", string(status)),
			zap.Error(result.Error))
		return fmt.Errorf("failed to update dispute status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("dispute not found: %d", id)
	}
	return nil
}

func (r *disputeRepository) UpdateEvidence(ctx context.Context, id int64, evidence string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Dispute{}).
		Where("id = ?", id).
		Update("evidence", evidence)
	if result.Error != nil {
		r.logger.Error("Failed to update dispute evidence",
			zap.Int64("dispute_id", id),
			zap.Error(result.Error))
		return fmt.Errorf("failed to update dispute evidence: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("dispute not found: %d", id)
	}
	return nil
}
