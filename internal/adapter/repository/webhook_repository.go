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
	"gorm.io/gorm/clause"
)

type webhookEventRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewWebhookEventRepository creates a new webhook event repository
func NewWebhookEventRepository(db *gorm.DB, logger *zap.Logger) repository.WebhookEventRepository {
	return &webhookEventRepository{db: db, logger: logger}
}

// Save inserts the event row. A duplicate delivery hits the unique index on
// event_id and is silently ignored; the existing row keeps its status.
func (r *webhookEventRepository) Save(ctx context.Context, event *model.WebhookEvent) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			DoNothing: true,
		}).
		Create(event).Error
	if err != nil {
		r.logger.Error("Failed to save webhook event",
			zap.String("event_id", event.EventID),
			zap.String("event_type", event.EventType),
			zap.Error(err))
		return fmt.Errorf("failed to save webhook event: %w", err)
	}
	return nil
}

func (r *webhookEventRepository) Get(ctx context.Context, eventID string) (*model.WebhookEvent, error) {
	var event model.WebhookEvent

	err := r.db.WithContext(ctx).Where("event_id = ?", eventID).First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get webhook event",
			zap.String("event_id", eventID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get webhook event: %w", err)
	}

	return &event, nil
}

// Claim is a single conditional UPDATE: only a pending or retry-eligible
// failed row can move to processing, so exactly one concurrent delivery wins.
func (r *webhookEventRepository) Claim(ctx context.Context, eventID string) (bool, error) {
	now := time.Now()

	result := r.db.WithContext(ctx).
		Model(&model.WebhookEvent{}).
		Where("event_id = ? AND status IN ? AND (next_retry_at IS NULL OR next_retry_at <= ?)",
			eventID,
			[]model.WebhookStatus{model.WebhookStatusPending, model.WebhookStatusFailed},
			now).
		Updates(map[string]interface{}{
			"status":              model.WebhookStatusProcessing,
			"processing_attempts": gorm.Expr("processing_attempts + 1"),
		})
	if result.Error != nil {
		r.logger.Error("Failed to claim webhook event",
			zap.String("event_id", eventID),
			zap.Error(result.Error))
		return false, fmt.Errorf("failed to claim webhook event: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}

func (r *webhookEventRepository) MarkCompleted(ctx context.Context, eventID string) error {
	now := time.Now()

	result := r.db.WithContext(ctx).
		Model(&model.WebhookEvent{}).
		Where("event_id = ? AND status = ?", eventID, model.WebhookStatusProcessing).
		Updates(map[string]interface{}{
			"status":        model.WebhookStatusCompleted,
			"processed_at":  now,
			"last_error":    nil,
			"next_retry_at": nil,
		})
	if result.Error != nil {
		r.logger.Error("Failed to mark webhook event completed",
			zap.String("event_id", eventID),
			zap.Error(result.Error))
		return fmt.Errorf("failed to mark webhook event completed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("webhook event not in processing state: %s", eventID)
	}
	return nil
}

// MarkFailed records the handler error and schedules the retry window with
// exponential backoff: 5 minutes doubling per attempt, capped at 24 hours.
func (r *webhookEventRepository) MarkFailed(ctx context.Context, eventID string, handlerErr error) error {
	var event model.WebhookEvent
	if err := r.db.WithContext(ctx).Where("event_id = ?", eventID).First(&event).Error; err != nil {
		return fmt.Errorf("failed to load webhook event for failure: %w", err)
	}

	backoff := 5 * time.Minute
	for i := 1; i < event.ProcessingAttempts && backoff < 24*time.Hour; i++ {
		backoff *= 2
	}
	if backoff > 24*time.Hour {
		backoff = 24 * time.Hour
	}

	errMsg := handlerErr.Error()
	nextRetry := time.Now().Add(backoff)

	result := r.db.WithContext(ctx).
		Model(&model.WebhookEvent{}).
		Where("event_id = ? AND status = ?", eventID, model.WebhookStatusProcessing).
		Updates(map[string]interface{}{
			"status":        model.WebhookStatusFailed,
			"last_error":    errMsg,
			"next_retry_at": nextRetry,
		})
	if result.Error != nil {
		r.logger.Error("Failed to mark webhook event failed",
			zap.String("event_id", eventID),
			zap.Error(result.Error))
		return fmt.Errorf("failed to mark webhook event failed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("webhook event not in processing state: %s", eventID)
	}
	return nil
}
