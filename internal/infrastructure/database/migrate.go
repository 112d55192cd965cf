package database

import (
	"github.com/aionlinecourses/billing-service/internal/domain/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Migrate runs database migrations
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	logger.Info("Running database migrations...")

	err := db.AutoMigrate(
		&model.User{},
		&model.Enrollment{},
		&model.Course{},
		&model.PaymentMethod{},
		&model.Transaction{},
		&model.Subscription{},
		&model.Dispute{},
		&model.WebhookEvent{},
	)
	if err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return err
	}

	if err := createCustomIndexes(db); err != nil {
		logger.Error("Failed to create custom indexes", zap.Error(err))
		return err
	}

	logger.Info("Database migrations completed successfully")
	return nil
}

// createCustomIndexes creates indexes that GORM tags cannot express.
func createCustomIndexes(db *gorm.DB) error {
	// At most one ACTIVE or TRIALING subscription per user/course pair,
	// enforced at the database so concurrent creates cannot race past the
	// application-level check.
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS unique_live_subscription_per_user_course ON subscriptions (user_id, course_id) WHERE status IN ('ACTIVE', 'TRIALING')`).Error; err != nil {
		return err
	}

	// Retry scan for the webhook ingestion path.
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_webhook_events_retryable ON webhook_events (next_retry_at) WHERE status IN ('pending', 'failed')`).Error; err != nil {
		return err
	}

	// Renewal loop scan.
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_subscriptions_due ON subscriptions (next_billing_date) WHERE status IN ('ACTIVE', 'TRIALING', 'PAST_DUE')`).Error; err != nil {
		return err
	}

	return nil
}
