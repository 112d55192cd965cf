package database

import (
	adapterrepo "github.com/aionlinecourses/billing-service/internal/adapter/repository"
	"github.com/aionlinecourses/billing-service/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Repositories bundles every repository implementation behind its domain
// interface.
type Repositories struct {
	User          repository.UserRepository
	Course        repository.CourseRepository
	PaymentMethod repository.PaymentMethodRepository
	Transaction   repository.TransactionRepository
	Subscription  repository.SubscriptionRepository
	Dispute       repository.DisputeRepository
	WebhookEvent  repository.WebhookEventRepository
}

// NewRepositories creates all repositories
func NewRepositories(db *gorm.DB, logger *zap.Logger) *Repositories {
	return &Repositories{
		User:          adapterrepo.NewUserRepository(db, logger),
		Course:        adapterrepo.NewCourseRepository(db, logger),
		PaymentMethod: adapterrepo.NewPaymentMethodRepository(db, logger),
		Transaction:   adapterrepo.NewTransactionRepository(db, logger),
		Subscription:  adapterrepo.NewSubscriptionRepository(db, logger),
		Dispute:       adapterrepo.NewDisputeRepository(db, logger),
		WebhookEvent:  adapterrepo.NewWebhookEventRepository(db, logger),
	}
}
