package repository

import (
	"context"

	"github.com/aionlinecourses/billing-service/internal/domain/model"
)

// PaymentMethodRepository persists tokenized payment instruments.
type PaymentMethodRepository interface {
	Create(ctx context.Context, method *model.PaymentMethod) error
	GetByID(ctx context.Context, id, userID int64) (*model.PaymentMethod, error)
	GetDefault(ctx context.Context, userID int64) (*model.PaymentMethod, error)
	ListByUser(ctx context.Context, userID int64) ([]*model.PaymentMethod, error)

	// SetDefault clears every default flag for the user and sets the given
	// method, inside one database transaction. Any interleaving of calls
	// leaves exactly one default row per user.
	SetDefault(ctx context.Context, userID, id int64) error

	Delete(ctx context.Context, id, userID int64) error

	// ListExpiringCards returns card instruments whose expiry falls on or
	// before the given month/year, for renewal reminders.
	ListExpiringCards(ctx context.Context, month, year int) ([]*model.PaymentMethod, error)
}
