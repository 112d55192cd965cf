package repository

import (
	"context"
	"time"

	"github.com/aionlinecourses/billing-service/internal/domain/model"
)

// TransactionRepository persists the append-only payment ledger.
type TransactionRepository interface {
	Create(ctx context.Context, tx *model.Transaction) error
	GetByID(ctx context.Context, id int64) (*model.Transaction, error)
	GetByReference(ctx context.Context, reference string) (*model.Transaction, error)
	UpdateStatus(ctx context.Context, id int64, status model.TransactionStatus) error
	ListByUser(ctx context.Context, userID int64) ([]*model.Transaction, error)
	ListByDateRange(ctx context.Context, from, to time.Time) ([]*model.Transaction, error)
	HasCompletedPurchase(ctx context.Context, userID, courseID int64) (bool, error)

	// ExpirePending moves PENDING rows older than the cutoff to EXPIRED and
	// returns the number of rows affected.
	ExpirePending(ctx context.Context, olderThan time.Time) (int64, error)
}
