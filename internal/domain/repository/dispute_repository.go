package repository

import (
	"context"
	"time"

	"github.com/aionlinecourses/billing-service/internal/domain/model"
)

// DisputeRepository persists chargeback records.
type DisputeRepository interface {
	Create(ctx context.Context, dispute *model.Dispute) error
	GetByID(ctx context.Context, id int64) (*model.Dispute, error)
	GetByTransactionID(ctx context.Context, transactionID int64) (*model.Dispute, error)
	ListByUser(ctx context.Context, userID int64) ([]*model.Dispute, error)
	ListByDateRange(ctx context.Context, from, to time.Time) ([]*model.Dispute, error)
	UpdateStatus(ctx context.Context, id int64, status model.DisputeStatus, resolution *string, resolvedAt *time.Time) error
	UpdateEvidence(ctx context.Context, id int64, evidence string) error
}
