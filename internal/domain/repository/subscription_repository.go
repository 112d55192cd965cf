package repository

import (
	"context"
	"time"

	"github.com/aionlinecourses/billing-service/internal/domain/model"
)

// SubscriptionRepository persists subscription lifecycle state. The sweep
// methods are single-statement conditional updates so concurrent renewal
// ticks cannot interleave partial transitions on one row.
type SubscriptionRepository interface {
	Create(ctx context.Context, sub *model.Subscription) error
	GetByID(ctx context.Context, id int64) (*model.Subscription, error)

	// GetActive returns the ACTIVE or TRIALING subscription for the pair,
	// or nil when none exists.
	GetActive(ctx context.Context, userID, courseID int64) (*model.Subscription, error)

	ListByUser(ctx context.Context, userID int64) ([]*model.Subscription, error)
	ListByDateRange(ctx context.Context, from, to time.Time) ([]*model.Subscription, error)

	// ListDueForRenewal returns ACTIVE, TRIALING and PAST_DUE subscriptions
	// with NextBillingDate at or before now.
	ListDueForRenewal(ctx context.Context, now time.Time) ([]*model.Subscription, error)

	// MarkRenewed records a successful charge: sets LastBillingDate and
	// NextBillingDate and promotes TRIALING/PAST_DUE rows to ACTIVE.
	MarkRenewed(ctx context.Context, id int64, lastBilling, nextBilling time.Time) error

	// Cancel sets status CANCELED and CanceledAt; access persists until
	// period end, enforced by readers, not by this call.
	Cancel(ctx context.Context, id int64, at time.Time) error

	// UpdateStatus applies a bare status transition (webhook reconciliation).
	UpdateStatus(ctx context.Context, id int64, status model.SubscriptionStatus) error

	// ExpireElapsed moves every non-terminal subscription whose EndDate has
	// passed to EXPIRED and returns the number of rows affected.
	ExpireElapsed(ctx context.Context, now time.Time) (int64, error)

	// MarkPastDue demotes ACTIVE subscriptions whose NextBillingDate is at or
	// before the cutoff (now minus the grace period) to PAST_DUE.
	MarkPastDue(ctx context.Context, cutoff time.Time) (int64, error)
}
