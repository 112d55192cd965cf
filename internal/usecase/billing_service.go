package usecase

import (
	"context"
	"errors"
	"strconv"
	"time"

	domainerrors "github.com/aionlinecourses/billing-service/internal/domain/errors"
	"github.com/aionlinecourses/billing-service/internal/domain/model"
	"github.com/aionlinecourses/billing-service/internal/domain/repository"
	"github.com/aionlinecourses/billing-service/internal/domain/sink"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ChargeExecutor performs a subscription charge and records the ledger rows.
// Implemented by PaymentService.
type ChargeExecutor interface {
	ChargeForSubscription(ctx context.Context, sub *model.Subscription, statement string) (*model.Transaction, error)
}

// BillingService owns the subscription lifecycle: creation with optional
// trial, cancellation, and the periodic renewal cycle.
type BillingService struct {
	subscriptionRepo repository.SubscriptionRepository
	courseRepo       repository.CourseRepository
	userRepo         repository.UserRepository
	charger          ChargeExecutor
	notifier         sink.Notifier
	analytics        sink.Analytics
	logger           *zap.Logger
	now              func() time.Time

	trialPeriod        time.Duration
	gracePeriod        time.Duration
	reminderLeadTime   time.Duration
	renewalConcurrency int
}

// BillingServiceOption configures a BillingService.
type BillingServiceOption func(*BillingService)

// WithBillingClock overrides the wall clock, for tests.
func WithBillingClock(now func() time.Time) BillingServiceOption {
	return func(s *BillingService) { s.now = now }
}

// WithTrialPeriod overrides the default 7-day trial.
func WithTrialPeriod(d time.Duration) BillingServiceOption {
	return func(s *BillingService) { s.trialPeriod = d }
}

// WithGracePeriod overrides the default 3-day grace window.
func WithGracePeriod(d time.Duration) BillingServiceOption {
	return func(s *BillingService) { s.gracePeriod = d }
}

// WithReminderLeadTime overrides how far ahead of the next billing date the
// reminder job notifies users.
func WithReminderLeadTime(d time.Duration) BillingServiceOption {
	return func(s *BillingService) { s.reminderLeadTime = d }
}

// WithRenewalConcurrency bounds parallel charges within one renewal cycle.
func WithRenewalConcurrency(n int) BillingServiceOption {
	return func(s *BillingService) {
		if n > 0 {
			s.renewalConcurrency = n
		}
	}
}

// NewBillingService creates a new billing service
func NewBillingService(
	subscriptionRepo repository.SubscriptionRepository,
	courseRepo repository.CourseRepository,
	userRepo repository.UserRepository,
	charger ChargeExecutor,
	notifier sink.Notifier,
	analytics sink.Analytics,
	logger *zap.Logger,
	opts ...BillingServiceOption,
) *BillingService {
	s := &BillingService{
		subscriptionRepo:   subscriptionRepo,
		courseRepo:         courseRepo,
		userRepo:           userRepo,
		charger:            charger,
		notifier:           notifier,
		analytics:          analytics,
		logger:             logger,
		now:                time.Now,
		trialPeriod:        7 * 24 * time.Hour,
		gracePeriod:        3 * 24 * time.Hour,
		reminderLeadTime:   3 * 24 * time.Hour,
		renewalConcurrency: 8,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSubscriptionInput describes a new subscription request.
type CreateSubscriptionInput struct {
	UserID          int64
	CourseID        int64
	PlanType        model.SubscriptionPlanType
	PaymentMethodID *int64
	Amount          decimal.Decimal
	Currency        string
	WithTrial       bool
}

// CreateSubscription starts a subscription. With a trial the first charge is
// deferred to the trial end; without one the first charge must succeed before
// any subscription row is written.
func (s *BillingService) CreateSubscription(ctx context.Context, input CreateSubscriptionInput) (*model.Subscription, error) {
	course, err := s.courseRepo.GetByID(ctx, input.CourseID)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, domainerrors.ErrCourseNotFound
	}

	existing, err := s.subscriptionRepo.GetActive(ctx, input.UserID, input.CourseID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domainerrors.ErrDuplicateSubscription
	}

	now := s.now()
	sub := &model.Subscription{
		UserID:          input.UserID,
		CourseID:        input.CourseID,
		PaymentMethodID: input.PaymentMethodID,
		PlanType:        input.PlanType,
		Amount:          input.Amount,
		Currency:        input.Currency,
		StartDate:       now,
	}

	if input.WithTrial {
		trialEnd := now.Add(s.trialPeriod)
		sub.Status = model.SubscriptionStatusTrialing
		sub.TrialEndDate = &trialEnd
		sub.NextBillingDate = trialEnd
	} else {
		sub.Status = model.SubscriptionStatusActive
		sub.NextBillingDate = NextBillingDate(now, input.PlanType)
		sub.LastBillingDate = &now

		// The first charge gates the subscription row: a decline leaves a
		// FAILED transaction behind and nothing else.
		if _, err := s.charger.ChargeForSubscription(ctx, sub, "Subscription start"); err != nil {
			return nil, err
		}
	}

	if err := s.subscriptionRepo.Create(ctx, sub); err != nil {
		return nil, err
	}

	if err := s.userRepo.AddEnrollment(ctx, input.UserID, input.CourseID); err != nil {
		s.logger.Error("Failed to enroll user for subscription",
			zap.Int64("user_id", input.UserID),
			zap.Int64("course_id", input.CourseID),
			zap.Error(err))
	}

	s.analytics.LogEvent("subscription_created", map[string]string{
		"subscription_id": strconv.FormatInt(sub.ID, 10),
		"plan_type":       string(input.PlanType),
		"with_trial":      strconv.FormatBool(input.WithTrial),
	})

	return sub, nil
}

// CancelSubscription moves the subscription to CANCELED with period-end
// semantics: access is not revoked here, readers honor the paid-through date.
func (s *BillingService) CancelSubscription(ctx context.Context, id, userID int64) error {
	sub, err := s.subscriptionRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if sub == nil || sub.UserID != userID {
		return domainerrors.ErrSubscriptionNotFound
	}
	if sub.Status.IsTerminal() {
		return domainerrors.ErrSubscriptionTerminal
	}

	if err := s.subscriptionRepo.Cancel(ctx, id, s.now()); err != nil {
		return err
	}

	s.analytics.LogEvent("subscription_canceled", map[string]string{
		"subscription_id": strconv.FormatInt(id, 10),
		"plan_type":       string(sub.PlanType),
	})

	return nil
}

// ListSubscriptions returns the user's subscriptions, newest first.
func (s *BillingService) ListSubscriptions(ctx context.Context, userID int64) ([]*model.Subscription, error) {
	return s.subscriptionRepo.ListByUser(ctx, userID)
}

// GetSubscription returns one subscription owned by the user.
func (s *BillingService) GetSubscription(ctx context.Context, id, userID int64) (*model.Subscription, error) {
	sub, err := s.subscriptionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub == nil || sub.UserID != userID {
		return nil, domainerrors.ErrSubscriptionNotFound
	}
	return sub, nil
}

// RunRenewalCycle is one tick of the billing loop, in three ordered passes:
//
//  1. expiry sweep: elapsed subscriptions leave the billable set before any
//     charge is attempted, so expiration wins over renewal;
//  2. due renewals: bounded-concurrency charges with per-subscription
//     isolation, one failure never stops the batch;
//  3. overdue sweep: ACTIVE rows past the grace window demote to PAST_DUE.
func (s *BillingService) RunRenewalCycle(ctx context.Context) error {
	now := s.now()

	expired, err := s.subscriptionRepo.ExpireElapsed(ctx, now)
	if err != nil {
		return err
	}
	if expired > 0 {
		s.logger.Info("Expired elapsed subscriptions", zap.Int64("count", expired))
	}

	due, err := s.subscriptionRepo.ListDueForRenewal(ctx, now)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.renewalConcurrency)
	for _, sub := range due {
		sub := sub
		g.Go(func() error {
			s.renewOne(gctx, sub, now)
			return nil
		})
	}
	_ = g.Wait()

	demoted, err := s.subscriptionRepo.MarkPastDue(ctx, now.Add(-s.gracePeriod))
	if err != nil {
		return err
	}
	if demoted > 0 {
		s.logger.Info("Marked overdue subscriptions past due", zap.Int64("count", demoted))
	}

	s.logger.Info("Renewal cycle finished",
		zap.Int("due", len(due)),
		zap.Int64("expired", expired),
		zap.Int64("past_due", demoted))
	return nil
}

// renewOne charges a single due subscription. Failures are logged and left
// for the grace machinery; dates only move on a successful charge.
func (s *BillingService) renewOne(ctx context.Context, sub *model.Subscription, now time.Time) {
	_, err := s.charger.ChargeForSubscription(ctx, sub, "Subscription renewal")
	if err != nil {
		if errors.Is(err, domainerrors.ErrChargeDeclined) {
			s.logger.Warn("Renewal charge declined",
				zap.Int64("subscription_id", sub.ID),
				zap.Int64("user_id", sub.UserID))
		} else {
			s.logger.Error("Renewal charge errored",
				zap.Int64("subscription_id", sub.ID),
				zap.Error(err))
		}
		return
	}

	next := NextBillingDate(now, sub.PlanType)
	if err := s.subscriptionRepo.MarkRenewed(ctx, sub.ID, now, next); err != nil {
		// Charge landed but the row did not advance; the next tick will
		// re-bill unless reconciled. Logged loudly for the ops runbook.
		s.logger.Error("Renewal charge succeeded but date advance failed",
			zap.Int64("subscription_id", sub.ID),
			zap.Error(err))
		return
	}

	s.analytics.LogEvent("subscription_renewed", map[string]string{
		"subscription_id": strconv.FormatInt(sub.ID, 10),
		"plan_type":       string(sub.PlanType),
	})
}

// SendRenewalReminders notifies users whose next billing date falls inside
// the reminder lead window. Trial subscriptions are included so users hear
// about the first real charge before it lands. Notifications are
// fire-and-forget; the job never fails on a delivery problem.
func (s *BillingService) SendRenewalReminders(ctx context.Context) (int, error) {
	now := s.now()
	upcoming, err := s.subscriptionRepo.ListDueForRenewal(ctx, now.Add(s.reminderLeadTime))
	if err != nil {
		return 0, err
	}

	for _, sub := range upcoming {
		s.notifier.Notify(ctx, sub.UserID, sink.NotifyRenewalReminder, map[string]string{
			"subscription_id":   strconv.FormatInt(sub.ID, 10),
			"plan_type":         string(sub.PlanType),
			"amount":            sub.Amount.StringFixed(2),
			"currency":          sub.Currency,
			"next_billing_date": sub.NextBillingDate.Format(time.RFC3339),
		})
	}

	if len(upcoming) > 0 {
		s.logger.Info("Sent renewal reminders", zap.Int("count", len(upcoming)))
	}
	return len(upcoming), nil
}
