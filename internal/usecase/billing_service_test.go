package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	domainerrors "github.com/aionlinecourses/billing-service/internal/domain/errors"
	"github.com/aionlinecourses/billing-service/internal/domain/model"
	"github.com/aionlinecourses/billing-service/internal/domain/sink"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

var billingNow = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

func newBillingService(
	subscriptionRepo *MockSubscriptionRepository,
	userRepo *MockUserRepository,
	charger *MockChargeExecutor,
) *BillingService {
	courseRepo := new(MockCourseRepository)
	courseRepo.On("GetByID", mock.Anything, mock.Anything).
		Return(&model.Course{ID: 10, Title: "Distributed Systems"}, nil).Maybe()
	return NewBillingService(
		subscriptionRepo,
		courseRepo,
		userRepo,
		charger,
		sink.NopNotifier{},
		sink.NopAnalytics{},
		zap.NewNop(),
		WithBillingClock(func() time.Time { return billingNow }),
	)
}

func TestCreateSubscription_WithTrialDefersFirstCharge(t *testing.T) {
	subscriptionRepo := new(MockSubscriptionRepository)
	userRepo := new(MockUserRepository)
	charger := new(MockChargeExecutor)
	service := newBillingService(subscriptionRepo, userRepo, charger)

	subscriptionRepo.On("GetActive", mock.Anything, int64(1), int64(10)).Return(nil, nil)
	subscriptionRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.Subscription")).Return(nil)
	userRepo.On("AddEnrollment", mock.Anything, int64(1), int64(10)).Return(nil)

	sub, err := service.CreateSubscription(context.Background(), CreateSubscriptionInput{
		UserID:    1,
		CourseID:  10,
		PlanType:  model.PlanTypeMonthly,
		Amount:    decimal.NewFromInt(29),
		Currency:  "USD",
		WithTrial: true,
	})

	assert.NoError(t, err)
	assert.Equal(t, model.SubscriptionStatusTrialing, sub.Status)
	trialEnd := billingNow.Add(7 * 24 * time.Hour)
	assert.Equal(t, trialEnd, *sub.TrialEndDate)
	assert.Equal(t, trialEnd, sub.NextBillingDate)
	assert.Nil(t, sub.LastBillingDate)

	charger.AssertNotCalled(t, "ChargeForSubscription", mock.Anything, mock.Anything, mock.Anything)
	subscriptionRepo.AssertExpectations(t)
}

func TestCreateSubscription_WithoutTrialChargesImmediately(t *testing.T) {
	subscriptionRepo := new(MockSubscriptionRepository)
	userRepo := new(MockUserRepository)
	charger := new(MockChargeExecutor)
	service := newBillingService(subscriptionRepo, userRepo, charger)

	subscriptionRepo.On("GetActive", mock.Anything, int64(1), int64(10)).Return(nil, nil)
	charger.On("ChargeForSubscription", mock.Anything, mock.AnythingOfType("*model.Subscription"), "Subscription start").
		Return(&model.Transaction{Status: model.TransactionStatusCompleted}, nil)
	subscriptionRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.Subscription")).Return(nil)
	userRepo.On("AddEnrollment", mock.Anything, int64(1), int64(10)).Return(nil)

	sub, err := service.CreateSubscription(context.Background(), CreateSubscriptionInput{
		UserID:   1,
		CourseID: 10,
		PlanType: model.PlanTypeMonthly,
		Amount:   decimal.NewFromInt(29),
		Currency: "USD",
	})

	assert.NoError(t, err)
	assert.Equal(t, model.SubscriptionStatusActive, sub.Status)
	assert.Equal(t, NextBillingDate(billingNow, model.PlanTypeMonthly), sub.NextBillingDate)
	assert.Equal(t, billingNow, *sub.LastBillingDate)

	charger.AssertExpectations(t)
	subscriptionRepo.AssertExpectations(t)
}

func TestCreateSubscription_DeclinedFirstChargeWritesNoRow(t *testing.T) {
	subscriptionRepo := new(MockSubscriptionRepository)
	userRepo := new(MockUserRepository)
	charger := new(MockChargeExecutor)
	service := newBillingService(subscriptionRepo, userRepo, charger)

	subscriptionRepo.On("GetActive", mock.Anything, int64(1), int64(10)).Return(nil, nil)
	charger.On("ChargeForSubscription", mock.Anything, mock.Anything, mock.Anything).
		Return(&model.Transaction{Status: model.TransactionStatusFailed},
			fmt.Errorf("%w: card declined", domainerrors.ErrChargeDeclined))

	sub, err := service.CreateSubscription(context.Background(), CreateSubscriptionInput{
		UserID:   1,
		CourseID: 10,
		PlanType: model.PlanTypeMonthly,
		Amount:   decimal.NewFromInt(29),
		Currency: "USD",
	})

	assert.Nil(t, sub)
	assert.True(t, errors.Is(err, domainerrors.ErrChargeDeclined))

	subscriptionRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	userRepo.AssertNotCalled(t, "AddEnrollment", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateSubscription_RejectsUnknownCourse(t *testing.T) {
	subscriptionRepo := new(MockSubscriptionRepository)
	courseRepo := new(MockCourseRepository)
	charger := new(MockChargeExecutor)
	service := NewBillingService(
		subscriptionRepo,
		courseRepo,
		new(MockUserRepository),
		charger,
		sink.NopNotifier{},
		sink.NopAnalytics{},
		zap.NewNop(),
		WithBillingClock(func() time.Time { return billingNow }),
	)

	courseRepo.On("GetByID", mock.Anything, int64(404)).Return(nil, nil)

	sub, err := service.CreateSubscription(context.Background(), CreateSubscriptionInput{
		UserID:   1,
		CourseID: 404,
		PlanType: model.PlanTypeMonthly,
		Amount:   decimal.NewFromInt(29),
	})

	assert.Nil(t, sub)
	assert.ErrorIs(t, err, domainerrors.ErrCourseNotFound)
	subscriptionRepo.AssertNotCalled(t, "GetActive", mock.Anything, mock.Anything, mock.Anything)
	charger.AssertNotCalled(t, "ChargeForSubscription", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateSubscription_RejectsDuplicate(t *testing.T) {
	subscriptionRepo := new(MockSubscriptionRepository)
	userRepo := new(MockUserRepository)
	charger := new(MockChargeExecutor)
	service := newBillingService(subscriptionRepo, userRepo, charger)

	subscriptionRepo.On("GetActive", mock.Anything, int64(1), int64(10)).
		Return(&model.Subscription{ID: 5, Status: model.SubscriptionStatusActive}, nil)

	sub, err := service.CreateSubscription(context.Background(), CreateSubscriptionInput{
		UserID:   1,
		CourseID: 10,
		PlanType: model.PlanTypeMonthly,
		Amount:   decimal.NewFromInt(29),
	})

	assert.Nil(t, sub)
	assert.ErrorIs(t, err, domainerrors.ErrDuplicateSubscription)
	charger.AssertNotCalled(t, "ChargeForSubscription", mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelSubscription_Succeeds(t *testing.T) {
	subscriptionRepo := new(MockSubscriptionRepository)
	service := newBillingService(subscriptionRepo, new(MockUserRepository), new(MockChargeExecutor))

	subscriptionRepo.On("GetByID", mock.Anything, int64(7)).
		Return(&model.Subscription{ID: 7, UserID: 1, Status: model.SubscriptionStatusActive}, nil)
	subscriptionRepo.On("Cancel", mock.Anything, int64(7), billingNow).Return(nil)

	err := service.CancelSubscription(context.Background(), 7, 1)

	assert.NoError(t, err)
	subscriptionRepo.AssertExpectations(t)
}

func TestCancelSubscription_RejectsTerminal(t *testing.T) {
	subscriptionRepo := new(MockSubscriptionRepository)
	service := newBillingService(subscriptionRepo, new(MockUserRepository), new(MockChargeExecutor))

	subscriptionRepo.On("GetByID", mock.Anything, int64(7)).
		Return(&model.Subscription{ID: 7, UserID: 1, Status: model.SubscriptionStatusCanceled}, nil)

	err := service.CancelSubscription(context.Background(), 7, 1)

	assert.ErrorIs(t, err, domainerrors.ErrSubscriptionTerminal)
	subscriptionRepo.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelSubscription_HidesOtherUsersSubscriptions(t *testing.T) {
	subscriptionRepo := new(MockSubscriptionRepository)
	service := newBillingService(subscriptionRepo, new(MockUserRepository), new(MockChargeExecutor))

	subscriptionRepo.On("GetByID", mock.Anything, int64(7)).
		Return(&model.Subscription{ID: 7, UserID: 99, Status: model.SubscriptionStatusActive}, nil)

	err := service.CancelSubscription(context.Background(), 7, 1)

	assert.ErrorIs(t, err, domainerrors.ErrSubscriptionNotFound)
}

func TestRunRenewalCycle_RenewsDueSubscriptions(t *testing.T) {
	subscriptionRepo := new(MockSubscriptionRepository)
	charger := new(MockChargeExecutor)
	service := newBillingService(subscriptionRepo, new(MockUserRepository), charger)

	due := &model.Subscription{
		ID:       3,
		UserID:   1,
		CourseID: 10,
		PlanType: model.PlanTypeMonthly,
		Status:   model.SubscriptionStatusActive,
		Amount:   decimal.NewFromInt(29),
		Currency: "USD",
	}

	subscriptionRepo.On("ExpireElapsed", mock.Anything, billingNow).Return(int64(0), nil)
	subscriptionRepo.On("ListDueForRenewal", mock.Anything, billingNow).
		Return([]*model.Subscription{due}, nil)
	charger.On("ChargeForSubscription", mock.Anything, due, "Subscription renewal").
		Return(&model.Transaction{Status: model.TransactionStatusCompleted}, nil)
	subscriptionRepo.On("MarkRenewed", mock.Anything, int64(3), billingNow,
		NextBillingDate(billingNow, model.PlanTypeMonthly)).Return(nil)
	subscriptionRepo.On("MarkPastDue", mock.Anything, billingNow.Add(-3*24*time.Hour)).
		Return(int64(0), nil)

	err := service.RunRenewalCycle(context.Background())

	assert.NoError(t, err)
	subscriptionRepo.AssertExpectations(t)
	charger.AssertExpectations(t)
}

func TestRunRenewalCycle_DeclineLeavesDatesUntouched(t *testing.T) {
	subscriptionRepo := new(MockSubscriptionRepository)
	charger := new(MockChargeExecutor)
	service := newBillingService(subscriptionRepo, new(MockUserRepository), charger)

	due := &model.Subscription{
		ID:       3,
		UserID:   1,
		PlanType: model.PlanTypeMonthly,
		Status:   model.SubscriptionStatusActive,
	}

	subscriptionRepo.On("ExpireElapsed", mock.Anything, billingNow).Return(int64(0), nil)
	subscriptionRepo.On("ListDueForRenewal", mock.Anything, billingNow).
		Return([]*model.Subscription{due}, nil)
	charger.On("ChargeForSubscription", mock.Anything, due, "Subscription renewal").
		Return(&model.Transaction{Status: model.TransactionStatusFailed},
			fmt.Errorf("%w: insufficient funds", domainerrors.ErrChargeDeclined))
	subscriptionRepo.On("MarkPastDue", mock.Anything, mock.Anything).Return(int64(0), nil)

	err := service.RunRenewalCycle(context.Background())

	// One declined charge never fails the cycle.
	assert.NoError(t, err)
	subscriptionRepo.AssertNotCalled(t, "MarkRenewed", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRunRenewalCycle_OneFailureDoesNotStopTheBatch(t *testing.T) {
	subscriptionRepo := new(MockSubscriptionRepository)
	charger := new(MockChargeExecutor)
	service := newBillingService(subscriptionRepo, new(MockUserRepository), charger)

	declined := &model.Subscription{ID: 3, UserID: 1, PlanType: model.PlanTypeMonthly}
	renewable := &model.Subscription{ID: 4, UserID: 2, PlanType: model.PlanTypeMonthly}

	subscriptionRepo.On("ExpireElapsed", mock.Anything, billingNow).Return(int64(0), nil)
	subscriptionRepo.On("ListDueForRenewal", mock.Anything, billingNow).
		Return([]*model.Subscription{declined, renewable}, nil)
	charger.On("ChargeForSubscription", mock.Anything, declined, mock.Anything).
		Return(nil, fmt.Errorf("%w: expired card", domainerrors.ErrChargeDeclined))
	charger.On("ChargeForSubscription", mock.Anything, renewable, mock.Anything).
		Return(&model.Transaction{Status: model.TransactionStatusCompleted}, nil)
	subscriptionRepo.On("MarkRenewed", mock.Anything, int64(4), billingNow,
		NextBillingDate(billingNow, model.PlanTypeMonthly)).Return(nil)
	subscriptionRepo.On("MarkPastDue", mock.Anything, mock.Anything).Return(int64(0), nil)

	err := service.RunRenewalCycle(context.Background())

	assert.NoError(t, err)
	subscriptionRepo.AssertExpectations(t)
	charger.AssertExpectations(t)
}

func TestRunRenewalCycle_ExpirySweepRunsBeforeCharges(t *testing.T) {
	subscriptionRepo := new(MockSubscriptionRepository)
	charger := new(MockChargeExecutor)
	service := newBillingService(subscriptionRepo, new(MockUserRepository), charger)

	var order []string
	subscriptionRepo.On("ExpireElapsed", mock.Anything, billingNow).
		Run(func(mock.Arguments) { order = append(order, "expire") }).
		Return(int64(2), nil)
	subscriptionRepo.On("ListDueForRenewal", mock.Anything, billingNow).
		Run(func(mock.Arguments) { order = append(order, "list") }).
		Return(nil, nil)
	subscriptionRepo.On("MarkPastDue", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { order = append(order, "past_due") }).
		Return(int64(1), nil)

	err := service.RunRenewalCycle(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, []string{"expire", "list", "past_due"}, order)
}

func TestRunRenewalCycle_TrialingSubscriptionConvertsOnSuccess(t *testing.T) {
	subscriptionRepo := new(MockSubscriptionRepository)
	charger := new(MockChargeExecutor)
	service := newBillingService(subscriptionRepo, new(MockUserRepository), charger)

	trialEnd := billingNow.Add(-time.Hour)
	trialing := &model.Subscription{
		ID:              3,
		UserID:          1,
		CourseID:        10,
		PlanType:        model.PlanTypeMonthly,
		Status:          model.SubscriptionStatusTrialing,
		Amount:          decimal.NewFromInt(29),
		Currency:        "USD",
		TrialEndDate:    &trialEnd,
		NextBillingDate: trialEnd,
	}

	subscriptionRepo.On("ExpireElapsed", mock.Anything, billingNow).Return(int64(0), nil)
	subscriptionRepo.On("ListDueForRenewal", mock.Anything, billingNow).
		Return([]*model.Subscription{trialing}, nil)
	charger.On("ChargeForSubscription", mock.Anything, trialing, "Subscription renewal").
		Return(&model.Transaction{Status: model.TransactionStatusCompleted}, nil)
	// MarkRenewed promotes the TRIALING row to ACTIVE alongside the dates.
	subscriptionRepo.On("MarkRenewed", mock.Anything, int64(3), billingNow,
		NextBillingDate(billingNow, model.PlanTypeMonthly)).Return(nil)
	subscriptionRepo.On("MarkPastDue", mock.Anything, mock.Anything).Return(int64(0), nil)

	err := service.RunRenewalCycle(context.Background())

	assert.NoError(t, err)
	subscriptionRepo.AssertExpectations(t)
	charger.AssertExpectations(t)
}

func TestSendRenewalReminders_NotifiesUpcomingRenewals(t *testing.T) {
	subscriptionRepo := new(MockSubscriptionRepository)
	courseRepo := new(MockCourseRepository)
	notifier := &recordingNotifier{}
	service := NewBillingService(
		subscriptionRepo,
		courseRepo,
		new(MockUserRepository),
		new(MockChargeExecutor),
		notifier,
		sink.NopAnalytics{},
		zap.NewNop(),
		WithBillingClock(func() time.Time { return billingNow }),
		WithReminderLeadTime(3*24*time.Hour),
	)

	subscriptionRepo.On("ListDueForRenewal", mock.Anything, billingNow.Add(3*24*time.Hour)).
		Return([]*model.Subscription{
			{ID: 3, UserID: 1, PlanType: model.PlanTypeMonthly, Amount: decimal.NewFromInt(29),
				Currency: "USD", NextBillingDate: billingNow.Add(24 * time.Hour)},
			{ID: 4, UserID: 2, PlanType: model.PlanTypeYearly, Amount: decimal.NewFromInt(299),
				Currency: "USD", NextBillingDate: billingNow.Add(48 * time.Hour)},
		}, nil)

	count, err := service.SendRenewalReminders(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, []sink.NotificationKind{
		sink.NotifyRenewalReminder,
		sink.NotifyRenewalReminder,
	}, notifier.kinds)
	subscriptionRepo.AssertExpectations(t)
}

func TestSendRenewalReminders_QuietWindow(t *testing.T) {
	subscriptionRepo := new(MockSubscriptionRepository)
	service := newBillingService(subscriptionRepo, new(MockUserRepository), new(MockChargeExecutor))

	subscriptionRepo.On("ListDueForRenewal", mock.Anything, mock.Anything).Return(nil, nil)

	count, err := service.SendRenewalReminders(context.Background())

	assert.NoError(t, err)
	assert.Zero(t, count)
}

func TestGetSubscription_HidesOtherUsersSubscriptions(t *testing.T) {
	subscriptionRepo := new(MockSubscriptionRepository)
	service := newBillingService(subscriptionRepo, new(MockUserRepository), new(MockChargeExecutor))

	subscriptionRepo.On("GetByID", mock.Anything, int64(7)).
		Return(&model.Subscription{ID: 7, UserID: 99}, nil)

	sub, err := service.GetSubscription(context.Background(), 7, 1)

	assert.Nil(t, sub)
	assert.ErrorIs(t, err, domainerrors.ErrSubscriptionNotFound)
}
