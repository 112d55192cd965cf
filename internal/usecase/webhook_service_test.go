package usecase

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
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

const webhookTestSecret = "test-webhook-secret"

var webhookNow = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

type webhookMocks struct {
	webhookRepo      *MockWebhookEventRepository
	transactionRepo  *MockTransactionRepository
	subscriptionRepo *MockSubscriptionRepository
	disputeRepo      *MockDisputeRepository
	userRepo         *MockUserRepository
	notifier         *recordingNotifier
}

func newWebhookService() (*WebhookService, *webhookMocks) {
	m := &webhookMocks{
		webhookRepo:      new(MockWebhookEventRepository),
		transactionRepo:  new(MockTransactionRepository),
		subscriptionRepo: new(MockSubscriptionRepository),
		disputeRepo:      new(MockDisputeRepository),
		userRepo:         new(MockUserRepository),
		notifier:         &recordingNotifier{},
	}
	service := NewWebhookService(
		m.webhookRepo,
		m.transactionRepo,
		m.subscriptionRepo,
		m.disputeRepo,
		m.userRepo,
		webhookTestSecret,
		m.notifier,
		sink.NopAnalytics{},
		zap.NewNop(),
		WithWebhookClock(func() time.Time { return webhookNow }),
	)
	return service, m
}

func signPayload(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(webhookTestSecret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	service, _ := newWebhookService()
	payload := []byte(`{"id":"evt_1","type":"payment.succeeded"}`)

	assert.True(t, service.VerifySignature(payload, signPayload(payload)))
	assert.False(t, service.VerifySignature(payload, "deadbeef"))
	assert.False(t, service.VerifySignature(payload, ""))
}

func TestHandleWebhook_PaymentSucceededSettlesTransaction(t *testing.T) {
	service, m := newWebhookService()
	payload := []byte(`{"id":"evt_1","type":"payment.succeeded","data":{"reference":"TXN-ABCD1234-1"}}`)

	m.webhookRepo.On("Save", mock.Anything, mock.AnythingOfType("*model.WebhookEvent")).Return(nil)
	m.webhookRepo.On("Get", mock.Anything, "evt_1").
		Return(&model.WebhookEvent{EventID: "evt_1", Status: model.WebhookStatusPending}, nil)
	m.webhookRepo.On("Claim", mock.Anything, "evt_1").Return(true, nil)
	m.transactionRepo.On("GetByReference", mock.Anything, "TXN-ABCD1234-1").
		Return(&model.Transaction{ID: 9, UserID: 1, CourseID: 10, Reference: "TXN-ABCD1234-1", Status: model.TransactionStatusPending}, nil)
	m.transactionRepo.On("UpdateStatus", mock.Anything, int64(9), model.TransactionStatusCompleted).Return(nil)
	m.userRepo.On("AddEnrollment", mock.Anything, int64(1), int64(10)).Return(nil)
	m.webhookRepo.On("MarkCompleted", mock.Anything, "evt_1").Return(nil)

	err := service.HandleWebhook(context.Background(), payload, signPayload(payload))

	assert.NoError(t, err)
	assert.Equal(t, []sink.NotificationKind{sink.NotifyPaymentSuccess}, m.notifier.kinds)
	m.webhookRepo.AssertExpectations(t)
	m.transactionRepo.AssertExpectations(t)
	m.userRepo.AssertExpectations(t)
}

func TestHandleWebhook_ReplayOfCompletedEventIsSuccessWithoutSideEffects(t *testing.T) {
	service, m := newWebhookService()
	payload := []byte(`{"id":"evt_1","type":"payment.succeeded","data":{"reference":"TXN-ABCD1234-1"}}`)

	m.webhookRepo.On("Save", mock.Anything, mock.Anything).Return(nil)
	m.webhookRepo.On("Get", mock.Anything, "evt_1").
		Return(&model.WebhookEvent{EventID: "evt_1", Status: model.WebhookStatusCompleted}, nil)

	err := service.HandleWebhook(context.Background(), payload, signPayload(payload))

	assert.NoError(t, err)
	m.webhookRepo.AssertNotCalled(t, "Claim", mock.Anything, mock.Anything)
	m.transactionRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, m.notifier.kinds)
}

func TestHandleWebhook_TamperedSignatureChangesNothing(t *testing.T) {
	service, m := newWebhookService()
	payload := []byte(`{"id":"evt_1","type":"payment.succeeded","data":{"reference":"TXN-ABCD1234-1"}}`)

	// Only the audit row is written.
	m.webhookRepo.On("Save", mock.Anything, mock.MatchedBy(func(e *model.WebhookEvent) bool {
		return e.Status == model.WebhookStatusFailed && e.EventID == "evt_1"
	})).Return(nil)

	err := service.HandleWebhook(context.Background(), payload, "0000")

	assert.ErrorIs(t, err, domainerrors.ErrInvalidSignature)
	m.webhookRepo.AssertNotCalled(t, "Claim", mock.Anything, mock.Anything)
	m.transactionRepo.AssertNotCalled(t, "GetByReference", mock.Anything, mock.Anything)
	m.webhookRepo.AssertExpectations(t)
}

func TestHandleWebhook_TamperedSignatureWithOpaqueBodySkipsAudit(t *testing.T) {
	service, m := newWebhookService()
	payload := []byte(`not json at all`)

	err := service.HandleWebhook(context.Background(), payload, "0000")

	assert.ErrorIs(t, err, domainerrors.ErrInvalidSignature)
	m.webhookRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestHandleWebhook_MalformedPayload(t *testing.T) {
	service, m := newWebhookService()

	for _, payload := range [][]byte{
		[]byte(`{"type":"payment.succeeded"}`), // missing id
		[]byte(`{"id":"evt_1"}`),               // missing type
		[]byte(`{{`),                           // not JSON
	} {
		err := service.HandleWebhook(context.Background(), payload, signPayload(payload))
		assert.ErrorIs(t, err, domainerrors.ErrMalformedPayload)
	}
	m.webhookRepo.AssertNotCalled(t, "Claim", mock.Anything, mock.Anything)
}

func TestHandleWebhook_LostClaimReturnsEventInFlight(t *testing.T) {
	service, m := newWebhookService()
	payload := []byte(`{"id":"evt_1","type":"payment.succeeded","data":{"reference":"TXN-ABCD1234-1"}}`)

	m.webhookRepo.On("Save", mock.Anything, mock.Anything).Return(nil)
	m.webhookRepo.On("Get", mock.Anything, "evt_1").
		Return(&model.WebhookEvent{EventID: "evt_1", Status: model.WebhookStatusProcessing}, nil)
	m.webhookRepo.On("Claim", mock.Anything, "evt_1").Return(false, nil)

	err := service.HandleWebhook(context.Background(), payload, signPayload(payload))

	assert.ErrorIs(t, err, domainerrors.ErrEventInFlight)
	m.transactionRepo.AssertNotCalled(t, "GetByReference", mock.Anything, mock.Anything)
}

func TestHandleWebhook_LostClaimToFinishedWinnerIsSuccess(t *testing.T) {
	service, m := newWebhookService()
	payload := []byte(`{"id":"evt_1","type":"payment.succeeded","data":{"reference":"TXN-ABCD1234-1"}}`)

	m.webhookRepo.On("Save", mock.Anything, mock.Anything).Return(nil)
	m.webhookRepo.On("Get", mock.Anything, "evt_1").
		Return(&model.WebhookEvent{EventID: "evt_1", Status: model.WebhookStatusPending}, nil).Once()
	m.webhookRepo.On("Claim", mock.Anything, "evt_1").Return(false, nil)
	// The concurrent winner completed between the first Get and the claim.
	m.webhookRepo.On("Get", mock.Anything, "evt_1").
		Return(&model.WebhookEvent{EventID: "evt_1", Status: model.WebhookStatusCompleted}, nil).Once()

	err := service.HandleWebhook(context.Background(), payload, signPayload(payload))

	assert.NoError(t, err)
	m.transactionRepo.AssertNotCalled(t, "GetByReference", mock.Anything, mock.Anything)
}

func TestHandleWebhook_MissingTransactionMarksEventFailedForRetry(t *testing.T) {
	service, m := newWebhookService()
	payload := []byte(`{"id":"evt_1","type":"payment.succeeded","data":{"reference":"TXN-MISSING-1"}}`)

	m.webhookRepo.On("Save", mock.Anything, mock.Anything).Return(nil)
	m.webhookRepo.On("Get", mock.Anything, "evt_1").
		Return(&model.WebhookEvent{EventID: "evt_1", Status: model.WebhookStatusPending}, nil)
	m.webhookRepo.On("Claim", mock.Anything, "evt_1").Return(true, nil)
	m.transactionRepo.On("GetByReference", mock.Anything, "TXN-MISSING-1").Return(nil, nil)
	m.webhookRepo.On("MarkFailed", mock.Anything, "evt_1", mock.Anything).Return(nil)

	err := service.HandleWebhook(context.Background(), payload, signPayload(payload))

	assert.ErrorIs(t, err, domainerrors.ErrTransactionNotFound)
	m.webhookRepo.AssertNotCalled(t, "MarkCompleted", mock.Anything, mock.Anything)
	m.webhookRepo.AssertExpectations(t)
}

func TestHandleWebhook_PaymentFailedIgnoresSettledTransaction(t *testing.T) {
	service, m := newWebhookService()
	payload := []byte(`{"id":"evt_2","type":"payment.failed","data":{"reference":"TXN-ABCD1234-1","failure_reason":"card expired"}}`)

	m.webhookRepo.On("Save", mock.Anything, mock.Anything).Return(nil)
	m.webhookRepo.On("Get", mock.Anything, "evt_2").
		Return(&model.WebhookEvent{EventID: "evt_2", Status: model.WebhookStatusPending}, nil)
	m.webhookRepo.On("Claim", mock.Anything, "evt_2").Return(true, nil)
	m.transactionRepo.On("GetByReference", mock.Anything, "TXN-ABCD1234-1").
		Return(&model.Transaction{ID: 9, UserID: 1, Status: model.TransactionStatusCompleted}, nil)
	m.webhookRepo.On("MarkCompleted", mock.Anything, "evt_2").Return(nil)

	err := service.HandleWebhook(context.Background(), payload, signPayload(payload))

	// A late failure report never claws back a settled payment.
	assert.NoError(t, err)
	m.transactionRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleWebhook_PaymentRefundedCreatesNettingRow(t *testing.T) {
	service, m := newWebhookService()
	payload := []byte(`{"id":"evt_3","type":"payment.refunded","data":{"reference":"TXN-ABCD1234-1"}}`)

	methodID := int64(4)
	orig := &model.Transaction{
		ID:              9,
		UserID:          1,
		CourseID:        10,
		Amount:          decimal.NewFromInt(49),
		Currency:        "USD",
		Status:          model.TransactionStatusCompleted,
		PaymentMethodID: &methodID,
		Reference:       "TXN-ABCD1234-1",
	}

	m.webhookRepo.On("Save", mock.Anything, mock.Anything).Return(nil)
	m.webhookRepo.On("Get", mock.Anything, "evt_3").
		Return(&model.WebhookEvent{EventID: "evt_3", Status: model.WebhookStatusPending}, nil)
	m.webhookRepo.On("Claim", mock.Anything, "evt_3").Return(true, nil)
	m.transactionRepo.On("GetByReference", mock.Anything, "TXN-ABCD1234-1").Return(orig, nil)
	m.transactionRepo.On("GetByReference", mock.Anything, "REFUND-TXN-ABCD1234-1").Return(nil, nil)
	m.transactionRepo.On("Create", mock.Anything, mock.MatchedBy(func(tx *model.Transaction) bool {
		return tx.Reference == "REFUND-TXN-ABCD1234-1" &&
			tx.Amount.Equal(decimal.NewFromInt(-49)) &&
			tx.Status == model.TransactionStatusCompleted
	})).Return(nil)
	m.transactionRepo.On("UpdateStatus", mock.Anything, int64(9), model.TransactionStatusRefunded).Return(nil)
	m.webhookRepo.On("MarkCompleted", mock.Anything, "evt_3").Return(nil)

	err := service.HandleWebhook(context.Background(), payload, signPayload(payload))

	assert.NoError(t, err)
	assert.Equal(t, []sink.NotificationKind{sink.NotifyPaymentRefund}, m.notifier.kinds)
	m.transactionRepo.AssertExpectations(t)
}

func TestHandleWebhook_PaymentRefundedIsIdempotent(t *testing.T) {
	service, m := newWebhookService()
	payload := []byte(`{"id":"evt_3","type":"payment.refunded","data":{"reference":"TXN-ABCD1234-1"}}`)

	m.webhookRepo.On("Save", mock.Anything, mock.Anything).Return(nil)
	m.webhookRepo.On("Get", mock.Anything, "evt_3").
		Return(&model.WebhookEvent{EventID: "evt_3", Status: model.WebhookStatusPending}, nil)
	m.webhookRepo.On("Claim", mock.Anything, "evt_3").Return(true, nil)
	m.transactionRepo.On("GetByReference", mock.Anything, "TXN-ABCD1234-1").
		Return(&model.Transaction{ID: 9, Status: model.TransactionStatusRefunded, Reference: "TXN-ABCD1234-1"}, nil)
	m.webhookRepo.On("MarkCompleted", mock.Anything, "evt_3").Return(nil)

	err := service.HandleWebhook(context.Background(), payload, signPayload(payload))

	assert.NoError(t, err)
	m.transactionRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestHandleWebhook_PaymentDisputedOpensDispute(t *testing.T) {
	service, m := newWebhookService()
	payload := []byte(`{"id":"evt_4","type":"payment.disputed","data":{"reference":"TXN-ABCD1234-1","dispute_reason":"fraudulent"}}`)

	m.webhookRepo.On("Save", mock.Anything, mock.Anything).Return(nil)
	m.webhookRepo.On("Get", mock.Anything, "evt_4").
		Return(&model.WebhookEvent{EventID: "evt_4", Status: model.WebhookStatusPending}, nil)
	m.webhookRepo.On("Claim", mock.Anything, "evt_4").Return(true, nil)
	m.transactionRepo.On("GetByReference", mock.Anything, "TXN-ABCD1234-1").
		Return(&model.Transaction{ID: 9, UserID: 1, Reference: "TXN-ABCD1234-1", Status: model.TransactionStatusCompleted}, nil)
	m.transactionRepo.On("UpdateStatus", mock.Anything, int64(9), model.TransactionStatusDisputed).Return(nil)
	m.disputeRepo.On("GetByTransactionID", mock.Anything, int64(9)).Return(nil, nil)
	m.disputeRepo.On("Create", mock.Anything, mock.MatchedBy(func(d *model.Dispute) bool {
		return d.TransactionID == 9 && d.Reason == "fraudulent" && d.Status == model.DisputeStatusPending
	})).Return(nil)
	m.webhookRepo.On("MarkCompleted", mock.Anything, "evt_4").Return(nil)

	err := service.HandleWebhook(context.Background(), payload, signPayload(payload))

	assert.NoError(t, err)
	assert.Equal(t, []sink.NotificationKind{sink.NotifyDisputeCreated}, m.notifier.kinds)
	m.disputeRepo.AssertExpectations(t)
}

func TestHandleWebhook_SubscriptionCancelledSkipsTerminalRows(t *testing.T) {
	service, m := newWebhookService()
	payload := []byte(`{"id":"evt_5","type":"subscription.cancelled","data":{"subscription_id":7}}`)

	m.webhookRepo.On("Save", mock.Anything, mock.Anything).Return(nil)
	m.webhookRepo.On("Get", mock.Anything, "evt_5").
		Return(&model.WebhookEvent{EventID: "evt_5", Status: model.WebhookStatusPending}, nil)
	m.webhookRepo.On("Claim", mock.Anything, "evt_5").Return(true, nil)
	m.subscriptionRepo.On("GetByID", mock.Anything, int64(7)).
		Return(&model.Subscription{ID: 7, Status: model.SubscriptionStatusExpired}, nil)
	m.webhookRepo.On("MarkCompleted", mock.Anything, "evt_5").Return(nil)

	err := service.HandleWebhook(context.Background(), payload, signPayload(payload))

	assert.NoError(t, err)
	m.subscriptionRepo.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleWebhook_SubscriptionActivatedTransitions(t *testing.T) {
	service, m := newWebhookService()
	payload := []byte(`{"id":"evt_6","type":"subscription.activated","data":{"subscription_id":7}}`)

	m.webhookRepo.On("Save", mock.Anything, mock.Anything).Return(nil)
	m.webhookRepo.On("Get", mock.Anything, "evt_6").
		Return(&model.WebhookEvent{EventID: "evt_6", Status: model.WebhookStatusPending}, nil)
	m.webhookRepo.On("Claim", mock.Anything, "evt_6").Return(true, nil)
	m.subscriptionRepo.On("GetByID", mock.Anything, int64(7)).
		Return(&model.Subscription{ID: 7, Status: model.SubscriptionStatusPastDue}, nil)
	m.subscriptionRepo.On("UpdateStatus", mock.Anything, int64(7), model.SubscriptionStatusActive).Return(nil)
	m.webhookRepo.On("MarkCompleted", mock.Anything, "evt_6").Return(nil)

	err := service.HandleWebhook(context.Background(), payload, signPayload(payload))

	assert.NoError(t, err)
	m.subscriptionRepo.AssertExpectations(t)
}

func TestHandleWebhook_UnknownEventTypeIsStoredAndSkipped(t *testing.T) {
	service, m := newWebhookService()
	payload := []byte(`{"id":"evt_7","type":"payout.created"}`)

	m.webhookRepo.On("Save", mock.Anything, mock.Anything).Return(nil)
	m.webhookRepo.On("Get", mock.Anything, "evt_7").
		Return(&model.WebhookEvent{EventID: "evt_7", Status: model.WebhookStatusPending}, nil)
	m.webhookRepo.On("Claim", mock.Anything, "evt_7").Return(true, nil)
	m.webhookRepo.On("MarkCompleted", mock.Anything, "evt_7").Return(nil)

	err := service.HandleWebhook(context.Background(), payload, signPayload(payload))

	// Unknown types complete so the gateway stops redelivering them.
	assert.NoError(t, err)
	m.webhookRepo.AssertExpectations(t)
	assert.Empty(t, m.notifier.kinds)
}
