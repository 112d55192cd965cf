package usecase

import (
	"context"
	"time"

	"github.com/aionlinecourses/billing-service/internal/domain/model"
	"github.com/aionlinecourses/billing-service/internal/domain/provider"
	"github.com/aionlinecourses/billing-service/internal/domain/sink"
	"github.com/stretchr/testify/mock"
)

// MockTransactionRepository is a mock implementation
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx *model.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id int64) (*model.Transaction, error) {
	args := m.Called(ctx, id)
	var tx *model.Transaction
	if v := args.Get(0); v != nil {
		tx = v.(*model.Transaction)
	}
	return tx, args.Error(1)
}

func (m *MockTransactionRepository) GetByReference(ctx context.Context, reference string) (*model.Transaction, error) {
	args := m.Called(ctx, reference)
	var tx *model.Transaction
	if v := args.Get(0); v != nil {
		tx = v.(*model.Transaction)
	}
	return tx, args.Error(1)
}

func (m *MockTransactionRepository) UpdateStatus(ctx context.Context, id int64, status model.TransactionStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockTransactionRepository) ListByUser(ctx context.Context, userID int64) ([]*model.Transaction, error) {
	args := m.Called(ctx, userID)
	var txs []*model.Transaction
	if v := args.Get(0); v != nil {
		txs = v.([]*model.Transaction)
	}
	return txs, args.Error(1)
}

func (m *MockTransactionRepository) ListByDateRange(ctx context.Context, from, to time.Time) ([]*model.Transaction, error) {
	args := m.Called(ctx, from, to)
	var txs []*model.Transaction
	if v := args.Get(0); v != nil {
		txs = v.([]*model.Transaction)
	}
	return txs, args.Error(1)
}

func (m *MockTransactionRepository) HasCompletedPurchase(ctx context.Context, userID, courseID int64) (bool, error) {
	args := m.Called(ctx, userID, courseID)
	return args.Bool(0), args.Error(1)
}

func (m *MockTransactionRepository) ExpirePending(ctx context.Context, olderThan time.Time) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

// MockSubscriptionRepository is a mock implementation
type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) Create(ctx context.Context, sub *model.Subscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) GetByID(ctx context.Context, id int64) (*model.Subscription, error) {
	args := m.Called(ctx, id)
	var sub *model.Subscription
	if v := args.Get(0); v != nil {
		sub = v.(*model.Subscription)
	}
	return sub, args.Error(1)
}

func (m *MockSubscriptionRepository) GetActive(ctx context.Context, userID, courseID int64) (*model.Subscription, error) {
	args := m.Called(ctx, userID, courseID)
	var sub *model.Subscription
	if v := args.Get(0); v != nil {
		sub = v.(*model.Subscription)
	}
	return sub, args.Error(1)
}

func (m *MockSubscriptionRepository) ListByUser(ctx context.Context, userID int64) ([]*model.Subscription, error) {
	args := m.Called(ctx, userID)
	var subs []*model.Subscription
	if v := args.Get(0); v != nil {
		subs = v.([]*model.Subscription)
	}
	return subs, args.Error(1)
}

func (m *MockSubscriptionRepository) ListByDateRange(ctx context.Context, from, to time.Time) ([]*model.Subscription, error) {
	args := m.Called(ctx, from, to)
	var subs []*model.Subscription
	if v := args.Get(0); v != nil {
		subs = v.([]*model.Subscription)
	}
	return subs, args.Error(1)
}

func (m *MockSubscriptionRepository) ListDueForRenewal(ctx context.Context, now time.Time) ([]*model.Subscription, error) {
	args := m.Called(ctx, now)
	var subs []*model.Subscription
	if v := args.Get(0); v != nil {
		subs = v.([]*model.Subscription)
	}
	return subs, args.Error(1)
}

func (m *MockSubscriptionRepository) MarkRenewed(ctx context.Context, id int64, lastBilling, nextBilling time.Time) error {
	args := m.Called(ctx, id, lastBilling, nextBilling)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) Cancel(ctx context.Context, id int64, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) UpdateStatus(ctx context.Context, id int64, status model.SubscriptionStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) ExpireElapsed(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSubscriptionRepository) MarkPastDue(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// MockPaymentMethodRepository is a mock implementation
type MockPaymentMethodRepository struct {
	mock.Mock
}

func (m *MockPaymentMethodRepository) Create(ctx context.Context, method *model.PaymentMethod) error {
	args := m.Called(ctx, method)
	return args.Error(0)
}

func (m *MockPaymentMethodRepository) GetByID(ctx context.Context, id, userID int64) (*model.PaymentMethod, error) {
	args := m.Called(ctx, id, userID)
	var method *model.PaymentMethod
	if v := args.Get(0); v != nil {
		method = v.(*model.PaymentMethod)
	}
	return method, args.Error(1)
}

func (m *MockPaymentMethodRepository) GetDefault(ctx context.Context, userID int64) (*model.PaymentMethod, error) {
	args := m.Called(ctx, userID)
	var method *model.PaymentMethod
	if v := args.Get(0); v != nil {
		method = v.(*model.PaymentMethod)
	}
	return method, args.Error(1)
}

func (m *MockPaymentMethodRepository) ListByUser(ctx context.Context, userID int64) ([]*model.PaymentMethod, error) {
	args := m.Called(ctx, userID)
	var methods []*model.PaymentMethod
	if v := args.Get(0); v != nil {
		methods = v.([]*model.PaymentMethod)
	}
	return methods, args.Error(1)
}

func (m *MockPaymentMethodRepository) SetDefault(ctx context.Context, userID, id int64) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

func (m *MockPaymentMethodRepository) Delete(ctx context.Context, id, userID int64) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func (m *MockPaymentMethodRepository) ListExpiringCards(ctx context.Context, month, year int) ([]*model.PaymentMethod, error) {
	args := m.Called(ctx, month, year)
	var methods []*model.PaymentMethod
	if v := args.Get(0); v != nil {
		methods = v.([]*model.PaymentMethod)
	}
	return methods, args.Error(1)
}

// MockUserRepository is a mock implementation
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	var user *model.User
	if v := args.Get(0); v != nil {
		user = v.(*model.User)
	}
	return user, args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	var user *model.User
	if v := args.Get(0); v != nil {
		user = v.(*model.User)
	}
	return user, args.Error(1)
}

func (m *MockUserRepository) AddEnrollment(ctx context.Context, userID, courseID int64) error {
	args := m.Called(ctx, userID, courseID)
	return args.Error(0)
}

// MockCourseRepository is a mock implementation
type MockCourseRepository struct {
	mock.Mock
}

func (m *MockCourseRepository) GetByID(ctx context.Context, id int64) (*model.Course, error) {
	args := m.Called(ctx, id)
	var course *model.Course
	if v := args.Get(0); v != nil {
		course = v.(*model.Course)
	}
	return course, args.Error(1)
}

func (m *MockCourseRepository) List(ctx context.Context) ([]*model.Course, error) {
	args := m.Called(ctx)
	var courses []*model.Course
	if v := args.Get(0); v != nil {
		courses = v.([]*model.Course)
	}
	return courses, args.Error(1)
}

// MockDisputeRepository is a mock implementation
type MockDisputeRepository struct {
	mock.Mock
}

func (m *MockDisputeRepository) Create(ctx context.Context, dispute *model.Dispute) error {
	args := m.Called(ctx, dispute)
	return args.Error(0)
}

func (m *MockDisputeRepository) GetByID(ctx context.Context, id int64) (*model.Dispute, error) {
	args := m.Called(ctx, id)
	var dispute *model.Dispute
	if v := args.Get(0); v != nil {
		dispute = v.(*model.Dispute)
	}
	return dispute, args.Error(1)
}

func (m *MockDisputeRepository) GetByTransactionID(ctx context.Context, transactionID int64) (*model.Dispute, error) {
	args := m.Called(ctx, transactionID)
	var dispute *model.Dispute
	if v := args.Get(0); v != nil {
		dispute = v.(*model.Dispute)
	}
	return dispute, args.Error(1)
}

func (m *MockDisputeRepository) ListByUser(ctx context.Context, userID int64) ([]*model.Dispute, error) {
	args := m.Called(ctx, userID)
	var disputes []*model.Dispute
	if v := args.Get(0); v != nil {
		disputes = v.([]*model.Dispute)
	}
	return disputes, args.Error(1)
}

func (m *MockDisputeRepository) ListByDateRange(ctx context.Context, from, to time.Time) ([]*model.Dispute, error) {
	args := m.Called(ctx, from, to)
	var disputes []*model.Dispute
	if v := args.Get(0); v != nil {
		disputes = v.([]*model.Dispute)
	}
	return disputes, args.Error(1)
}

func (m *MockDisputeRepository) UpdateStatus(ctx context.Context, id int64, status model.DisputeStatus, resolution *string, resolvedAt *time.Time) error {
	args := m.Called(ctx, id, status, resolution, resolvedAt)
	return args.Error(0)
}

func (m *MockDisputeRepository) UpdateEvidence(ctx context.Context, id int64, evidence string) error {
	args := m.Called(ctx, id, evidence)
	return args.Error(0)
}

// MockWebhookEventRepository is a mock implementation
type MockWebhookEventRepository struct {
	mock.Mock
}

func (m *MockWebhookEventRepository) Save(ctx context.Context, event *model.WebhookEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockWebhookEventRepository) Get(ctx context.Context, eventID string) (*model.WebhookEvent, error) {
	args := m.Called(ctx, eventID)
	var event *model.WebhookEvent
	if v := args.Get(0); v != nil {
		event = v.(*model.WebhookEvent)
	}
	return event, args.Error(1)
}

func (m *MockWebhookEventRepository) Claim(ctx context.Context, eventID string) (bool, error) {
	args := m.Called(ctx, eventID)
	return args.Bool(0), args.Error(1)
}

func (m *MockWebhookEventRepository) MarkCompleted(ctx context.Context, eventID string) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}

func (m *MockWebhookEventRepository) MarkFailed(ctx context.Context, eventID string, handlerErr error) error {
	args := m.Called(ctx, eventID, handlerErr)
	return args.Error(0)
}

// MockPaymentProvider is a mock gateway adapter
type MockPaymentProvider struct {
	mock.Mock
	name string
}

func (m *MockPaymentProvider) Charge(ctx context.Context, req *provider.ChargeRequest) (*provider.ChargeOutcome, error) {
	args := m.Called(ctx, req)
	var outcome *provider.ChargeOutcome
	if v := args.Get(0); v != nil {
		outcome = v.(*provider.ChargeOutcome)
	}
	return outcome, args.Error(1)
}

func (m *MockPaymentProvider) TokenizeInstrument(ctx context.Context, req *provider.TokenizeRequest) (*provider.TokenizeOutcome, error) {
	args := m.Called(ctx, req)
	var outcome *provider.TokenizeOutcome
	if v := args.Get(0); v != nil {
		outcome = v.(*provider.TokenizeOutcome)
	}
	return outcome, args.Error(1)
}

func (m *MockPaymentProvider) CreateAlternativeInstrument(ctx context.Context, req *provider.AlternativeInstrumentRequest) (*provider.AlternativeInstrumentOutcome, error) {
	args := m.Called(ctx, req)
	var outcome *provider.AlternativeInstrumentOutcome
	if v := args.Get(0); v != nil {
		outcome = v.(*provider.AlternativeInstrumentOutcome)
	}
	return outcome, args.Error(1)
}

func (m *MockPaymentProvider) Name() string {
	if m.name == "" {
		return "stripe"
	}
	return m.name
}

// staticResolver hands back the same provider for every name.
type staticResolver struct {
	provider provider.PaymentProvider
}

func (r *staticResolver) GetProvider(string) (provider.PaymentProvider, error) {
	return r.provider, nil
}

// MockChargeExecutor is a mock implementation
type MockChargeExecutor struct {
	mock.Mock
}

func (m *MockChargeExecutor) ChargeForSubscription(ctx context.Context, sub *model.Subscription, statement string) (*model.Transaction, error) {
	args := m.Called(ctx, sub, statement)
	var tx *model.Transaction
	if v := args.Get(0); v != nil {
		tx = v.(*model.Transaction)
	}
	return tx, args.Error(1)
}

// plainCipher stores tokens as-is for tests.
type plainCipher struct{}

func (plainCipher) Encrypt(plaintext string) (string, error) { return plaintext, nil }
func (plainCipher) Decrypt(sealed string) (string, error)    { return sealed, nil }

// recordingNotifier captures emitted notification kinds.
type recordingNotifier struct {
	kinds []sink.NotificationKind
}

func (r *recordingNotifier) Notify(_ context.Context, _ int64, kind sink.NotificationKind, _ map[string]string) {
	r.kinds = append(r.kinds, kind)
}
