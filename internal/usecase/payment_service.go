package usecase

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	domainerrors "github.com/aionlinecourses/billing-service/internal/domain/errors"
	"github.com/aionlinecourses/billing-service/internal/domain/model"
	"github.com/aionlinecourses/billing-service/internal/domain/provider"
	"github.com/aionlinecourses/billing-service/internal/domain/repository"
	"github.com/aionlinecourses/billing-service/internal/domain/sink"
	"github.com/aionlinecourses/billing-service/internal/infrastructure/crypto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProviderResolver selects a gateway adapter by name.
type ProviderResolver interface {
	GetProvider(name string) (provider.PaymentProvider, error)
}

// PaymentService runs one-off purchases, refunds and payment-method
// management, and executes subscription charges for the billing engine.
type PaymentService struct {
	transactionRepo   repository.TransactionRepository
	paymentMethodRepo repository.PaymentMethodRepository
	userRepo          repository.UserRepository
	providers         ProviderResolver
	tokenCipher       crypto.TokenCipher
	notifier          sink.Notifier
	analytics         sink.Analytics
	logger            *zap.Logger
	now               func() time.Time
}

// PaymentServiceOption configures a PaymentService.
type PaymentServiceOption func(*PaymentService)

// WithPaymentClock overrides the wall clock, for tests.
func WithPaymentClock(now func() time.Time) PaymentServiceOption {
	return func(s *PaymentService) { s.now = now }
}

// NewPaymentService creates a new payment service
func NewPaymentService(
	transactionRepo repository.TransactionRepository,
	paymentMethodRepo repository.PaymentMethodRepository,
	userRepo repository.UserRepository,
	providers ProviderResolver,
	tokenCipher crypto.TokenCipher,
	notifier sink.Notifier,
	analytics sink.Analytics,
	logger *zap.Logger,
	opts ...PaymentServiceOption,
) *PaymentService {
	s := &PaymentService{
		transactionRepo:   transactionRepo,
		paymentMethodRepo: paymentMethodRepo,
		userRepo:          userRepo,
		providers:         providers,
		tokenCipher:       tokenCipher,
		notifier:          notifier,
		analytics:         analytics,
		logger:            logger,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// referencePrefix maps a provider name to the transaction reference prefix.
func referencePrefix(providerName string) string {
	if providerName == "midtrans" {
		return "MID"
	}
	return "TXN"
}

// generateReference builds a `<PREFIX>-<8 random>-<unixMillis>` reference.
// The reference round-trips through the gateway and comes back in webhooks.
func (s *PaymentService) generateReference(prefix string) string {
	random := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("%s-%s-%d", prefix, random, s.now().UnixMilli())
}

// minorUnitAmount converts a decimal amount to the currency's smallest unit.
func minorUnitAmount(amount decimal.Decimal, currency string) int64 {
	switch strings.ToUpper(currency) {
	case "IDR", "JPY", "KRW", "VND":
		return amount.Round(0).IntPart()
	default:
		return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	}
}

// ProcessPayment charges a stored payment method for a one-off course
// purchase. The transaction row is written PENDING before the gateway call
// and moved to a terminal status from the synchronous outcome; webhooks
// reconcile any gap later by reference.
func (s *PaymentService) ProcessPayment(ctx context.Context, userID, courseID int64, amount decimal.Decimal, currency string, paymentMethodID int64) (*model.Transaction, error) {
	method, err := s.paymentMethodRepo.GetByID(ctx, paymentMethodID, userID)
	if err != nil {
		return nil, err
	}
	if method == nil {
		return nil, domainerrors.ErrPaymentMethodNotFound
	}

	gateway, err := s.providers.GetProvider(method.Provider)
	if err != nil {
		return nil, err
	}

	tx := &model.Transaction{
		UserID:          userID,
		CourseID:        courseID,
		Amount:          amount,
		Currency:        currency,
		Status:          model.TransactionStatusPending,
		PaymentMethodID: &method.ID,
		Reference:       s.generateReference(referencePrefix(gateway.Name())),
		Metadata: model.Metadata{
			"provider":    gateway.Name(),
			"method_type": string(method.Type),
		},
		Timestamp: s.now(),
	}
	if err := s.transactionRepo.Create(ctx, tx); err != nil {
		return nil, err
	}

	token, err := s.tokenCipher.Decrypt(method.EncryptedToken)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt payment token: %w", err)
	}

	outcome, err := gateway.Charge(ctx, &provider.ChargeRequest{
		UserID:    userID,
		Amount:    minorUnitAmount(amount, currency),
		Currency:  currency,
		Reference: tx.Reference,
		Token:     token,
		Statement: fmt.Sprintf("Course purchase #%d", courseID),
	})
	if err != nil {
		// Transport breakage: the row stays PENDING for webhook
		// reconciliation or the expiry sweep.
		s.logger.Error("Charge did not reach a terminal outcome",
			zap.String("reference", tx.Reference),
			zap.Error(err))
		return tx, fmt.Errorf("charge failed: %w", err)
	}

	if !outcome.Succeeded {
		if err := s.transactionRepo.UpdateStatus(ctx, tx.ID, model.TransactionStatusFailed); err != nil {
			return tx, err
		}
		tx.Status = model.TransactionStatusFailed
		s.notifier.Notify(ctx, userID, sink.NotifyPaymentFailure, map[string]string{
			"reference": tx.Reference,
			"reason":    outcome.FailureMessage,
		})
		s.analytics.LogEvent("payment_failed", map[string]string{
			"reference":    tx.Reference,
			"failure_code": outcome.FailureCode,
		})
		return tx, fmt.Errorf("%w: %s", domainerrors.ErrChargeDeclined, outcome.FailureMessage)
	}

	if err := s.transactionRepo.UpdateStatus(ctx, tx.ID, model.TransactionStatusCompleted); err != nil {
		return tx, err
	}
	tx.Status = model.TransactionStatusCompleted

	if err := s.userRepo.AddEnrollment(ctx, userID, courseID); err != nil {
		s.logger.Error("Failed to enroll user after completed payment",
			zap.Int64("user_id", userID),
			zap.Int64("course_id", courseID),
			zap.Error(err))
	}

	s.notifier.Notify(ctx, userID, sink.NotifyPaymentSuccess, map[string]string{
		"reference": tx.Reference,
		"amount":    amount.StringFixed(2),
	})
	s.analytics.LogEvent("payment_success", map[string]string{
		"reference": tx.Reference,
		"provider":  gateway.Name(),
	})

	return tx, nil
}

// ChargeForSubscription executes a renewal or first charge for a subscription
// and records the ledger row. A declined charge persists a FAILED transaction
// and returns ErrChargeDeclined; the caller decides what happens to the
// subscription dates.
func (s *PaymentService) ChargeForSubscription(ctx context.Context, sub *model.Subscription, statement string) (*model.Transaction, error) {
	method, err := s.resolveSubscriptionMethod(ctx, sub)
	if err != nil {
		return nil, err
	}

	gateway, err := s.providers.GetProvider(method.Provider)
	if err != nil {
		return nil, err
	}

	metadata := model.Metadata{
		"provider":    gateway.Name(),
		"method_type": string(method.Type),
	}
	// The first charge runs before the subscription row exists; no id to link.
	if sub.ID != 0 {
		metadata["subscription_id"] = strconv.FormatInt(sub.ID, 10)
	}

	tx := &model.Transaction{
		UserID:          sub.UserID,
		CourseID:        sub.CourseID,
		Amount:          sub.Amount,
		Currency:        sub.Currency,
		Status:          model.TransactionStatusPending,
		PaymentMethodID: &method.ID,
		Reference:       s.generateReference(referencePrefix(gateway.Name())),
		Metadata:        metadata,
		Timestamp:       s.now(),
	}
	if err := s.transactionRepo.Create(ctx, tx); err != nil {
		return nil, err
	}

	token, err := s.tokenCipher.Decrypt(method.EncryptedToken)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt payment token: %w", err)
	}

	outcome, err := gateway.Charge(ctx, &provider.ChargeRequest{
		UserID:    sub.UserID,
		Amount:    minorUnitAmount(sub.Amount, sub.Currency),
		Currency:  sub.Currency,
		Reference: tx.Reference,
		Token:     token,
		Statement: statement,
	})
	if err != nil {
		return tx, fmt.Errorf("subscription charge failed: %w", err)
	}

	if !outcome.Succeeded {
		if err := s.transactionRepo.UpdateStatus(ctx, tx.ID, model.TransactionStatusFailed); err != nil {
			return tx, err
		}
		tx.Status = model.TransactionStatusFailed
		s.notifier.Notify(ctx, sub.UserID, sink.NotifyPaymentFailure, map[string]string{
			"reference": tx.Reference,
			"reason":    outcome.FailureMessage,
		})
		return tx, fmt.Errorf("%w: %s", domainerrors.ErrChargeDeclined, outcome.FailureMessage)
	}

	if err := s.transactionRepo.UpdateStatus(ctx, tx.ID, model.TransactionStatusCompleted); err != nil {
		return tx, err
	}
	tx.Status = model.TransactionStatusCompleted

	return tx, nil
}

// resolveSubscriptionMethod picks the subscription's stored instrument, or
// the user's default when none is pinned.
func (s *PaymentService) resolveSubscriptionMethod(ctx context.Context, sub *model.Subscription) (*model.PaymentMethod, error) {
	if sub.PaymentMethodID != nil {
		method, err := s.paymentMethodRepo.GetByID(ctx, *sub.PaymentMethodID, sub.UserID)
		if err != nil {
			return nil, err
		}
		if method != nil {
			return method, nil
		}
	}

	method, err := s.paymentMethodRepo.GetDefault(ctx, sub.UserID)
	if err != nil {
		return nil, err
	}
	if method == nil {
		return nil, domainerrors.ErrPaymentMethodNotFound
	}
	return method, nil
}

// ProcessRefund reverses a completed transaction: a new negative-amount row
// with reference `REFUND-<orig>` nets the original to zero, and the original
// row is marked REFUNDED.
func (s *PaymentService) ProcessRefund(ctx context.Context, transactionID int64) (*model.Transaction, error) {
	orig, err := s.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if orig == nil {
		return nil, domainerrors.ErrTransactionNotFound
	}
	if orig.Status != model.TransactionStatusCompleted {
		return nil, domainerrors.ErrRefundNotAllowed
	}

	refund := &model.Transaction{
		UserID:          orig.UserID,
		CourseID:        orig.CourseID,
		Amount:          orig.Amount.Neg(),
		Currency:        orig.Currency,
		Status:          model.TransactionStatusCompleted,
		PaymentMethodID: orig.PaymentMethodID,
		Reference:       "REFUND-" + orig.Reference,
		Metadata: model.Metadata{
			"original_reference": orig.Reference,
		},
		Timestamp: s.now(),
	}
	if err := s.transactionRepo.Create(ctx, refund); err != nil {
		return nil, err
	}

	if err := s.transactionRepo.UpdateStatus(ctx, orig.ID, model.TransactionStatusRefunded); err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, orig.UserID, sink.NotifyPaymentRefund, map[string]string{
		"reference": orig.Reference,
		"amount":    orig.Amount.StringFixed(2),
	})
	s.analytics.LogEvent("payment_refunded", map[string]string{
		"reference": orig.Reference,
	})

	return refund, nil
}

// AddPaymentMethodInput carries raw instrument details. Raw card values are
// sent to the gateway for tokenization and never persisted.
type AddPaymentMethodInput struct {
	Provider    string
	Type        model.PaymentMethodType
	CardNumber  string
	ExpiryMonth int
	ExpiryYear  int
	CVC         string
	Token       string // pre-tokenized handle for non-card instruments
	MakeDefault bool
}

// AddPaymentMethod tokenizes an instrument with the gateway and stores the
// encrypted token with display metadata.
func (s *PaymentService) AddPaymentMethod(ctx context.Context, userID int64, input AddPaymentMethodInput) (*model.PaymentMethod, error) {
	gateway, err := s.providers.GetProvider(input.Provider)
	if err != nil {
		return nil, err
	}

	method := &model.PaymentMethod{
		UserID:   userID,
		Type:     input.Type,
		Provider: gateway.Name(),
	}

	token := input.Token
	if input.Type.IsCard() {
		outcome, err := gateway.TokenizeInstrument(ctx, &provider.TokenizeRequest{
			CardNumber:  input.CardNumber,
			ExpiryMonth: input.ExpiryMonth,
			ExpiryYear:  input.ExpiryYear,
			CVC:         input.CVC,
		})
		if err != nil {
			return nil, err
		}
		if !outcome.Succeeded {
			return nil, fmt.Errorf("card tokenization rejected: %s", outcome.FailureMessage)
		}
		token = outcome.Token
		if outcome.LastFour != "" {
			method.LastFourDigits = &outcome.LastFour
		}
		if outcome.Brand != "" {
			method.CardBrand = &outcome.Brand
		}
		if outcome.ExpiryMonth != 0 {
			method.ExpiryMonth = &outcome.ExpiryMonth
			method.ExpiryYear = &outcome.ExpiryYear
		}
	}
	if token == "" {
		return nil, fmt.Errorf("no instrument token for payment method type %s", input.Type)
	}

	sealed, err := s.tokenCipher.Encrypt(token)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt payment token: %w", err)
	}
	method.EncryptedToken = sealed

	existing, err := s.paymentMethodRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.paymentMethodRepo.Create(ctx, method); err != nil {
		return nil, err
	}

	// First instrument becomes the default automatically.
	if input.MakeDefault || len(existing) == 0 {
		if err := s.paymentMethodRepo.SetDefault(ctx, userID, method.ID); err != nil {
			return nil, err
		}
		method.IsDefault = true
	}

	s.analytics.LogEvent("payment_method_added", map[string]string{
		"provider": gateway.Name(),
		"type":     string(input.Type),
	})

	return method, nil
}

// RemovePaymentMethod deletes a stored instrument.
func (s *PaymentService) RemovePaymentMethod(ctx context.Context, userID, id int64) error {
	method, err := s.paymentMethodRepo.GetByID(ctx, id, userID)
	if err != nil {
		return err
	}
	if method == nil {
		return domainerrors.ErrPaymentMethodNotFound
	}

	if err := s.paymentMethodRepo.Delete(ctx, id, userID); err != nil {
		return err
	}

	s.analytics.LogEvent("payment_method_removed", map[string]string{
		"type": string(method.Type),
	})
	return nil
}

// SetDefaultPaymentMethod atomically moves the default flag to the given
// instrument.
func (s *PaymentService) SetDefaultPaymentMethod(ctx context.Context, userID, id int64) error {
	method, err := s.paymentMethodRepo.GetByID(ctx, id, userID)
	if err != nil {
		return err
	}
	if method == nil {
		return domainerrors.ErrPaymentMethodNotFound
	}
	return s.paymentMethodRepo.SetDefault(ctx, userID, id)
}

// ListPaymentMethods returns the user's stored instruments, default first.
func (s *PaymentService) ListPaymentMethods(ctx context.Context, userID int64) ([]*model.PaymentMethod, error) {
	return s.paymentMethodRepo.ListByUser(ctx, userID)
}

// AlternativeInstrumentInput requests a non-card payment handle.
type AlternativeInstrumentInput struct {
	CourseID int64
	Kind     provider.AlternativeInstrumentKind
	Amount   decimal.Decimal
	Currency string
	Channel  string
}

// AlternativeInstrumentResult pairs the gateway handle with the PENDING
// ledger row awaiting webhook settlement.
type AlternativeInstrumentResult struct {
	Transaction *model.Transaction `json:"transaction"`
	Handle      string             `json:"handle"`
	ExpiresAt   string             `json:"expires_at,omitempty"`
}

// CreateAlternativeInstrument provisions a VA number, e-wallet redirect,
// retail code or QR string on the regional gateway. The transaction stays
// PENDING until the settlement webhook arrives or the expiry sweep claims it.
func (s *PaymentService) CreateAlternativeInstrument(ctx context.Context, userID int64, input AlternativeInstrumentInput) (*AlternativeInstrumentResult, error) {
	gateway, err := s.providers.GetProvider("midtrans")
	if err != nil {
		return nil, err
	}

	tx := &model.Transaction{
		UserID:    userID,
		CourseID:  input.CourseID,
		Amount:    input.Amount,
		Currency:  input.Currency,
		Status:    model.TransactionStatusPending,
		Reference: s.generateReference(referencePrefix(gateway.Name())),
		Metadata: model.Metadata{
			"provider":        gateway.Name(),
			"instrument_kind": string(input.Kind),
		},
		Timestamp: s.now(),
	}
	if err := s.transactionRepo.Create(ctx, tx); err != nil {
		return nil, err
	}

	outcome, err := gateway.CreateAlternativeInstrument(ctx, &provider.AlternativeInstrumentRequest{
		Kind:      input.Kind,
		Amount:    minorUnitAmount(input.Amount, input.Currency),
		Currency:  input.Currency,
		Reference: tx.Reference,
		Channel:   input.Channel,
	})
	if err != nil {
		return nil, err
	}
	if !outcome.Succeeded {
		if err := s.transactionRepo.UpdateStatus(ctx, tx.ID, model.TransactionStatusFailed); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("instrument creation rejected: %s", outcome.FailureMessage)
	}

	return &AlternativeInstrumentResult{
		Transaction: tx,
		Handle:      outcome.Handle,
		ExpiresAt:   outcome.ExpiresAt,
	}, nil
}

// GetTransactionHistory returns the user's ledger rows, newest first.
func (s *PaymentService) GetTransactionHistory(ctx context.Context, userID int64) ([]*model.Transaction, error) {
	return s.transactionRepo.ListByUser(ctx, userID)
}

// HasUserPurchasedCourse reports whether a COMPLETED purchase exists; used by
// the enrollment gate.
func (s *PaymentService) HasUserPurchasedCourse(ctx context.Context, userID, courseID int64) (bool, error) {
	return s.transactionRepo.HasCompletedPurchase(ctx, userID, courseID)
}

// ExpirePendingTransactions sweeps stale PENDING rows to EXPIRED.
func (s *PaymentService) ExpirePendingTransactions(ctx context.Context, ttl time.Duration) (int64, error) {
	return s.transactionRepo.ExpirePending(ctx, s.now().Add(-ttl))
}

// RemindExpiringCards notifies owners of card instruments expiring this
// calendar month, so renewals keep settling after the card rolls over.
func (s *PaymentService) RemindExpiringCards(ctx context.Context) (int, error) {
	now := s.now()
	expiring, err := s.paymentMethodRepo.ListExpiringCards(ctx, int(now.Month()), now.Year())
	if err != nil {
		return 0, err
	}

	for _, method := range expiring {
		payload := map[string]string{
			"payment_method_id": strconv.FormatInt(method.ID, 10),
			"reason":            "card_expiring",
		}
		if method.LastFourDigits != nil {
			payload["last_four"] = *method.LastFourDigits
		}
		if method.ExpiryMonth != nil && method.ExpiryYear != nil {
			payload["expires"] = fmt.Sprintf("%02d/%d", *method.ExpiryMonth, *method.ExpiryYear)
		}
		s.notifier.Notify(ctx, method.UserID, sink.NotifyRenewalReminder, payload)
	}

	if len(expiring) > 0 {
		s.logger.Info("Sent expiring card reminders", zap.Int("count", len(expiring)))
	}
	return len(expiring), nil
}
