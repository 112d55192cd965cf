package usecase

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	domainerrors "github.com/aionlinecourses/billing-service/internal/domain/errors"
	"github.com/aionlinecourses/billing-service/internal/domain/model"
	"github.com/aionlinecourses/billing-service/internal/domain/repository"
	"github.com/aionlinecourses/billing-service/internal/domain/sink"
	"go.uber.org/zap"
)

// Webhook event types emitted by the gateways.
const (
	EventPaymentSucceeded      = "payment.succeeded"
	EventPaymentFailed         = "payment.failed"
	EventPaymentRefunded       = "payment.refunded"
	EventPaymentDisputed       = "payment.disputed"
	EventSubscriptionCreated   = "subscription.created"
	EventSubscriptionActivated = "subscription.activated"
	EventSubscriptionCancelled = "subscription.cancelled"
	EventSubscriptionExpired   = "subscription.expired"
)

// webhookEnvelope is the provider-normalized callback shape.
type webhookEnvelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Reference      string `json:"reference"`
		Status         string `json:"status"`
		FailureReason  string `json:"failure_reason"`
		DisputeReason  string `json:"dispute_reason"`
		SubscriptionID int64  `json:"subscription_id"`
	} `json:"data"`
}

// WebhookService ingests gateway callbacks: authenticate, store, claim,
// dispatch. Every delivery of one event id applies its side effects at most
// once regardless of redelivery or concurrency.
type WebhookService struct {
	webhookRepo      repository.WebhookEventRepository
	transactionRepo  repository.TransactionRepository
	subscriptionRepo repository.SubscriptionRepository
	disputeRepo      repository.DisputeRepository
	userRepo         repository.UserRepository
	secret           []byte
	notifier         sink.Notifier
	analytics        sink.Analytics
	logger           *zap.Logger
	now              func() time.Time
}

// WebhookServiceOption configures a WebhookService.
type WebhookServiceOption func(*WebhookService)

// WithWebhookClock overrides the wall clock, for tests.
func WithWebhookClock(now func() time.Time) WebhookServiceOption {
	return func(s *WebhookService) { s.now = now }
}

// NewWebhookService creates a new webhook service
func NewWebhookService(
	webhookRepo repository.WebhookEventRepository,
	transactionRepo repository.TransactionRepository,
	subscriptionRepo repository.SubscriptionRepository,
	disputeRepo repository.DisputeRepository,
	userRepo repository.UserRepository,
	secret string,
	notifier sink.Notifier,
	analytics sink.Analytics,
	logger *zap.Logger,
	opts ...WebhookServiceOption,
) *WebhookService {
	s := &WebhookService{
		webhookRepo:      webhookRepo,
		transactionRepo:  transactionRepo,
		subscriptionRepo: subscriptionRepo,
		disputeRepo:      disputeRepo,
		userRepo:         userRepo,
		secret:           []byte(secret),
		notifier:         notifier,
		analytics:        analytics,
		logger:           logger,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// VerifySignature checks the lowercase-hex HMAC-SHA256 of the raw payload in
// constant time.
func (s *WebhookService) VerifySignature(payload []byte, signature string) bool {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// HandleWebhook processes one raw delivery. The event row is stored before
// any side effect; a conditional claim guarantees a single winner across
// concurrent duplicate deliveries, and a completed row short-circuits
// redeliveries as success.
func (s *WebhookService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if !s.VerifySignature(payload, signature) {
		// Store the rejection for audit when the payload is at least
		// parseable; no state beyond the audit row may change.
		s.recordRejected(ctx, payload, "invalid signature")
		s.logger.Warn("Webhook signature verification failed")
		return domainerrors.ErrInvalidSignature
	}

	var envelope webhookEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil || envelope.ID == "" || envelope.Type == "" {
		s.logger.Warn("Webhook payload malformed", zap.Error(err))
		return domainerrors.ErrMalformedPayload
	}

	event := &model.WebhookEvent{
		EventID:    envelope.ID,
		EventType:  envelope.Type,
		Payload:    string(payload),
		Status:     model.WebhookStatusPending,
		ReceivedAt: s.now(),
	}
	if err := s.webhookRepo.Save(ctx, event); err != nil {
		return err
	}

	stored, err := s.webhookRepo.Get(ctx, envelope.ID)
	if err != nil {
		return err
	}
	if stored != nil && stored.Processed() {
		s.logger.Debug("Webhook event already processed",
			zap.String("event_id", envelope.ID))
		return nil
	}

	claimed, err := s.webhookRepo.Claim(ctx, envelope.ID)
	if err != nil {
		return err
	}
	if !claimed {
		// Lost the race or the retry window has not opened. A completed
		// row between the Get above and the claim still counts as success.
		stored, err := s.webhookRepo.Get(ctx, envelope.ID)
		if err != nil {
			return err
		}
		if stored != nil && stored.Processed() {
			return nil
		}
		return domainerrors.ErrEventInFlight
	}

	if err := s.dispatch(ctx, &envelope); err != nil {
		s.logger.Error("Webhook handler failed",
			zap.String("event_id", envelope.ID),
			zap.String("event_type", envelope.Type),
			zap.Error(err))
		if markErr := s.webhookRepo.MarkFailed(ctx, envelope.ID, err); markErr != nil {
			s.logger.Error("Failed to record webhook failure",
				zap.String("event_id", envelope.ID),
				zap.Error(markErr))
		}
		return err
	}

	if err := s.webhookRepo.MarkCompleted(ctx, envelope.ID); err != nil {
		return err
	}

	s.analytics.LogEvent("webhook_received", map[string]string{
		"event_type": envelope.Type,
	})
	return nil
}

// recordRejected stores an audit row for a delivery that failed
// authentication, when the payload yields an event id.
func (s *WebhookService) recordRejected(ctx context.Context, payload []byte, reason string) {
	var envelope webhookEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil || envelope.ID == "" {
		return
	}

	event := &model.WebhookEvent{
		EventID:    envelope.ID,
		EventType:  envelope.Type,
		Payload:    string(payload),
		Status:     model.WebhookStatusFailed,
		LastError:  &reason,
		ReceivedAt: s.now(),
	}
	if err := s.webhookRepo.Save(ctx, event); err != nil {
		s.logger.Error("Failed to store rejected webhook",
			zap.String("event_id", envelope.ID),
			zap.Error(err))
	}
}

// dispatch applies the state transition for one claimed event. Unknown event
// types are kept for audit and skipped without side effects.
func (s *WebhookService) dispatch(ctx context.Context, envelope *webhookEnvelope) error {
	switch envelope.Type {
	case EventPaymentSucceeded:
		return s.handlePaymentSucceeded(ctx, envelope)
	case EventPaymentFailed:
		return s.handlePaymentFailed(ctx, envelope)
	case EventPaymentRefunded:
		return s.handlePaymentRefunded(ctx, envelope)
	case EventPaymentDisputed:
		return s.handlePaymentDisputed(ctx, envelope)
	case EventSubscriptionCreated:
		s.logger.Info("Gateway acknowledged subscription",
			zap.Int64("subscription_id", envelope.Data.SubscriptionID))
		return nil
	case EventSubscriptionActivated:
		return s.transitionSubscription(ctx, envelope.Data.SubscriptionID, model.SubscriptionStatusActive)
	case EventSubscriptionCancelled:
		return s.handleSubscriptionCancelled(ctx, envelope.Data.SubscriptionID)
	case EventSubscriptionExpired:
		return s.transitionSubscription(ctx, envelope.Data.SubscriptionID, model.SubscriptionStatusExpired)
	default:
		s.logger.Info("Skipping unknown webhook event type",
			zap.String("event_id", envelope.ID),
			zap.String("event_type", envelope.Type))
		return nil
	}
}

func (s *WebhookService) handlePaymentSucceeded(ctx context.Context, envelope *webhookEnvelope) error {
	tx, err := s.transactionRepo.GetByReference(ctx, envelope.Data.Reference)
	if err != nil {
		return err
	}
	if tx == nil {
		// The ledger row may not have landed yet; fail so the retry window
		// picks the event up again.
		return fmt.Errorf("%w: reference %s", domainerrors.ErrTransactionNotFound, envelope.Data.Reference)
	}
	if tx.Status == model.TransactionStatusCompleted {
		return nil
	}

	if err := s.transactionRepo.UpdateStatus(ctx, tx.ID, model.TransactionStatusCompleted); err != nil {
		return err
	}

	if err := s.userRepo.AddEnrollment(ctx, tx.UserID, tx.CourseID); err != nil {
		s.logger.Error("Failed to enroll user after settlement",
			zap.Int64("user_id", tx.UserID),
			zap.Int64("course_id", tx.CourseID),
			zap.Error(err))
	}

	s.notifier.Notify(ctx, tx.UserID, sink.NotifyPaymentSuccess, map[string]string{
		"reference": tx.Reference,
	})
	return nil
}

func (s *WebhookService) handlePaymentFailed(ctx context.Context, envelope *webhookEnvelope) error {
	tx, err := s.transactionRepo.GetByReference(ctx, envelope.Data.Reference)
	if err != nil {
		return err
	}
	if tx == nil {
		return fmt.Errorf("%w: reference %s", domainerrors.ErrTransactionNotFound, envelope.Data.Reference)
	}
	if tx.Status != model.TransactionStatusPending {
		return nil
	}

	if err := s.transactionRepo.UpdateStatus(ctx, tx.ID, model.TransactionStatusFailed); err != nil {
		return err
	}

	s.notifier.Notify(ctx, tx.UserID, sink.NotifyPaymentFailure, map[string]string{
		"reference": tx.Reference,
		"reason":    envelope.Data.FailureReason,
	})
	return nil
}

// handlePaymentRefunded reconciles a gateway-initiated refund: the original
// row flips to REFUNDED and a netting row appears, unless the refund was
// already recorded locally.
func (s *WebhookService) handlePaymentRefunded(ctx context.Context, envelope *webhookEnvelope) error {
	tx, err := s.transactionRepo.GetByReference(ctx, envelope.Data.Reference)
	if err != nil {
		return err
	}
	if tx == nil {
		return fmt.Errorf("%w: reference %s", domainerrors.ErrTransactionNotFound, envelope.Data.Reference)
	}
	if tx.Status == model.TransactionStatusRefunded {
		return nil
	}

	refundRef := "REFUND-" + tx.Reference
	existing, err := s.transactionRepo.GetByReference(ctx, refundRef)
	if err != nil {
		return err
	}
	if existing == nil {
		refund := &model.Transaction{
			UserID:          tx.UserID,
			CourseID:        tx.CourseID,
			Amount:          tx.Amount.Neg(),
			Currency:        tx.Currency,
			Status:          model.TransactionStatusCompleted,
			PaymentMethodID: tx.PaymentMethodID,
			Reference:       refundRef,
			Metadata: model.Metadata{
				"original_reference": tx.Reference,
				"source":             "webhook",
			},
			Timestamp: s.now(),
		}
		if err := s.transactionRepo.Create(ctx, refund); err != nil {
			return err
		}
	}

	if err := s.transactionRepo.UpdateStatus(ctx, tx.ID, model.TransactionStatusRefunded); err != nil {
		return err
	}

	s.notifier.Notify(ctx, tx.UserID, sink.NotifyPaymentRefund, map[string]string{
		"reference": tx.Reference,
	})
	return nil
}

func (s *WebhookService) handlePaymentDisputed(ctx context.Context, envelope *webhookEnvelope) error {
	tx, err := s.transactionRepo.GetByReference(ctx, envelope.Data.Reference)
	if err != nil {
		return err
	}
	if tx == nil {
		return fmt.Errorf("%w: reference %s", domainerrors.ErrTransactionNotFound, envelope.Data.Reference)
	}

	if tx.Status != model.TransactionStatusDisputed {
		if err := s.transactionRepo.UpdateStatus(ctx, tx.ID, model.TransactionStatusDisputed); err != nil {
			return err
		}
	}

	existing, err := s.disputeRepo.GetByTransactionID(ctx, tx.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		reason := envelope.Data.DisputeReason
		if reason == "" {
			reason = "chargeback reported by gateway"
		}
		dispute := &model.Dispute{
			TransactionID: tx.ID,
			UserID:        tx.UserID,
			Reason:        reason,
			Status:        model.DisputeStatusPending,
			CreatedAt:     s.now(),
		}
		if err := s.disputeRepo.Create(ctx, dispute); err != nil {
			return err
		}
	}

	s.notifier.Notify(ctx, tx.UserID, sink.NotifyDisputeCreated, map[string]string{
		"reference": tx.Reference,
	})
	return nil
}

func (s *WebhookService) transitionSubscription(ctx context.Context, id int64, status model.SubscriptionStatus) error {
	sub, err := s.subscriptionRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if sub == nil {
		return fmt.Errorf("%w: id %d", domainerrors.ErrSubscriptionNotFound, id)
	}
	if sub.Status == status || sub.Status.IsTerminal() {
		return nil
	}
	return s.subscriptionRepo.UpdateStatus(ctx, id, status)
}

func (s *WebhookService) handleSubscriptionCancelled(ctx context.Context, id int64) error {
	sub, err := s.subscriptionRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if sub == nil {
		return fmt.Errorf("%w: id %d", domainerrors.ErrSubscriptionNotFound, id)
	}
	if sub.Status.IsTerminal() {
		return nil
	}
	return s.subscriptionRepo.Cancel(ctx, id, s.now())
}
