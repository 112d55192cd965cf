package usecase

import (
	"context"
	"strconv"
	"time"

	domainerrors "github.com/aionlinecourses/billing-service/internal/domain/errors"
	"github.com/aionlinecourses/billing-service/internal/domain/model"
	"github.com/aionlinecourses/billing-service/internal/domain/repository"
	"github.com/aionlinecourses/billing-service/internal/domain/sink"
	"go.uber.org/zap"
)

// DisputeService tracks chargebacks from creation through resolution.
type DisputeService struct {
	disputeRepo     repository.DisputeRepository
	transactionRepo repository.TransactionRepository
	notifier        sink.Notifier
	analytics       sink.Analytics
	logger          *zap.Logger
	now             func() time.Time
}

// DisputeServiceOption configures a DisputeService.
type DisputeServiceOption func(*DisputeService)

// WithDisputeClock overrides the wall clock, for tests.
func WithDisputeClock(now func() time.Time) DisputeServiceOption {
	return func(s *DisputeService) { s.now = now }
}

// NewDisputeService creates a new dispute service
func NewDisputeService(
	disputeRepo repository.DisputeRepository,
	transactionRepo repository.TransactionRepository,
	notifier sink.Notifier,
	analytics sink.Analytics,
	logger *zap.Logger,
	opts ...DisputeServiceOption,
) *DisputeService {
	s := &DisputeService{
		disputeRepo:     disputeRepo,
		transactionRepo: transactionRepo,
		notifier:        notifier,
		analytics:       analytics,
		logger:          logger,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateDispute opens a PENDING dispute against a transaction and flags the
// transaction DISPUTED.
func (s *DisputeService) CreateDispute(ctx context.Context, transactionID, userID int64, reason string) (*model.Dispute, error) {
	tx, err := s.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if tx == nil || tx.UserID != userID {
		return nil, domainerrors.ErrTransactionNotFound
	}

	existing, err := s.disputeRepo.GetByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	dispute := &model.Dispute{
		TransactionID: transactionID,
		UserID:        userID,
		Reason:        reason,
		Status:        model.DisputeStatusPending,
		CreatedAt:     s.now(),
	}
	if err := s.disputeRepo.Create(ctx, dispute); err != nil {
		return nil, err
	}

	if tx.Status != model.TransactionStatusDisputed {
		if err := s.transactionRepo.UpdateStatus(ctx, tx.ID, model.TransactionStatusDisputed); err != nil {
			s.logger.Error("Failed to flag transaction disputed",
				zap.Int64("transaction_id", tx.ID),
				zap.Error(err))
		}
	}

	s.notifier.Notify(ctx, userID, sink.NotifyDisputeCreated, map[string]string{
		"dispute_id": strconv.FormatInt(dispute.ID, 10),
		"reference":  tx.Reference,
	})
	s.analytics.LogEvent("dispute_created", map[string]string{
		"dispute_id": strconv.FormatInt(dispute.ID, 10),
	})

	return dispute, nil
}

// UpdateDisputeStatus moves a dispute along its review flow. ResolvedAt is
// written exactly once, when the dispute enters a resolved status; terminal
// disputes reject further transitions.
func (s *DisputeService) UpdateDisputeStatus(ctx context.Context, id int64, status model.DisputeStatus, resolution *string) (*model.Dispute, error) {
	dispute, err := s.disputeRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if dispute == nil {
		return nil, domainerrors.ErrDisputeNotFound
	}
	if dispute.Status.IsTerminal() {
		return nil, domainerrors.ErrDisputeTerminal
	}

	var resolvedAt *time.Time
	if status.IsResolved() {
		now := s.now()
		resolvedAt = &now
	}

	if err := s.disputeRepo.UpdateStatus(ctx, id, status, resolution, resolvedAt); err != nil {
		return nil, err
	}

	dispute.Status = status
	dispute.Resolution = resolution
	dispute.ResolvedAt = resolvedAt

	// A customer win reverses the money: flag the underlying transaction.
	if status == model.DisputeStatusResolvedCustomerWin {
		if err := s.transactionRepo.UpdateStatus(ctx, dispute.TransactionID, model.TransactionStatusRefunded); err != nil {
			s.logger.Error("Failed to mark disputed transaction refunded",
				zap.Int64("transaction_id", dispute.TransactionID),
				zap.Error(err))
		}
	}

	s.notifier.Notify(ctx, dispute.UserID, sink.NotifyDisputeUpdated, map[string]string{
		"dispute_id": strconv.FormatInt(id, 10),
		"status":     string(status),
	})
	s.analytics.LogEvent("dispute_updated", map[string]string{
		"dispute_id": strconv.FormatInt(id, 10),
		"status":     string(status),
	})

	return dispute, nil
}

// SubmitEvidence attaches or replaces merchant evidence on an open dispute.
func (s *DisputeService) SubmitEvidence(ctx context.Context, id int64, evidence string) error {
	dispute, err := s.disputeRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if dispute == nil {
		return domainerrors.ErrDisputeNotFound
	}
	if dispute.Status.IsTerminal() {
		return domainerrors.ErrDisputeTerminal
	}

	if err := s.disputeRepo.UpdateEvidence(ctx, id, evidence); err != nil {
		return err
	}

	s.analytics.LogEvent("dispute_evidence_submitted", map[string]string{
		"dispute_id": strconv.FormatInt(id, 10),
	})
	return nil
}

// ListDisputes returns the user's disputes, newest first.
func (s *DisputeService) ListDisputes(ctx context.Context, userID int64) ([]*model.Dispute, error) {
	return s.disputeRepo.ListByUser(ctx, userID)
}

// GetDispute returns one dispute owned by the user.
func (s *DisputeService) GetDispute(ctx context.Context, id, userID int64) (*model.Dispute, error) {
	dispute, err := s.disputeRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if dispute == nil || dispute.UserID != userID {
		return nil, domainerrors.ErrDisputeNotFound
	}
	return dispute, nil
}

// DisputeAnalytics summarizes dispute outcomes for a window. Win rate and
// mean resolution time cover resolved disputes only; pending and cancelled
// disputes never dilute either figure.
type DisputeAnalytics struct {
	Total               int     `json:"total"`
	Resolved            int     `json:"resolved"`
	MerchantWins        int     `json:"merchant_wins"`
	CustomerWins        int     `json:"customer_wins"`
	WinRate             float64 `json:"win_rate"`
	MeanResolutionHours float64 `json:"mean_resolution_hours"`
}

// GetDisputeAnalytics computes dispute outcome metrics over a date range.
func (s *DisputeService) GetDisputeAnalytics(ctx context.Context, from, to time.Time) (*DisputeAnalytics, error) {
	disputes, err := s.disputeRepo.ListByDateRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	analytics := &DisputeAnalytics{Total: len(disputes)}
	var totalResolution time.Duration
	for _, d := range disputes {
		if !d.Status.IsResolved() {
			continue
		}
		analytics.Resolved++
		switch d.Status {
		case model.DisputeStatusResolvedMerchantWin:
			analytics.MerchantWins++
		case model.DisputeStatusResolvedCustomerWin:
			analytics.CustomerWins++
		}
		if d.ResolvedAt != nil {
			totalResolution += d.ResolvedAt.Sub(d.CreatedAt)
		}
	}

	if analytics.Resolved > 0 {
		analytics.WinRate = float64(analytics.MerchantWins) / float64(analytics.Resolved)
		analytics.MeanResolutionHours = totalResolution.Hours() / float64(analytics.Resolved)
	}

	return analytics, nil
}
