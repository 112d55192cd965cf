package usecase

import (
	"context"
	"time"

	"github.com/aionlinecourses/billing-service/internal/domain/model"
	"github.com/aionlinecourses/billing-service/internal/domain/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReportingService builds read-side aggregates over the ledger. Reports are
// recomputed on demand from the stored rows; nothing here mutates state.
type ReportingService struct {
	transactionRepo  repository.TransactionRepository
	subscriptionRepo repository.SubscriptionRepository
	disputeService   *DisputeService
	logger           *zap.Logger
}

// NewReportingService creates a new reporting service
func NewReportingService(
	transactionRepo repository.TransactionRepository,
	subscriptionRepo repository.SubscriptionRepository,
	disputeService *DisputeService,
	logger *zap.Logger,
) *ReportingService {
	return &ReportingService{
		transactionRepo:  transactionRepo,
		subscriptionRepo: subscriptionRepo,
		disputeService:   disputeService,
		logger:           logger,
	}
}

// PaymentReport aggregates ledger activity for a window. Revenue sums
// COMPLETED rows, so refund rows (negative COMPLETED) net out naturally.
type PaymentReport struct {
	From                   time.Time       `json:"from"`
	To                     time.Time       `json:"to"`
	TotalTransactions      int             `json:"total_transactions"`
	CountByStatus          map[string]int  `json:"count_by_status"`
	SuccessRate            float64         `json:"success_rate"`
	TotalRevenue           decimal.Decimal `json:"total_revenue"`
	AverageAmount          decimal.Decimal `json:"average_amount"`
	MethodTypeDistribution map[string]int  `json:"method_type_distribution"`
}

// GetPaymentReport recomputes payment aggregates for the window.
func (s *ReportingService) GetPaymentReport(ctx context.Context, from, to time.Time) (*PaymentReport, error) {
	txs, err := s.transactionRepo.ListByDateRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	report := &PaymentReport{
		From:                   from,
		To:                     to,
		TotalTransactions:      len(txs),
		CountByStatus:          make(map[string]int),
		TotalRevenue:           decimal.Zero,
		AverageAmount:          decimal.Zero,
		MethodTypeDistribution: make(map[string]int),
	}

	completed := 0
	terminal := 0
	completedSum := decimal.Zero
	for _, tx := range txs {
		report.CountByStatus[string(tx.Status)]++
		if kind, ok := tx.Metadata["method_type"]; ok {
			report.MethodTypeDistribution[kind]++
		}

		switch tx.Status {
		case model.TransactionStatusCompleted, model.TransactionStatusRefunded:
			report.TotalRevenue = report.TotalRevenue.Add(tx.Amount)
		}
		if tx.Status == model.TransactionStatusCompleted && tx.Amount.IsPositive() {
			completed++
			completedSum = completedSum.Add(tx.Amount)
		}
		if tx.Status != model.TransactionStatusPending {
			terminal++
		}
	}

	if terminal > 0 {
		report.SuccessRate = float64(completed) / float64(terminal)
	}
	if completed > 0 {
		report.AverageAmount = completedSum.DivRound(decimal.NewFromInt(int64(completed)), 2)
	}

	return report, nil
}

// SubscriptionReport aggregates subscription lifecycle outcomes for a window
// of subscription start dates.
type SubscriptionReport struct {
	From                time.Time                  `json:"from"`
	To                  time.Time                  `json:"to"`
	TotalSubscriptions  int                        `json:"total_subscriptions"`
	CountByStatus       map[string]int             `json:"count_by_status"`
	RevenueByPlan       map[string]decimal.Decimal `json:"revenue_by_plan"`
	ChurnRate           float64                    `json:"churn_rate"`
	TrialStarted        int                        `json:"trial_started"`
	TrialConverted      int                        `json:"trial_converted"`
	TrialConversionRate float64                    `json:"trial_conversion_rate"`
}

// GetSubscriptionReport recomputes subscription aggregates for the window.
// Churn counts CANCELED and EXPIRED outcomes; trial conversion counts
// trial-started subscriptions that have been billed at least once.
func (s *ReportingService) GetSubscriptionReport(ctx context.Context, from, to time.Time) (*SubscriptionReport, error) {
	subs, err := s.subscriptionRepo.ListByDateRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	report := &SubscriptionReport{
		From:               from,
		To:                 to,
		TotalSubscriptions: len(subs),
		CountByStatus:      make(map[string]int),
		RevenueByPlan:      make(map[string]decimal.Decimal),
	}

	churned := 0
	for _, sub := range subs {
		report.CountByStatus[string(sub.Status)]++

		if sub.Status.IsTerminal() {
			churned++
		}

		if sub.LastBillingDate != nil {
			plan := string(sub.PlanType)
			current := report.RevenueByPlan[plan]
			report.RevenueByPlan[plan] = current.Add(sub.Amount)
		}

		if sub.TrialEndDate != nil {
			report.TrialStarted++
			if sub.LastBillingDate != nil {
				report.TrialConverted++
			}
		}
	}

	if report.TotalSubscriptions > 0 {
		report.ChurnRate = float64(churned) / float64(report.TotalSubscriptions)
	}
	if report.TrialStarted > 0 {
		report.TrialConversionRate = float64(report.TrialConverted) / float64(report.TrialStarted)
	}

	return report, nil
}

// GetDisputeReport exposes the dispute outcome metrics through the reporting
// surface.
func (s *ReportingService) GetDisputeReport(ctx context.Context, from, to time.Time) (*DisputeAnalytics, error) {
	return s.disputeService.GetDisputeAnalytics(ctx, from, to)
}
