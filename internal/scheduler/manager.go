package scheduler

import (
	"context"
	"time"

	"github.com/aionlinecourses/billing-service/internal/config"
	"github.com/aionlinecourses/billing-service/internal/usecase"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Manager owns the background billing jobs: the renewal cycle and the
// pending-transaction expiry sweep.
type Manager struct {
	cron           *cron.Cron
	billingService *usecase.BillingService
	paymentService *usecase.PaymentService
	cfg            *config.BillingConfig
	logger         *zap.Logger
}

// NewManager creates a new scheduler manager
func NewManager(
	billingService *usecase.BillingService,
	paymentService *usecase.PaymentService,
	cfg *config.BillingConfig,
	logger *zap.Logger,
) *Manager {
	return &Manager{
		cron:           cron.New(),
		billingService: billingService,
		paymentService: paymentService,
		cfg:            cfg,
		logger:         logger,
	}
}

// Start registers the jobs and starts the scheduler.
func (m *Manager) Start() error {
	if err := m.registerJobs(); err != nil {
		return err
	}

	m.cron.Start()
	m.logger.Info("Scheduler started",
		zap.String("renewal_spec", m.cfg.RenewalSpec))
	return nil
}

// Stop stops the scheduler and waits for running jobs to finish.
func (m *Manager) Stop() {
	m.logger.Info("Stopping scheduler...")
	ctx := m.cron.Stop()
	<-ctx.Done()
	m.logger.Info("Scheduler stopped")
}

func (m *Manager) registerJobs() error {
	_, err := m.cron.AddFunc(m.cfg.RenewalSpec, func() {
		m.runJob("renewal_cycle", m.runRenewalCycle)
	})
	if err != nil {
		return err
	}

	// Pending transactions that never settle are swept hourly.
	_, err = m.cron.AddFunc("@hourly", func() {
		m.runJob("expire_pending_transactions", m.runPendingExpiry)
	})
	if err != nil {
		return err
	}

	_, err = m.cron.AddFunc("@daily", func() {
		m.runJob("billing_reminders", m.runReminders)
	})
	if err != nil {
		return err
	}

	return nil
}

// runJob isolates one job run: a panic in a handler never takes down the
// scheduler or the process.
func (m *Manager) runJob(name string, job func(ctx context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Scheduled job panicked",
				zap.String("job", name),
				zap.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	start := time.Now()
	m.logger.Info("Scheduled job starting", zap.String("job", name))

	if err := job(ctx); err != nil {
		m.logger.Error("Scheduled job failed",
			zap.String("job", name),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return
	}

	m.logger.Info("Scheduled job finished",
		zap.String("job", name),
		zap.Duration("elapsed", time.Since(start)))
}

func (m *Manager) runRenewalCycle(ctx context.Context) error {
	return m.billingService.RunRenewalCycle(ctx)
}

func (m *Manager) runPendingExpiry(ctx context.Context) error {
	expired, err := m.paymentService.ExpirePendingTransactions(ctx, m.cfg.PendingTransactionTTL)
	if err != nil {
		return err
	}
	if expired > 0 {
		m.logger.Info("Expired stale pending transactions", zap.Int64("count", expired))
	}
	return nil
}

// runReminders sends upcoming-renewal and expiring-card notices. Each half
// runs regardless of the other failing.
func (m *Manager) runReminders(ctx context.Context) error {
	_, renewalErr := m.billingService.SendRenewalReminders(ctx)
	if renewalErr != nil {
		m.logger.Error("Failed to send renewal reminders", zap.Error(renewalErr))
	}

	_, cardErr := m.paymentService.RemindExpiringCards(ctx)
	if cardErr != nil {
		m.logger.Error("Failed to send expiring card reminders", zap.Error(cardErr))
	}

	if renewalErr != nil {
		return renewalErr
	}
	return cardErr
}
