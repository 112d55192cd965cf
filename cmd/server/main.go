package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aionlinecourses/billing-service/internal/config"
	"github.com/aionlinecourses/billing-service/internal/infrastructure/crypto"
	"github.com/aionlinecourses/billing-service/internal/infrastructure/database"
	httpServer "github.com/aionlinecourses/billing-service/internal/infrastructure/http"
	providerFactory "github.com/aionlinecourses/billing-service/internal/infrastructure/provider"
	infraSink "github.com/aionlinecourses/billing-service/internal/infrastructure/sink"
	"github.com/aionlinecourses/billing-service/internal/logger"
	"github.com/aionlinecourses/billing-service/internal/scheduler"
	"github.com/aionlinecourses/billing-service/internal/usecase"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Output:      cfg.Log.Output,
		Development: cfg.Log.Development,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	db, err := database.NewConnection(&cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db, zapLogger); err != nil {
			zapLogger.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	if err := database.Migrate(db, zapLogger); err != nil {
		zapLogger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	repos := database.NewRepositories(db, zapLogger)

	tokenCipher, err := crypto.NewAESTokenCipher(cfg.Service.TokenEncryptionKey)
	if err != nil {
		zapLogger.Fatal("Failed to initialize token cipher", zap.Error(err))
	}

	redisClient, err := infraSink.NewRedisClient(&cfg.Redis)
	if err != nil {
		zapLogger.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	notifier := infraSink.NewRedisNotifier(redisClient, zapLogger)
	analytics := infraSink.NewZapAnalytics(zapLogger)

	providers := providerFactory.NewFactory(cfg, zapLogger)

	paymentService := usecase.NewPaymentService(
		repos.Transaction,
		repos.PaymentMethod,
		repos.User,
		providers,
		tokenCipher,
		notifier,
		analytics,
		zapLogger,
	)
	billingService := usecase.NewBillingService(
		repos.Subscription,
		repos.Course,
		repos.User,
		paymentService,
		notifier,
		analytics,
		zapLogger,
		usecase.WithTrialPeriod(cfg.Billing.TrialPeriod),
		usecase.WithGracePeriod(cfg.Billing.GracePeriod),
		usecase.WithReminderLeadTime(cfg.Billing.ReminderLeadTime),
		usecase.WithRenewalConcurrency(cfg.Billing.RenewalConcurrency),
	)
	webhookService := usecase.NewWebhookService(
		repos.WebhookEvent,
		repos.Transaction,
		repos.Subscription,
		repos.Dispute,
		repos.User,
		cfg.Service.WebhookSecret,
		notifier,
		analytics,
		zapLogger,
	)
	disputeService := usecase.NewDisputeService(
		repos.Dispute,
		repos.Transaction,
		notifier,
		analytics,
		zapLogger,
	)
	reportingService := usecase.NewReportingService(
		repos.Transaction,
		repos.Subscription,
		disputeService,
		zapLogger,
	)

	schedulerManager := scheduler.NewManager(billingService, paymentService, &cfg.Billing, zapLogger)
	if err := schedulerManager.Start(); err != nil {
		zapLogger.Fatal("Failed to start scheduler", zap.Error(err))
	}

	srv := httpServer.NewServer(cfg, zapLogger, &httpServer.Services{
		Billing:   billingService,
		Payment:   paymentService,
		Webhook:   webhookService,
		Dispute:   disputeService,
		Reporting: reportingService,
	})

	go func() {
		if err := srv.Start(); err != nil {
			zapLogger.Info("HTTP server stopped", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zapLogger.Info("Shutting down...")

	schedulerManager.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Failed to shutdown HTTP server", zap.Error(err))
	}

	zapLogger.Info("Shutdown complete")
}
