package http

import (
	"context"
	"fmt"
	"net/http"

	handlers "github.com/aionlinecourses/billing-service/internal/adapter/handler/http"
	"github.com/aionlinecourses/billing-service/internal/config"
	"github.com/aionlinecourses/billing-service/internal/middleware/auth"
	"github.com/aionlinecourses/billing-service/internal/usecase"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// Services bundles the usecase layer for route wiring.
type Services struct {
	Billing   *usecase.BillingService
	Payment   *usecase.PaymentService
	Webhook   *usecase.WebhookService
	Dispute   *usecase.DisputeService
	Reporting *usecase.ReportingService
}

type Server struct {
	config   *config.Config
	logger   *zap.Logger
	echo     *echo.Echo
	services *Services
}

// requestValidator adapts go-playground/validator to echo.
type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

func NewServer(cfg *config.Config, logger *zap.Logger, services *Services) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &requestValidator{validate: validator.New()}

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.Service.ClientURL},
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.DELETE},
	}))

	return &Server{
		config:   cfg,
		logger:   logger,
		echo:     e,
		services: services,
	}
}

func (s *Server) Start() error {
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Server.HTTP.Host, s.config.Server.HTTP.Port)
	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": "billing",
		})
	})

	subscriptionHandler := handlers.NewSubscriptionHandler(s.services.Billing, s.logger)
	paymentHandler := handlers.NewPaymentHandler(s.services.Payment, s.logger)
	paymentMethodHandler := handlers.NewPaymentMethodHandler(s.services.Payment, s.logger)
	disputeHandler := handlers.NewDisputeHandler(s.services.Dispute, s.logger)
	reportingHandler := handlers.NewReportingHandler(s.services.Reporting, s.logger)
	webhookHandler := handlers.NewWebhookHandler(s.services.Webhook, s.logger)

	jwtConfig := auth.JWTConfig{
		Secret: s.config.JWT.Secret,
		Logger: s.logger,
		SkipPaths: []string{
			"/health",
			"/webhooks",
		},
	}

	// Gateway callbacks are authenticated by HMAC signature, not JWT.
	s.echo.POST("/webhooks/:provider", webhookHandler.Handle)

	v1 := s.echo.Group("/api/v1", auth.JWTMiddleware(jwtConfig))

	subscriptions := v1.Group("/subscriptions")
	subscriptions.POST("", subscriptionHandler.CreateSubscription)
	subscriptions.GET("", subscriptionHandler.ListSubscriptions)
	subscriptions.GET("/:id", subscriptionHandler.GetSubscription)
	subscriptions.POST("/:id/cancel", subscriptionHandler.CancelSubscription)

	payments := v1.Group("/payments")
	payments.POST("", paymentHandler.Purchase)
	payments.GET("", paymentHandler.History)
	payments.POST("/:id/refund", paymentHandler.Refund)
	payments.GET("/courses/:courseId/purchased", paymentHandler.PurchasedCourse)

	methods := v1.Group("/payment-methods")
	methods.POST("", paymentMethodHandler.Add)
	methods.GET("", paymentMethodHandler.List)
	methods.DELETE("/:id", paymentMethodHandler.Remove)
	methods.POST("/:id/default", paymentMethodHandler.SetDefault)
	methods.POST("/instruments", paymentMethodHandler.CreateAlternativeInstrument)

	disputes := v1.Group("/disputes")
	disputes.POST("", disputeHandler.Create)
	disputes.GET("", disputeHandler.List)
	disputes.GET("/:id", disputeHandler.Get)
	disputes.POST("/:id/status", disputeHandler.UpdateStatus)
	disputes.POST("/:id/evidence", disputeHandler.SubmitEvidence)

	reports := v1.Group("/reports")
	reports.GET("/payments", reportingHandler.PaymentReport)
	reports.GET("/subscriptions", reportingHandler.SubscriptionReport)
	reports.GET("/disputes", reportingHandler.DisputeReport)
}
