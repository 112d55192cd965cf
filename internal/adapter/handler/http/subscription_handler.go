package http

import (
	"net/http"
	"strconv"

	"github.com/aionlinecourses/billing-service/internal/domain/model"
	"github.com/aionlinecourses/billing-service/internal/usecase"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type SubscriptionHandler struct {
	billingService *usecase.BillingService
	logger         *zap.Logger
}

func NewSubscriptionHandler(billingService *usecase.BillingService, logger *zap.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		billingService: billingService,
		logger:         logger,
	}
}

type createSubscriptionRequest struct {
	CourseID        int64  `json:"course_id" validate:"required,gt=0"`
	PlanType        string `json:"plan_type" validate:"required,oneof=MONTHLY QUARTERLY YEARLY LIFETIME"`
	PaymentMethodID *int64 `json:"payment_method_id"`
	Amount          string `json:"amount" validate:"required"`
	Currency        string `json:"currency" validate:"omitempty,len=3"`
	WithTrial       bool   `json:"with_trial"`
}

// CreateSubscription handles POST /api/v1/subscriptions
func (h *SubscriptionHandler) CreateSubscription(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}

	var req createSubscriptionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount must be a positive decimal"})
	}

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	sub, err := h.billingService.CreateSubscription(c.Request().Context(), usecase.CreateSubscriptionInput{
		UserID:          user.UserID,
		CourseID:        req.CourseID,
		PlanType:        model.SubscriptionPlanType(req.PlanType),
		PaymentMethodID: req.PaymentMethodID,
		Amount:          amount,
		Currency:        currency,
		WithTrial:       req.WithTrial,
	})
	if err != nil {
		h.logger.Warn("Failed to create subscription",
			zap.Int64("user_id", user.UserID),
			zap.Int64("course_id", req.CourseID),
			zap.Error(err))
		return domainErrorJSON(c, err)
	}

	return c.JSON(http.StatusCreated, sub)
}

// CancelSubscription handles POST /api/v1/subscriptions/:id/cancel
func (h *SubscriptionHandler) CancelSubscription(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid subscription id"})
	}

	if err := h.billingService.CancelSubscription(c.Request().Context(), id, user.UserID); err != nil {
		h.logger.Warn("Failed to cancel subscription",
			zap.Int64("subscription_id", id),
			zap.Int64("user_id", user.UserID),
			zap.Error(err))
		return domainErrorJSON(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"status": "canceled"})
}

// GetSubscription handles GET /api/v1/subscriptions/:id
func (h *SubscriptionHandler) GetSubscription(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid subscription id"})
	}

	sub, err := h.billingService.GetSubscription(c.Request().Context(), id, user.UserID)
	if err != nil {
		return domainErrorJSON(c, err)
	}

	return c.JSON(http.StatusOK, sub)
}

// ListSubscriptions handles GET /api/v1/subscriptions
func (h *SubscriptionHandler) ListSubscriptions(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}

	subs, err := h.billingService.ListSubscriptions(c.Request().Context(), user.UserID)
	if err != nil {
		h.logger.Error("Failed to list subscriptions",
			zap.Int64("user_id", user.UserID),
			zap.Error(err))
		return domainErrorJSON(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"subscriptions": subs})
}
