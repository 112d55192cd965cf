package http

import (
	"net/http"
	"strconv"

	"github.com/aionlinecourses/billing-service/internal/domain/model"
	"github.com/aionlinecourses/billing-service/internal/domain/provider"
	"github.com/aionlinecourses/billing-service/internal/usecase"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type PaymentMethodHandler struct {
	paymentService *usecase.PaymentService
	logger         *zap.Logger
}

func NewPaymentMethodHandler(paymentService *usecase.PaymentService, logger *zap.Logger) *PaymentMethodHandler {
	return &PaymentMethodHandler{
		paymentService: paymentService,
		logger:         logger,
	}
}

type addPaymentMethodRequest struct {
	Provider    string `json:"provider" validate:"required,oneof=stripe midtrans"`
	Type        string `json:"type" validate:"required,oneof=CREDIT_CARD DEBIT_CARD PAYPAL BANK_TRANSFER GOOGLE_PAY APPLE_PAY"`
	CardNumber  string `json:"card_number" validate:"omitempty,min=12,max=19"`
	ExpiryMonth int    `json:"expiry_month" validate:"omitempty,min=1,max=12"`
	ExpiryYear  int    `json:"expiry_year"`
	CVC         string `json:"cvc" validate:"omitempty,min=3,max=4"`
	Token       string `json:"token"`
	MakeDefault bool   `json:"make_default"`
}

// Add handles POST /api/v1/payment-methods
func (h *PaymentMethodHandler) Add(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}

	var req addPaymentMethodRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	method, err := h.paymentService.AddPaymentMethod(c.Request().Context(), user.UserID, usecase.AddPaymentMethodInput{
		Provider:    req.Provider,
		Type:        model.PaymentMethodType(req.Type),
		CardNumber:  req.CardNumber,
		ExpiryMonth: req.ExpiryMonth,
		ExpiryYear:  req.ExpiryYear,
		CVC:         req.CVC,
		Token:       req.Token,
		MakeDefault: req.MakeDefault,
	})
	if err != nil {
		h.logger.Warn("Failed to add payment method",
			zap.Int64("user_id", user.UserID),
			zap.String("provider", req.Provider),
			zap.Error(err))
		return domainErrorJSON(c, err)
	}

	return c.JSON(http.StatusCreated, method)
}

// Remove handles DELETE /api/v1/payment-methods/:id
func (h *PaymentMethodHandler) Remove(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payment method id"})
	}

	if err := h.paymentService.RemovePaymentMethod(c.Request().Context(), user.UserID, id); err != nil {
		return domainErrorJSON(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// SetDefault handles POST /api/v1/payment-methods/:id/default
func (h *PaymentMethodHandler) SetDefault(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payment method id"})
	}

	if err := h.paymentService.SetDefaultPaymentMethod(c.Request().Context(), user.UserID, id); err != nil {
		return domainErrorJSON(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"status": "default updated"})
}

// List handles GET /api/v1/payment-methods
func (h *PaymentMethodHandler) List(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}

	methods, err := h.paymentService.ListPaymentMethods(c.Request().Context(), user.UserID)
	if err != nil {
		h.logger.Error("Failed to list payment methods",
			zap.Int64("user_id", user.UserID),
			zap.Error(err))
		return domainErrorJSON(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"payment_methods": methods})
}

type alternativeInstrumentRequest struct {
	CourseID int64  `json:"course_id" validate:"required,gt=0"`
	Kind     string `json:"kind" validate:"required,oneof=VIRTUAL_ACCOUNT EWALLET RETAIL_OUTLET QR_CODE"`
	Amount   string `json:"amount" validate:"required"`
	Currency string `json:"currency" validate:"omitempty,len=3"`
	Channel  string `json:"channel"`
}

// CreateAlternativeInstrument handles POST /api/v1/payment-methods/instruments
func (h *PaymentMethodHandler) CreateAlternativeInstrument(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}

	var req alternativeInstrumentRequest
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
		currency = "IDR"
	}

	result, err := h.paymentService.CreateAlternativeInstrument(c.Request().Context(), user.UserID, usecase.AlternativeInstrumentInput{
		CourseID: req.CourseID,
		Kind:     provider.AlternativeInstrumentKind(req.Kind),
		Amount:   amount,
		Currency: currency,
		Channel:  req.Channel,
	})
	if err != nil {
		h.logger.Warn("Failed to create alternative instrument",
			zap.Int64("user_id", user.UserID),
			zap.String("kind", req.Kind),
			zap.Error(err))
		return domainErrorJSON(c, err)
	}

	return c.JSON(http.StatusCreated, result)
}
