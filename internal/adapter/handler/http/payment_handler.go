package http

import (
	"net/http"
	"strconv"

	"github.com/aionlinecourses/billing-service/internal/usecase"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	paymentService *usecase.PaymentService
	logger         *zap.Logger
}

func NewPaymentHandler(paymentService *usecase.PaymentService, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		logger:         logger,
	}
}

type purchaseRequest struct {
	CourseID        int64  `json:"course_id" validate:"required,gt=0"`
	Amount          string `json:"amount" validate:"required"`
	Currency        string `json:"currency" validate:"omitempty,len=3"`
	PaymentMethodID int64  `json:"payment_method_id" validate:"required,gt=0"`
}

// Purchase handles POST /api/v1/payments
func (h *PaymentHandler) Purchase(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}

	var req purchaseRequest
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

	tx, err := h.paymentService.ProcessPayment(c.Request().Context(), user.UserID, req.CourseID, amount, currency, req.PaymentMethodID)
	if err != nil {
		h.logger.Warn("Payment failed",
			zap.Int64("user_id", user.UserID),
			zap.Int64("course_id", req.CourseID),
			zap.Error(err))
		// The FAILED transaction (when one exists) rides along so the client
		// can show the reference.
		status := errorStatus(err)
		if tx != nil && status != http.StatusInternalServerError {
			return c.JSON(status, echo.Map{"error": err.Error(), "transaction": tx})
		}
		return domainErrorJSON(c, err)
	}

	return c.JSON(http.StatusCreated, tx)
}

// Refund handles POST /api/v1/payments/:id/refund
func (h *PaymentHandler) Refund(c echo.Context) error {
	if _, err := requireUser(c); err != nil {
		return err
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid transaction id"})
	}

	refund, err := h.paymentService.ProcessRefund(c.Request().Context(), id)
	if err != nil {
		h.logger.Warn("Refund failed",
			zap.Int64("transaction_id", id),
			zap.Error(err))
		return domainErrorJSON(c, err)
	}

	return c.JSON(http.StatusCreated, refund)
}

// History handles GET /api/v1/payments
func (h *PaymentHandler) History(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}

	txs, err := h.paymentService.GetTransactionHistory(c.Request().Context(), user.UserID)
	if err != nil {
		h.logger.Error("Failed to load transaction history",
			zap.Int64("user_id", user.UserID),
			zap.Error(err))
		return domainErrorJSON(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"transactions": txs})
}

// PurchasedCourse handles GET /api/v1/payments/courses/:courseId/purchased
func (h *PaymentHandler) PurchasedCourse(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}

	courseID, err := strconv.ParseInt(c.Param("courseId"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid course id"})
	}

	purchased, err := h.paymentService.HasUserPurchasedCourse(c.Request().Context(), user.UserID, courseID)
	if err != nil {
		return domainErrorJSON(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"purchased": purchased})
}
