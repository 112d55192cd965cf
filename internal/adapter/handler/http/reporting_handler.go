package http

import (
	"net/http"

	"github.com/aionlinecourses/billing-service/internal/usecase"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type ReportingHandler struct {
	reportingService *usecase.ReportingService
	logger           *zap.Logger
}

func NewReportingHandler(reportingService *usecase.ReportingService, logger *zap.Logger) *ReportingHandler {
	return &ReportingHandler{
		reportingService: reportingService,
		logger:           logger,
	}
}

// PaymentReport handles GET /api/v1/reports/payments
func (h *ReportingHandler) PaymentReport(c echo.Context) error {
	if _, err := requireUser(c); err != nil {
		return err
	}

	from, to, err := parseDateRange(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date range"})
	}

	report, err := h.reportingService.GetPaymentReport(c.Request().Context(), from, to)
	if err != nil {
		h.logger.Error("Failed to build payment report", zap.Error(err))
		return domainErrorJSON(c, err)
	}

	return c.JSON(http.StatusOK, report)
}

// SubscriptionReport handles GET /api/v1/reports/subscriptions
func (h *ReportingHandler) SubscriptionReport(c echo.Context) error {
	if _, err := requireUser(c); err != nil {
		return err
	}

	from, to, err := parseDateRange(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date range"})
	}

	report, err := h.reportingService.GetSubscriptionReport(c.Request().Context(), from, to)
	if err != nil {
		h.logger.Error("Failed to build subscription report", zap.Error(err))
		return domainErrorJSON(c, err)
	}

	return c.JSON(http.StatusOK, report)
}

// DisputeReport handles GET /api/v1/reports/disputes
func (h *ReportingHandler) DisputeReport(c echo.Context) error {
	if _, err := requireUser(c); err != nil {
		return err
	}

	from, to, err := parseDateRange(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date range"})
	}

	report, err := h.reportingService.GetDisputeReport(c.Request().Context(), from, to)
	if err != nil {
		h.logger.Error("Failed to build dispute report", zap.Error(err))
		return domainErrorJSON(c, err)
	}

	return c.JSON(http.StatusOK, report)
}
