package http

import (
	"net/http"
	"strconv"

	"github.com/aionlinecourses/billing-service/internal/domain/model"
	"github.com/aionlinecourses/billing-service/internal/usecase"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type DisputeHandler struct {
	disputeService *usecase.DisputeService
	logger         *zap.Logger
}

func NewDisputeHandler(disputeService *usecase.DisputeService, logger *zap.Logger) *DisputeHandler {
	return &DisputeHandler{
		disputeService: disputeService,
		logger:         logger,
	}
}

type createDisputeRequest struct {
	TransactionID int64  `json:"transaction_id" validate:"required,gt=0"`
	Reason        string `json:"reason" validate:"required,max=255"`
}

// Create handles POST /api/v1/disputes
func (h *DisputeHandler) Create(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}

	var req createDisputeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	dispute, err := h.disputeService.CreateDispute(c.Request().Context(), req.TransactionID, user.UserID, req.Reason)
	if err != nil {
		h.logger.Warn("Failed to create dispute",
			zap.Int64("transaction_id", req.TransactionID),
			zap.Int64("user_id", user.UserID),
			zap.Error(err))
		return domainErrorJSON(c, err)
	}

	return c.JSON(http.StatusCreated, dispute)
}

type updateDisputeStatusRequest struct {
	Status     string  `json:"status" validate:"required,oneof=PENDING UNDER_REVIEW RESOLVED_MERCHANT_WIN RESOLVED_CUSTOMER_WIN CANCELLED"`
	Resolution *string `json:"resolution"`
}

// UpdateStatus handles POST /api/v1/disputes/:id/status
func (h *DisputeHandler) UpdateStatus(c echo.Context) error {
	if _, err := requireUser(c); err != nil {
		return err
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid dispute id"})
	}

	var req updateDisputeStatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	dispute, err := h.disputeService.UpdateDisputeStatus(c.Request().Context(), id, model.DisputeStatus(req.Status), req.Resolution)
	if err != nil {
		h.logger.Warn("Failed to update dispute status",
			zap.Int64("dispute_id", id),
			zap.String("status", req.Status),
			zap.Error(err))
		return domainErrorJSON(c, err)
	}

	return c.JSON(http.StatusOK, dispute)
}

type submitEvidenceRequest struct {
	Evidence string `json:"evidence" validate:"required"`
}

// SubmitEvidence handles POST /api/v1/disputes/:id/evidence
func (h *DisputeHandler) SubmitEvidence(c echo.Context) error {
	if _, err := requireUser(c); err != nil {
		return err
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid dispute id"})
	}

	var req submitEvidenceRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	if err := h.disputeService.SubmitEvidence(c.Request().Context(), id, req.Evidence); err != nil {
		return domainErrorJSON(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"status": "evidence submitted"})
}

// Get handles GET /api/v1/disputes/:id
func (h *DisputeHandler) Get(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid dispute id"})
	}

	dispute, err := h.disputeService.GetDispute(c.Request().Context(), id, user.UserID)
	if err != nil {
		return domainErrorJSON(c, err)
	}

	return c.JSON(http.StatusOK, dispute)
}

// List handles GET /api/v1/disputes
func (h *DisputeHandler) List(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}

	disputes, err := h.disputeService.ListDisputes(c.Request().Context(), user.UserID)
	if err != nil {
		h.logger.Error("Failed to list disputes",
			zap.Int64("user_id", user.UserID),
			zap.Error(err))
		return domainErrorJSON(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"disputes": disputes})
}
