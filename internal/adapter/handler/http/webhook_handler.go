package http

import (
	"errors"
	"io"
	"net/http"

	domainerrors "github.com/aionlinecourses/billing-service/internal/domain/errors"
	"github.com/aionlinecourses/billing-service/internal/usecase"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// signatureHeader carries the lowercase-hex HMAC-SHA256 of the raw body.
const signatureHeader = "X-Webhook-Signature"

type WebhookHandler struct {
	webhookService *usecase.WebhookService
	logger         *zap.Logger
}

func NewWebhookHandler(webhookService *usecase.WebhookService, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		webhookService: webhookService,
		logger:         logger,
	}
}

// Handle handles POST /webhooks/:provider. The gateway retries on any
// non-2xx, so transient failures return 5xx and byzantine payloads 4xx.
func (h *WebhookHandler) Handle(c echo.Context) error {
	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable body"})
	}

	signature := c.Request().Header.Get(signatureHeader)
	providerName := c.Param("provider")

	err = h.webhookService.HandleWebhook(c.Request().Context(), payload, signature)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	case errors.Is(err, domainerrors.ErrInvalidSignature):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid signature"})
	case errors.Is(err, domainerrors.ErrMalformedPayload):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "malformed payload"})
	case errors.Is(err, domainerrors.ErrEventInFlight):
		// Another delivery holds the claim; ask the gateway to redeliver.
		return c.JSON(http.StatusConflict, echo.Map{"error": "event in flight"})
	default:
		h.logger.Error("Webhook processing failed",
			zap.String("provider", providerName),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "processing failed"})
	}
}
