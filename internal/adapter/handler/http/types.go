package http

import (
	"errors"
	"net/http"
	"time"

	domainerrors "github.com/aionlinecourses/billing-service/internal/domain/errors"
	"github.com/aionlinecourses/billing-service/internal/middleware/auth"
	"github.com/labstack/echo/v4"
)

// errorStatus maps domain sentinel errors onto HTTP status codes. Unmatched
// errors surface as 500 without leaking internals.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, domainerrors.ErrSubscriptionNotFound),
		errors.Is(err, domainerrors.ErrCourseNotFound),
		errors.Is(err, domainerrors.ErrPaymentMethodNotFound),
		errors.Is(err, domainerrors.ErrTransactionNotFound),
		errors.Is(err, domainerrors.ErrDisputeNotFound):
		return http.StatusNotFound
	case errors.Is(err, domainerrors.ErrDuplicateSubscription),
		errors.Is(err, domainerrors.ErrSubscriptionTerminal),
		errors.Is(err, domainerrors.ErrDisputeTerminal),
		errors.Is(err, domainerrors.ErrRefundNotAllowed):
		return http.StatusConflict
	case errors.Is(err, domainerrors.ErrChargeDeclined):
		return http.StatusPaymentRequired
	case errors.Is(err, domainerrors.ErrInvalidSignature):
		return http.StatusUnauthorized
	case errors.Is(err, domainerrors.ErrMalformedPayload),
		errors.Is(err, domainerrors.ErrUnknownProvider):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// domainErrorJSON writes the mapped status with the error message, falling
// back to a generic body for unexpected errors.
func domainErrorJSON(c echo.Context, err error) error {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		return c.JSON(status, echo.Map{"error": "internal server error"})
	}
	return c.JSON(status, echo.Map{"error": err.Error()})
}

// requireUser pulls the authenticated user off the context.
func requireUser(c echo.Context) (*auth.AuthUser, error) {
	user := auth.GetAuthUser(c)
	if user == nil {
		return nil, c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return user, nil
}

// parseDateRange reads optional from/to query params (RFC 3339 date or
// datetime), defaulting to the trailing 30 days.
func parseDateRange(c echo.Context) (time.Time, time.Time, error) {
	now := time.Now()
	from := now.AddDate(0, 0, -30)
	to := now

	if v := c.QueryParam("from"); v != "" {
		parsed, err := parseFlexibleTime(v)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = parsed
	}
	if v := c.QueryParam("to"); v != "" {
		parsed, err := parseFlexibleTime(v)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = parsed
	}
	return from, to, nil
}

func parseFlexibleTime(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}
