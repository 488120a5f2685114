package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/meterline/subscription-service/internal/api/metrics"
	"github.com/meterline/subscription-service/internal/core/domain"
	"github.com/meterline/subscription-service/internal/core/ports"
)

// UsageHandler exposes the metering API to authenticated users.
type UsageHandler struct {
	usage            ports.UsageService
	monthlyLimit     int64
	defaultIncrement int64
}

func NewUsageHandler(usage ports.UsageService, monthlyLimit, defaultIncrement int64) *UsageHandler {
	return &UsageHandler{usage: usage, monthlyLimit: monthlyLimit, defaultIncrement: defaultIncrement}
}

// Get handles GET /v1/usage.
//
// @Summary      Current usage count
// @Tags         usage
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  usageResponse
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/usage [get]
func (h *UsageHandler) Get(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	count, err := h.usage.GetUsage(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, usageResponse{UsageCount: count})
}

// Increment handles POST /v1/usage/increment. The body is optional.
//
// @Summary      Increment usage
// @Tags         usage
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      incrementRequest  false  "Increment amount"
// @Success      200   {object}  incrementResponse
// @Failure      401   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /v1/usage/increment [post]
func (h *UsageHandler) Increment(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	var req incrementRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
		}
		if err := c.Validate(&req); err != nil {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		}
	}
	by := req.IncrementBy
	if by == 0 {
		by = h.defaultIncrement
	}

	u, err := h.usage.ApplyUsage(c.Request().Context(), userID, by)
	if err != nil {
		if errors.Is(err, domain.ErrQuotaExceeded) {
			metrics.UsageIncrementsTotal.WithLabelValues("quota_exceeded").Inc()
		} else {
			metrics.UsageIncrementsTotal.WithLabelValues("error").Inc()
		}
		return err
	}

	metrics.UsageIncrementsTotal.WithLabelValues("ok").Inc()
	return c.JSON(http.StatusOK, incrementResponse{
		Success:    true,
		UsageCount: u.UsageCount,
		Limit:      h.monthlyLimit,
		ResetDate:  u.ResetDate,
	})
}
