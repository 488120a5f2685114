package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/meterline/subscription-service/internal/core/domain"
	"github.com/meterline/subscription-service/internal/core/ports"
)

// SubscriptionHandler covers the user-initiated billing operations.
type SubscriptionHandler struct {
	billing ports.BillingService
}

func NewSubscriptionHandler(billing ports.BillingService) *SubscriptionHandler {
	return &SubscriptionHandler{billing: billing}
}

// Status handles GET /v1/subscription.
//
// @Summary      Subscription status
// @Tags         subscription
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  subscriptionStatusResponse
// @Failure      401  {object}  errorResponse
// @Router       /v1/subscription [get]
func (h *SubscriptionHandler) Status(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	status, err := h.billing.Status(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, subscriptionStatusResponse{
		Active: status == domain.StatusActive,
		Status: string(status),
	})
}

// Checkout handles POST /v1/subscription/checkout.
//
// @Summary      Start a subscription checkout
// @Tags         subscription
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  checkoutResponse
// @Failure      401  {object}  errorResponse
// @Failure      502  {object}  errorResponse
// @Router       /v1/subscription/checkout [post]
func (h *SubscriptionHandler) Checkout(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	url, err := h.billing.StartSubscription(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, checkoutResponse{URL: url})
}

// Cancel handles POST /v1/subscription/cancel.
//
// @Summary      Cancel at period end
// @Tags         subscription
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  cancelResponse
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      502  {object}  errorResponse
// @Router       /v1/subscription/cancel [post]
func (h *SubscriptionHandler) Cancel(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	periodEnd, err := h.billing.CancelSubscription(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cancelResponse{
		Message:   "subscription will be cancelled at the end of the billing period",
		PeriodEnd: periodEnd,
	})
}

// Donate handles POST /v1/donations. Authentication is optional; the token
// email is used when the body carries none.
//
// @Summary      One-off donation checkout
// @Tags         subscription
// @Accept       json
// @Produce      json
// @Param        body  body      donationRequest  true  "Donation amount"
// @Success      200   {object}  checkoutResponse
// @Failure      422   {object}  errorResponse
// @Failure      502   {object}  errorResponse
// @Router       /v1/donations [post]
func (h *SubscriptionHandler) Donate(c echo.Context) error {
	var req donationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	email := req.Email
	if email == "" {
		email = ctxEmail(c)
	}

	url, err := h.billing.Donate(c.Request().Context(), email, req.AmountCents)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, checkoutResponse{URL: url})
}
