package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/meterline/subscription-service/internal/api/metrics"
	"github.com/meterline/subscription-service/internal/core/domain"
	"github.com/meterline/subscription-service/internal/core/ports"
	"github.com/meterline/subscription-service/internal/core/service"
)

const (
	signatureHeader = "Stripe-Signature"
	maxWebhookBody  = 1 << 20
)

// WebhookHandler receives payment provider events.
type WebhookHandler struct {
	verifier   ports.EventVerifier
	reconciler ports.ReconcileService
	log        zerolog.Logger
}

func NewWebhookHandler(verifier ports.EventVerifier, reconciler ports.ReconcileService, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{verifier: verifier, reconciler: reconciler, log: log}
}

// Receive handles POST /webhook. The body must reach this handler unparsed.
// Verified events are always acknowledged with 200, including those whose
// reconciliation failed; only verification failures get 400.
//
// @Summary      Payment provider webhook
// @Tags         webhook
// @Accept       json
// @Produce      json
// @Param        Stripe-Signature  header    string  true  "Provider signature"
// @Success      200               {object}  webhookResponse
// @Failure      400               {object}  errorResponse
// @Failure      413               {object}  errorResponse
// @Router       /webhook [post]
func (h *WebhookHandler) Receive(c echo.Context) error {
	start := time.Now()

	// One byte over the limit tells a truncated body from one that fits.
	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody+1))
	if err != nil {
		metrics.WebhookRejectedTotal.WithLabelValues("unreadable").Inc()
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Webhook Error: unreadable body"})
	}
	if len(payload) > maxWebhookBody {
		metrics.WebhookRejectedTotal.WithLabelValues("too_large").Inc()
		h.log.Warn().Str("remote_ip", c.RealIP()).Int("limit", maxWebhookBody).Msg("webhook body too large")
		return c.JSON(http.StatusRequestEntityTooLarge, errorResponse{Error: "Webhook Error: payload too large"})
	}

	ev, err := h.verifier.Verify(payload, c.Request().Header.Get(signatureHeader))
	if err != nil {
		metrics.WebhookRejectedTotal.WithLabelValues("signature").Inc()
		h.log.Warn().Err(err).Str("remote_ip", c.RealIP()).Msg("webhook verification failed")
		msg := "Webhook Error"
		if errors.Is(err, domain.ErrAuthentication) {
			msg = "Webhook Error: " + err.Error()
		}
		return c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
	}

	// Reconciliation runs to completion even if the provider hangs up.
	ctx := context.WithoutCancel(c.Request().Context())
	res := h.reconciler.Reconcile(ctx, ev)

	metrics.WebhookEventsTotal.WithLabelValues(res.Kind.String(), string(res.Outcome)).Inc()
	if res.Duplicate {
		metrics.WebhookLedgerHitsTotal.Inc()
	}
	if res.Outcome == domain.OutcomeFailed {
		metrics.ReconcileErrorsTotal.WithLabelValues(service.FailureReason(res.Err)).Inc()
	}
	metrics.WebhookProcessingDuration.WithLabelValues(res.Kind.String()).Observe(time.Since(start).Seconds())

	return c.JSON(http.StatusOK, webhookResponse{Received: true})
}
