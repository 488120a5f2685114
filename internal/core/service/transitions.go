package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/meterline/subscription-service/internal/core/domain"
	"github.com/meterline/subscription-service/internal/core/ports"
)

const checkoutModeSubscription = "subscription"

func (s *reconcileService) onCheckoutCompleted(ctx context.Context, p *domain.CheckoutCompletedPayload, log zerolog.Logger) ports.ReconcileResult {
	if p.Mode != checkoutModeSubscription {
		return ports.ReconcileResult{Outcome: domain.OutcomeIgnored, Err: fmt.Errorf("checkout mode %q", p.Mode)}
	}
	if p.CustomerEmail == "" || p.SubscriptionID == "" {
		return failed(fmt.Errorf("%w: checkout session without customer email or subscription", domain.ErrValidation))
	}

	periodEnd, err := s.subscriptionPeriodEnd(ctx, p.SubscriptionID)
	if err != nil {
		return failed(err)
	}
	return s.activate(ctx, p.CustomerEmail, p.CustomerID, periodEnd, log)
}

func (s *reconcileService) onSubscriptionCreated(ctx context.Context, p *domain.SubscriptionPayload, log zerolog.Logger) ports.ReconcileResult {
	if p.CustomerID == "" {
		return failed(fmt.Errorf("%w: subscription without customer", domain.ErrValidation))
	}

	email, err := s.customerEmail(ctx, p.CustomerID)
	if err != nil {
		return failed(err)
	}
	if email == "" {
		log.Warn().Str("customer_id", p.CustomerID).Msg("no email on customer record, skipping")
		return ports.ReconcileResult{Outcome: domain.OutcomeIgnored, Err: errors.New("customer has no email")}
	}

	periodEnd := p.CurrentPeriodEnd
	if periodEnd == nil {
		if periodEnd, err = s.subscriptionPeriodEnd(ctx, p.SubscriptionID); err != nil {
			return failed(err)
		}
	}
	return s.activate(ctx, email, p.CustomerID, periodEnd, log)
}

// activate links the provider customer to the user with email and starts the
// billing cycle ending at periodEnd. A user already active with the same
// reset date is left alone; this is what makes redelivery harmless.
func (s *reconcileService) activate(ctx context.Context, email, customerID string, periodEnd *time.Time, log zerolog.Logger) ports.ReconcileResult {
	// Accounts are stored with the normalised address; provider records may not be.
	email = normalizeEmail(email)
	upd := domain.Activation(customerID, periodEnd)

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return failed(fmt.Errorf("activate %s: %w", email, err))
	}
	if upd.AlreadyApplied(existing) {
		log.Info().Str("email", email).Msg("already active with same reset date, skipping update")
		return ports.ReconcileResult{Outcome: domain.OutcomeSkipped, UserID: existing.ID}
	}

	updated, err := s.users.ApplySubscription(ctx, domain.ByEmail(email), upd)
	if err != nil {
		return failed(fmt.Errorf("activate %s: %w", email, err))
	}

	log.Info().Str("email", updated.Email).Str("customer_id", customerID).Msg("user subscription activated")
	return ports.ReconcileResult{Outcome: domain.OutcomeApplied, UserID: updated.ID}
}

// deactivate handles failed payments and deleted subscriptions alike.
func (s *reconcileService) deactivate(ctx context.Context, customerID, why string, log zerolog.Logger) ports.ReconcileResult {
	if customerID == "" {
		return failed(fmt.Errorf("%w: %s event without customer", domain.ErrValidation, why))
	}

	updated, err := s.users.ApplySubscription(ctx, domain.ByCustomer(customerID), domain.Deactivation())
	if err != nil {
		return failed(fmt.Errorf("deactivate customer %s: %w", customerID, err))
	}

	// The provider email is only for the log line.
	email, lookupErr := s.customerEmail(ctx, customerID)
	if lookupErr != nil || email == "" {
		email = updated.Email
	}
	log.Info().Str("email", email).Str("customer_id", customerID).Str("why", why).Msg("user subscription deactivated")
	return ports.ReconcileResult{Outcome: domain.OutcomeApplied, UserID: updated.ID}
}

func (s *reconcileService) onChargeRefunded(ctx context.Context, p *domain.ChargePayload, log zerolog.Logger) ports.ReconcileResult {
	if p.CustomerID == "" {
		return failed(fmt.Errorf("%w: refund without customer id", domain.ErrValidation))
	}

	lctx, cancel := s.lookupCtx(ctx)
	subs, err := s.provider.ActiveSubscriptions(lctx, p.CustomerID)
	cancel()
	if err != nil {
		return failed(fmt.Errorf("%w: list subscriptions for %s: %v", domain.ErrRemoteLookup, p.CustomerID, err))
	}

	if len(subs) > 0 {
		lctx, cancel := s.lookupCtx(ctx)
		err := s.provider.CancelSubscription(lctx, subs[0])
		cancel()
		if err != nil {
			return failed(fmt.Errorf("%w: cancel subscription %s: %v", domain.ErrRemoteLookup, subs[0], err))
		}
		log.Info().Str("subscription_id", subs[0]).Str("customer_id", p.CustomerID).Msg("provider subscription cancelled")
	}

	updated, err := s.users.ApplySubscription(ctx, domain.ByCustomer(p.CustomerID), domain.Refund())
	if err != nil {
		return failed(fmt.Errorf("refund customer %s: %w", p.CustomerID, err))
	}

	log.Info().Str("email", updated.Email).Msg("subscription marked as refunded")
	return ports.ReconcileResult{Outcome: domain.OutcomeApplied, UserID: updated.ID}
}

func (s *reconcileService) customerEmail(ctx context.Context, customerID string) (string, error) {
	lctx, cancel := s.lookupCtx(ctx)
	defer cancel()

	email, err := s.provider.CustomerEmail(lctx, customerID)
	if err != nil {
		return "", fmt.Errorf("%w: customer %s: %v", domain.ErrRemoteLookup, customerID, err)
	}
	return email, nil
}

func (s *reconcileService) subscriptionPeriodEnd(ctx context.Context, subscriptionID string) (*time.Time, error) {
	lctx, cancel := s.lookupCtx(ctx)
	defer cancel()

	end, err := s.provider.SubscriptionPeriodEnd(lctx, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("%w: subscription %s: %v", domain.ErrRemoteLookup, subscriptionID, err)
	}
	return end, nil
}
