package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/meterline/subscription-service/internal/core/domain"
	"github.com/meterline/subscription-service/internal/core/ports"
)

// BillingConfig holds the provider settings for user-initiated checkouts.
type BillingConfig struct {
	PriceID       string
	ClientURL     string
	LookupTimeout time.Duration
}

type billingService struct {
	users    ports.UserRepository
	provider ports.PaymentProvider
	cfg      BillingConfig
	log      zerolog.Logger
}

// NewBillingService returns the service behind the subscription endpoints.
func NewBillingService(users ports.UserRepository, provider ports.PaymentProvider, cfg BillingConfig, log zerolog.Logger) ports.BillingService {
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = DefaultLookupTimeout
	}
	cfg.ClientURL = strings.TrimRight(cfg.ClientURL, "/")
	return &billingService{users: users, provider: provider, cfg: cfg, log: log}
}

func (s *billingService) Status(ctx context.Context, userID string) (domain.SubscriptionStatus, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return u.SubscriptionStatus, nil
}

// StartSubscription opens a subscription checkout for the user. Activation
// happens later, when the provider reports the completed checkout.
func (s *billingService) StartSubscription(ctx context.Context, userID string) (string, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.LookupTimeout)
	defer cancel()

	checkoutURL, err := s.provider.CreateCheckoutSession(ctx, ports.CheckoutRequest{
		Mode:          "subscription",
		PriceID:       s.cfg.PriceID,
		CustomerEmail: u.Email,
		SuccessURL:    s.cfg.ClientURL + "/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     s.cfg.ClientURL + "/cancel",
	})
	if err != nil {
		return "", fmt.Errorf("%w: create checkout: %v", domain.ErrRemoteLookup, err)
	}

	s.log.Info().Str("user_id", userID).Msg("subscription checkout started")
	return checkoutURL, nil
}

// Donate opens a one-off payment checkout. email may be empty for anonymous donors.
func (s *billingService) Donate(ctx context.Context, email string, amountCents int64) (string, error) {
	if amountCents <= 0 {
		return "", fmt.Errorf("%w: donation amount must be positive", domain.ErrValidation)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.LookupTimeout)
	defer cancel()

	checkoutURL, err := s.provider.CreateCheckoutSession(ctx, ports.CheckoutRequest{
		Mode:          "payment",
		AmountCents:   amountCents,
		ProductName:   "Support Developer Donation",
		CustomerEmail: email,
		SuccessURL:    s.cfg.ClientURL + "/thank-you",
		CancelURL:     s.cfg.ClientURL + "/cancel",
	})
	if err != nil {
		return "", fmt.Errorf("%w: create donation checkout: %v", domain.ErrRemoteLookup, err)
	}
	return checkoutURL, nil
}

// CancelSubscription schedules cancellation of the user's active provider
// subscription at the end of the paid period. Local state changes only
// when the provider later reports the deletion.
func (s *billingService) CancelSubscription(ctx context.Context, userID string) (time.Time, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return time.Time{}, err
	}
	if u.StripeCustomerID == "" {
		return time.Time{}, domain.ErrNoProviderCustomer
	}

	lctx, cancel := context.WithTimeout(ctx, s.cfg.LookupTimeout)
	subs, err := s.provider.ActiveSubscriptions(lctx, u.StripeCustomerID)
	cancel()
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: list subscriptions: %v", domain.ErrRemoteLookup, err)
	}
	if len(subs) == 0 {
		return time.Time{}, domain.ErrNoActiveSubscription
	}

	lctx, cancel = context.WithTimeout(ctx, s.cfg.LookupTimeout)
	defer cancel()
	periodEnd, err := s.provider.CancelAtPeriodEnd(lctx, subs[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: cancel at period end: %v", domain.ErrRemoteLookup, err)
	}

	s.log.Info().Str("user_id", userID).Str("subscription_id", subs[0]).Time("period_end", periodEnd).
		Msg("subscription set to cancel at period end")
	return periodEnd, nil
}
