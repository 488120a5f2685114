package ports

import (
	"context"
	"time"
)

// CheckoutRequest describes a hosted checkout session to open at the provider.
type CheckoutRequest struct {
	// Mode is "subscription" or "payment".
	Mode          string
	PriceID       string
	AmountCents   int64  // payment mode only
	ProductName   string // payment mode only
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
}

// PaymentProvider is the stateless provider client injected into services.
// Implementations must honour ctx deadlines.
type PaymentProvider interface {
	// CustomerEmail returns the email on the provider customer record, or ""
	// when the record carries none.
	CustomerEmail(ctx context.Context, customerID string) (string, error)
	// SubscriptionPeriodEnd returns the end of the current billing period,
	// or nil when the provider reports none.
	SubscriptionPeriodEnd(ctx context.Context, subscriptionID string) (*time.Time, error)
	// ActiveSubscriptions lists the ids of the customer's active subscriptions.
	ActiveSubscriptions(ctx context.Context, customerID string) ([]string, error)
	// CancelSubscription cancels immediately.
	CancelSubscription(ctx context.Context, subscriptionID string) error
	// CancelAtPeriodEnd schedules cancellation and returns the period end.
	CancelAtPeriodEnd(ctx context.Context, subscriptionID string) (time.Time, error)
	// CreateCheckoutSession returns the hosted checkout URL.
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error)
}
