package stripe

import (
	"context"
	"errors"
	"fmt"
	"time"

	gostripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/meterline/subscription-service/internal/core/ports"
)

const (
	donationCurrency = "usd"
	statusActive     = "active"
)

// Client implements ports.PaymentProvider on the Stripe API. Every request
// carries the caller's context so deadlines apply.
type Client struct {
	api *client.API
}

// NewClient builds a client for secretKey. backends may be nil to use the
// default Stripe endpoints.
func NewClient(secretKey string, backends *gostripe.Backends) *Client {
	api := &client.API{}
	api.Init(secretKey, backends)
	return &Client{api: api}
}

func (c *Client) CustomerEmail(ctx context.Context, customerID string) (string, error) {
	params := &gostripe.CustomerParams{}
	params.Context = ctx

	cus, err := c.api.Customers.Get(customerID, params)
	if err != nil {
		return "", fmt.Errorf("get customer %s: %w", customerID, err)
	}
	if cus.Deleted {
		return "", nil
	}
	return cus.Email, nil
}

func (c *Client) SubscriptionPeriodEnd(ctx context.Context, subscriptionID string) (*time.Time, error) {
	params := &gostripe.SubscriptionParams{}
	params.Context = ctx

	sub, err := c.api.Subscriptions.Get(subscriptionID, params)
	if err != nil {
		return nil, fmt.Errorf("get subscription %s: %w", subscriptionID, err)
	}
	return periodEnd(sub), nil
}

func (c *Client) ActiveSubscriptions(ctx context.Context, customerID string) ([]string, error) {
	params := &gostripe.SubscriptionListParams{
		Customer: gostripe.String(customerID),
		Status:   gostripe.String(statusActive),
	}
	params.Context = ctx

	var ids []string
	it := c.api.Subscriptions.List(params)
	for it.Next() {
		ids = append(ids, it.Subscription().ID)
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("list subscriptions for %s: %w", customerID, err)
	}
	return ids, nil
}

func (c *Client) CancelSubscription(ctx context.Context, subscriptionID string) error {
	params := &gostripe.SubscriptionCancelParams{}
	params.Context = ctx

	if _, err := c.api.Subscriptions.Cancel(subscriptionID, params); err != nil {
		return fmt.Errorf("cancel subscription %s: %w", subscriptionID, err)
	}
	return nil
}

func (c *Client) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) (time.Time, error) {
	params := &gostripe.SubscriptionParams{CancelAtPeriodEnd: gostripe.Bool(true)}
	params.Context = ctx

	sub, err := c.api.Subscriptions.Update(subscriptionID, params)
	if err != nil {
		return time.Time{}, fmt.Errorf("update subscription %s: %w", subscriptionID, err)
	}
	end := periodEnd(sub)
	if end == nil {
		return time.Time{}, errors.New("subscription has no current period end")
	}
	return *end, nil
}

func (c *Client) CreateCheckoutSession(ctx context.Context, req ports.CheckoutRequest) (string, error) {
	params := &gostripe.CheckoutSessionParams{
		Mode:               gostripe.String(req.Mode),
		PaymentMethodTypes: gostripe.StringSlice([]string{"card"}),
		SuccessURL:         gostripe.String(req.SuccessURL),
		CancelURL:          gostripe.String(req.CancelURL),
	}
	params.Context = ctx
	if req.CustomerEmail != "" {
		params.CustomerEmail = gostripe.String(req.CustomerEmail)
	}

	switch req.Mode {
	case string(gostripe.CheckoutSessionModeSubscription):
		params.LineItems = []*gostripe.CheckoutSessionLineItemParams{{
			Price:    gostripe.String(req.PriceID),
			Quantity: gostripe.Int64(1),
		}}
	case string(gostripe.CheckoutSessionModePayment):
		params.LineItems = []*gostripe.CheckoutSessionLineItemParams{{
			PriceData: &gostripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   gostripe.String(donationCurrency),
				UnitAmount: gostripe.Int64(req.AmountCents),
				ProductData: &gostripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: gostripe.String(req.ProductName),
				},
			},
			Quantity: gostripe.Int64(1),
		}}
	default:
		return "", fmt.Errorf("unsupported checkout mode %q", req.Mode)
	}

	sess, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return sess.URL, nil
}
