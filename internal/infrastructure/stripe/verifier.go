package stripe

import (
	"encoding/json"
	"fmt"
	"time"

	gostripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/meterline/subscription-service/internal/core/domain"
)

// Verifier authenticates webhook deliveries with the endpoint signing secret
// and normalises them into domain events.
type Verifier struct {
	secret string
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: secret}
}

// Verify checks the Stripe-Signature header against the raw body. Signature,
// timestamp tolerance and envelope errors all map to domain.ErrAuthentication.
// An event whose object cannot be decoded is still returned, with DecodeErr set.
func (v *Verifier) Verify(payload []byte, signature string) (domain.Event, error) {
	if signature == "" {
		return domain.Event{}, fmt.Errorf("%w: missing signature header", domain.ErrAuthentication)
	}
	if v.secret == "" {
		return domain.Event{}, fmt.Errorf("%w: webhook secret not configured", domain.ErrAuthentication)
	}

	se, err := webhook.ConstructEventWithOptions(payload, signature, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return domain.Event{}, fmt.Errorf("%w: %v", domain.ErrAuthentication, err)
	}
	return normalize(se), nil
}

func normalize(se gostripe.Event) domain.Event {
	ev := domain.Event{
		ID:      se.ID,
		Type:    string(se.Type),
		Kind:    domain.KindOf(string(se.Type)),
		Created: time.Unix(se.Created, 0).UTC(),
	}
	if se.Data == nil {
		if ev.Kind != domain.KindUnknown {
			ev.DecodeErr = fmt.Errorf("event %s has no data object", se.ID)
		}
		return ev
	}

	raw := se.Data.Raw
	switch ev.Kind {
	case domain.KindCheckoutCompleted:
		var s gostripe.CheckoutSession
		if ev.DecodeErr = decode(raw, &s); ev.DecodeErr == nil {
			ev.Payload = checkoutPayload(&s)
		}
	case domain.KindSubscriptionCreated, domain.KindSubscriptionDeleted:
		var s gostripe.Subscription
		if ev.DecodeErr = decode(raw, &s); ev.DecodeErr == nil {
			ev.Payload = subscriptionPayload(&s)
		}
	case domain.KindInvoicePaymentFailed:
		var in gostripe.Invoice
		if ev.DecodeErr = decode(raw, &in); ev.DecodeErr == nil {
			ev.Payload = &domain.InvoicePayload{InvoiceID: in.ID, CustomerID: customerID(in.Customer)}
		}
	case domain.KindChargeRefunded:
		var ch gostripe.Charge
		if ev.DecodeErr = decode(raw, &ch); ev.DecodeErr == nil {
			ev.Payload = &domain.ChargePayload{ChargeID: ch.ID, CustomerID: customerID(ch.Customer)}
		}
	}
	return ev
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("empty event object")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode event object: %w", err)
	}
	return nil
}

func checkoutPayload(s *gostripe.CheckoutSession) *domain.CheckoutCompletedPayload {
	p := &domain.CheckoutCompletedPayload{
		Mode:          string(s.Mode),
		CustomerEmail: s.CustomerEmail,
		CustomerID:    customerID(s.Customer),
	}
	if p.CustomerEmail == "" && s.CustomerDetails != nil {
		p.CustomerEmail = s.CustomerDetails.Email
	}
	if s.Subscription != nil {
		p.SubscriptionID = s.Subscription.ID
	}
	return p
}

func subscriptionPayload(s *gostripe.Subscription) *domain.SubscriptionPayload {
	return &domain.SubscriptionPayload{
		SubscriptionID:   s.ID,
		CustomerID:       customerID(s.Customer),
		CurrentPeriodEnd: periodEnd(s),
	}
}

// periodEnd prefers current_period_end and falls back to the billing cycle
// anchor. Nil when the provider reports neither.
func periodEnd(s *gostripe.Subscription) *time.Time {
	sec := s.CurrentPeriodEnd
	if sec == 0 {
		sec = s.BillingCycleAnchor
	}
	if sec == 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}

func customerID(c *gostripe.Customer) string {
	if c == nil {
		return ""
	}
	return c.ID
}
