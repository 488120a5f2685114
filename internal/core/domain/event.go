package domain

import "time"

// EventKind is the closed set of provider events the reconciler understands.
type EventKind int

const (
	KindUnknown EventKind = iota
	KindCheckoutCompleted
	KindSubscriptionCreated
	KindInvoicePaymentFailed
	KindSubscriptionDeleted
	KindChargeRefunded
)

var kindsByType = map[string]EventKind{
	"checkout.session.completed":    KindCheckoutCompleted,
	"customer.subscription.created": KindSubscriptionCreated,
	"invoice.payment_failed":        KindInvoicePaymentFailed,
	"customer.subscription.deleted": KindSubscriptionDeleted,
	"charge.refunded":               KindChargeRefunded,
}

// KindOf maps a provider event type string to its kind. Anything not listed
// is KindUnknown.
func KindOf(eventType string) EventKind {
	return kindsByType[eventType]
}

func (k EventKind) String() string {
	switch k {
	case KindCheckoutCompleted:
		return "checkout_completed"
	case KindSubscriptionCreated:
		return "subscription_created"
	case KindInvoicePaymentFailed:
		return "invoice_payment_failed"
	case KindSubscriptionDeleted:
		return "subscription_deleted"
	case KindChargeRefunded:
		return "charge_refunded"
	default:
		return "unknown"
	}
}

// Event is a verified provider event. It is never persisted as-is.
type Event struct {
	ID      string
	Type    string // provider discriminator, e.g. "charge.refunded"
	Kind    EventKind
	Created time.Time
	// Payload holds one of the *Payload types below matching Kind, or nil
	// for KindUnknown.
	Payload any
	// DecodeErr is set when the signature was valid but the event object
	// could not be decoded into the payload for its kind.
	DecodeErr error
}

// CheckoutCompletedPayload is the part of a completed checkout session the
// reconciler reads.
type CheckoutCompletedPayload struct {
	Mode           string
	CustomerEmail  string
	CustomerID     string
	SubscriptionID string
}

// SubscriptionPayload is used for subscription created/deleted events.
type SubscriptionPayload struct {
	SubscriptionID   string
	CustomerID       string
	CurrentPeriodEnd *time.Time
}

// InvoicePayload is used for invoice.payment_failed.
type InvoicePayload struct {
	InvoiceID  string
	CustomerID string
}

// ChargePayload is used for charge.refunded.
type ChargePayload struct {
	ChargeID   string
	CustomerID string
}
