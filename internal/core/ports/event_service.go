package ports

import (
	"context"
	"time"

	"github.com/meterline/subscription-service/internal/core/domain"
)

// EventVerifier authenticates a raw provider webhook and normalises it.
// It must receive the body exactly as sent. Any failure to authenticate is
// reported as domain.ErrAuthentication.
type EventVerifier interface {
	Verify(payload []byte, signature string) (domain.Event, error)
}

// ReconcileResult reports what the reconciler did with one event.
type ReconcileResult struct {
	Kind    domain.EventKind
	Outcome domain.Outcome
	UserID  string

	// Duplicate is set when the event id was found in the ledger.
	Duplicate bool

	// Err is the absorbed failure for OutcomeFailed, or the reason for an
	// ignored event. It is never surfaced to the provider.
	Err error
}

// ReconcileService applies verified provider events to user state.
type ReconcileService interface {
	Reconcile(ctx context.Context, event domain.Event) ReconcileResult
}

// UsageService is the metering API consumed by the API layer.
type UsageService interface {
	GetUsage(ctx context.Context, userID string) (int64, error)
	ApplyUsage(ctx context.Context, userID string, incrementBy int64) (*domain.User, error)
}

// BillingService covers the user-initiated subscription operations.
type BillingService interface {
	Status(ctx context.Context, userID string) (domain.SubscriptionStatus, error)
	StartSubscription(ctx context.Context, userID string) (string, error)
	Donate(ctx context.Context, email string, amountCents int64) (string, error)
	CancelSubscription(ctx context.Context, userID string) (time.Time, error)
}
