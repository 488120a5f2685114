package ports

import (
	"context"

	"github.com/meterline/subscription-service/internal/core/domain"
)

// EventRepository keeps the audit trail of reconciliation and metering.
// Writes are best effort; callers log and continue on failure.
type EventRepository interface {
	// InsertReconciliation persists the outcome of one provider event.
	InsertReconciliation(ctx context.Context, rec *domain.ReconciliationRecord) error

	// InsertUsageReset persists a usage cycle rollover.
	InsertUsageReset(ctx context.Context, reset *domain.UsageReset) error
}

// EventLedger remembers provider event ids that were already reconciled.
// It is an optional layer on top of the state-equality check.
type EventLedger interface {
	IsProcessed(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID string) error
}

// Mailer delivers transactional email.
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, resetLink string) error
}
