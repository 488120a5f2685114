package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/meterline/subscription-service/internal/core/domain"
	"github.com/meterline/subscription-service/internal/core/ports"
)

// DefaultLookupTimeout bounds every payment provider call made while
// reconciling a single event.
const DefaultLookupTimeout = 5 * time.Second

type reconcileService struct {
	users         ports.UserRepository
	events        ports.EventRepository
	ledger        ports.EventLedger
	provider      ports.PaymentProvider
	lookupTimeout time.Duration
	now           func() time.Time
	log           zerolog.Logger
}

// NewReconcileService returns the reconciliation dispatcher. ledger may be
// nil, in which case idempotency rests on the state-equality check alone.
func NewReconcileService(
	users ports.UserRepository,
	events ports.EventRepository,
	ledger ports.EventLedger,
	provider ports.PaymentProvider,
	lookupTimeout time.Duration,
	log zerolog.Logger,
) ports.ReconcileService {
	if lookupTimeout <= 0 {
		lookupTimeout = DefaultLookupTimeout
	}
	return &reconcileService{
		users:         users,
		events:        events,
		ledger:        ledger,
		provider:      provider,
		lookupTimeout: lookupTimeout,
		now:           func() time.Time { return time.Now().UTC() },
		log:           log,
	}
}

// Reconcile routes a verified event to its state transition. It never fails:
// business errors are logged, audited and reported in the result only.
func (s *reconcileService) Reconcile(ctx context.Context, ev domain.Event) ports.ReconcileResult {
	log := s.log.With().Str("event_id", ev.ID).Str("event_type", ev.Type).Logger()

	if s.seen(ctx, ev.ID, log) {
		log.Debug().Msg("event already reconciled, skipping")
		return s.finish(ctx, ev, ports.ReconcileResult{Kind: ev.Kind, Outcome: domain.OutcomeSkipped, Duplicate: true}, log)
	}

	var res ports.ReconcileResult
	if ev.DecodeErr != nil {
		res = failed(fmt.Errorf("%w: %v", domain.ErrValidation, ev.DecodeErr))
	} else {
		res = s.dispatch(ctx, ev, log)
	}
	res.Kind = ev.Kind

	if res.Outcome != domain.OutcomeFailed && s.ledger != nil && ev.ID != "" {
		if err := s.ledger.MarkProcessed(ctx, ev.ID); err != nil {
			log.Warn().Err(err).Msg("failed to mark event processed")
		}
	}
	return s.finish(ctx, ev, res, log)
}

func (s *reconcileService) dispatch(ctx context.Context, ev domain.Event, log zerolog.Logger) ports.ReconcileResult {
	switch ev.Kind {
	case domain.KindCheckoutCompleted:
		p, ok := ev.Payload.(*domain.CheckoutCompletedPayload)
		if !ok {
			return payloadMismatch(ev)
		}
		return s.onCheckoutCompleted(ctx, p, log)
	case domain.KindSubscriptionCreated:
		p, ok := ev.Payload.(*domain.SubscriptionPayload)
		if !ok {
			return payloadMismatch(ev)
		}
		return s.onSubscriptionCreated(ctx, p, log)
	case domain.KindInvoicePaymentFailed:
		p, ok := ev.Payload.(*domain.InvoicePayload)
		if !ok {
			return payloadMismatch(ev)
		}
		return s.deactivate(ctx, p.CustomerID, "payment failed", log)
	case domain.KindSubscriptionDeleted:
		p, ok := ev.Payload.(*domain.SubscriptionPayload)
		if !ok {
			return payloadMismatch(ev)
		}
		return s.deactivate(ctx, p.CustomerID, "subscription cancelled", log)
	case domain.KindChargeRefunded:
		p, ok := ev.Payload.(*domain.ChargePayload)
		if !ok {
			return payloadMismatch(ev)
		}
		return s.onChargeRefunded(ctx, p, log)
	case domain.KindUnknown:
		return ports.ReconcileResult{Outcome: domain.OutcomeIgnored}
	}
	return ports.ReconcileResult{Outcome: domain.OutcomeIgnored}
}

// seen consults the optional ledger. Ledger errors never block processing.
func (s *reconcileService) seen(ctx context.Context, eventID string, log zerolog.Logger) bool {
	if s.ledger == nil || eventID == "" {
		return false
	}
	dup, err := s.ledger.IsProcessed(ctx, eventID)
	if err != nil {
		log.Warn().Err(err).Msg("event ledger check failed, processing anyway")
		return false
	}
	return dup
}

func (s *reconcileService) finish(ctx context.Context, ev domain.Event, res ports.ReconcileResult, log zerolog.Logger) ports.ReconcileResult {
	reason := ""
	if res.Err != nil {
		reason = res.Err.Error()
	}

	switch res.Outcome {
	case domain.OutcomeFailed:
		log.Error().Err(res.Err).Str("event_kind", ev.Kind.String()).Str("reason", FailureReason(res.Err)).
			Msg("reconciliation failed, acknowledging anyway")
	case domain.OutcomeIgnored:
		log.Debug().Str("event_kind", ev.Kind.String()).Str("reason", reason).Msg("event ignored")
	default:
		log.Info().Str("event_kind", ev.Kind.String()).Str("outcome", string(res.Outcome)).
			Str("user_id", res.UserID).Msg("event reconciled")
	}

	rec := &domain.ReconciliationRecord{
		ID:          uuid.NewString(),
		EventID:     ev.ID,
		EventType:   ev.Type,
		Outcome:     res.Outcome,
		Reason:      reason,
		UserID:      res.UserID,
		ProcessedAt: s.now(),
	}
	if err := s.events.InsertReconciliation(ctx, rec); err != nil {
		log.Warn().Err(err).Msg("failed to insert reconciliation record")
	}
	return res
}

// lookupCtx bounds a single provider call.
func (s *reconcileService) lookupCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.lookupTimeout)
}

func failed(err error) ports.ReconcileResult {
	return ports.ReconcileResult{Outcome: domain.OutcomeFailed, Err: err}
}

func payloadMismatch(ev domain.Event) ports.ReconcileResult {
	return failed(fmt.Errorf("%w: unexpected payload %T for %s", domain.ErrValidation, ev.Payload, ev.Kind))
}

// FailureReason is a short, stable label for alerting on absorbed failures.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, domain.ErrRemoteLookup):
		return "remote_lookup"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	default:
		return "store"
	}
}
