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

const maxUsageAttempts = 5

type usageService struct {
	users        ports.UserRepository
	events       ports.EventRepository
	monthlyLimit int64
	now          func() time.Time
	log          zerolog.Logger
}

// NewUsageService returns the usage limiter. monthlyLimit bounds the counter
// within one usage cycle.
func NewUsageService(users ports.UserRepository, events ports.EventRepository, monthlyLimit int64, log zerolog.Logger) ports.UsageService {
	return &usageService{
		users:        users,
		events:       events,
		monthlyLimit: monthlyLimit,
		// Mongo stores milliseconds; truncating keeps the CAS filter exact.
		now:          func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		log:          log,
	}
}

// GetUsage returns the stored counter for the user.
func (s *usageService) GetUsage(ctx context.Context, userID string) (int64, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	return u.UsageCount, nil
}

// ApplyUsage resets the cycle when due, enforces the monthly limit and adds
// incrementBy. The read-decide-write runs as a compare-and-swap against the
// stored usage so concurrent increments cannot both pass the quota check.
func (s *usageService) ApplyUsage(ctx context.Context, userID string, incrementBy int64) (*domain.User, error) {
	for attempt := 1; attempt <= maxUsageAttempts; attempt++ {
		u, err := s.users.FindByID(ctx, userID)
		if err != nil {
			return nil, err
		}

		cur := u.Usage()
		plan, err := domain.PlanUsage(cur, s.now(), incrementBy, s.monthlyLimit)
		if err != nil {
			if errors.Is(err, domain.ErrQuotaExceeded) {
				s.log.Info().Str("user_id", userID).Int64("usage_count", cur.Count).
					Int64("increment", incrementBy).Msg("usage quota exceeded")
			}
			return nil, err
		}

		swapped, err := s.users.SwapUsage(ctx, userID, cur, plan.Next)
		if err != nil {
			return nil, fmt.Errorf("apply usage: %w", err)
		}
		if !swapped {
			s.log.Debug().Str("user_id", userID).Int("attempt", attempt).Msg("usage changed concurrently, retrying")
			continue
		}

		if plan.Reset {
			s.recordReset(ctx, userID, plan)
		}

		u.UsageCount = plan.Next.Count
		u.ResetDate = plan.Next.ResetDate
		return u, nil
	}

	s.log.Warn().Str("user_id", userID).Msg("usage update gave up after repeated conflicts")
	return nil, domain.ErrConcurrentUpdate
}

func (s *usageService) recordReset(ctx context.Context, userID string, plan domain.UsagePlan) {
	s.log.Info().Str("user_id", userID).Int64("usage_at_reset", plan.CountAtReset).
		Time("next_reset", *plan.Next.ResetDate).Msg("monthly usage reset")

	rec := &domain.UsageReset{
		UserID:       userID,
		UsageAtReset: plan.CountAtReset,
		ResetAt:      s.now(),
		NextReset:    *plan.Next.ResetDate,
	}
	if err := s.events.InsertUsageReset(ctx, rec); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("failed to insert usage reset log")
	}
}
