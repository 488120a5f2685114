package domain

import "time"

// UsageState is the metering part of a user: the counter for the current
// cycle and the instant the next cycle starts. A nil ResetDate means no
// billing cycle is running.
type UsageState struct {
	Count     int64
	ResetDate *time.Time
}

// UsagePlan is the outcome of PlanUsage.
type UsagePlan struct {
	Next UsageState
	// Reset is true when the cycle rolled over before the increment.
	Reset bool
	// CountAtReset is the counter value discarded by the rollover.
	CountAtReset int64
}

// PlanUsage decides the next usage state for an increment without touching
// storage. The cycle rolls over when no reset date is set or now is past it;
// the increment is then checked against limit. On a quota failure the
// returned plan is empty and the stored counter must stay as it is.
func PlanUsage(cur UsageState, now time.Time, incrementBy, limit int64) (UsagePlan, error) {
	if incrementBy <= 0 {
		return UsagePlan{}, ErrInvalidIncrement
	}

	plan := UsagePlan{Next: cur}
	if cur.ResetDate == nil || now.After(*cur.ResetDate) {
		next := AddCalendarMonth(now)
		plan.Reset = true
		plan.CountAtReset = cur.Count
		plan.Next = UsageState{Count: 0, ResetDate: &next}
	}

	if plan.Next.Count+incrementBy > limit {
		return UsagePlan{}, &QuotaExceededError{
			Used:      plan.Next.Count,
			Requested: incrementBy,
			Limit:     limit,
		}
	}

	plan.Next.Count += incrementBy
	return plan, nil
}

// AddCalendarMonth moves t forward by one calendar month in UTC, keeping the
// time of day. When the day of month does not exist in the target month the
// result is clamped to that month's last day (Jan 31 -> Feb 28/29).
func AddCalendarMonth(t time.Time) time.Time {
	t = t.UTC()
	year, month, day := t.Date()

	month++
	if month > time.December {
		month = time.January
		year++
	}
	if last := daysIn(year, month); day > last {
		day = last
	}

	return time.Date(year, month, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

func daysIn(year int, month time.Month) int {
	// Day 0 of the following month normalises to the last day of month.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
