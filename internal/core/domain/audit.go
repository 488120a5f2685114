package domain

import "time"

// Outcome is how the reconciler disposed of one provider event.
type Outcome string

const (
	OutcomeApplied Outcome = "applied" // user state changed
	OutcomeSkipped Outcome = "skipped" // duplicate or already in target state
	OutcomeIgnored Outcome = "ignored" // unknown kind or not applicable
	OutcomeFailed  Outcome = "failed"  // logged and absorbed
)

// ReconciliationRecord is the audit row written for every verified event.
type ReconciliationRecord struct {
	ID          string
	EventID     string
	EventType   string
	Outcome     Outcome
	Reason      string
	UserID      string
	ProcessedAt time.Time
}

// UsageReset records a counter rollover at the start of a new usage cycle.
type UsageReset struct {
	UserID       string
	UsageAtReset int64
	ResetAt      time.Time
	NextReset    time.Time
}
