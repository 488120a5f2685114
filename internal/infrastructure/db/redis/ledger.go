package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultLedgerTTL outlives the provider's redelivery window.
const DefaultLedgerTTL = 72 * time.Hour

// EventLedger remembers reconciled provider event ids.
// Key format: webhook:event:<event_id>
type EventLedger struct {
	client *redis.Client
	ttl    time.Duration
}

// NewEventLedger creates an EventLedger wrapping the given Redis client.
func NewEventLedger(client *redis.Client, ttl time.Duration) *EventLedger {
	if ttl <= 0 {
		ttl = DefaultLedgerTTL
	}
	return &EventLedger{client: client, ttl: ttl}
}

// IsProcessed reports whether the event id has already been marked.
func (l *EventLedger) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	n, err := l.client.Exists(ctx, key(eventID)).Result()
	if err != nil {
		return false, fmt.Errorf("ledger check: %w", err)
	}
	return n > 0, nil
}

// MarkProcessed records the event id (expires after the ledger TTL).
func (l *EventLedger) MarkProcessed(ctx context.Context, eventID string) error {
	if err := l.client.Set(ctx, key(eventID), "1", l.ttl).Err(); err != nil {
		return fmt.Errorf("ledger mark: %w", err)
	}
	return nil
}

func key(eventID string) string {
	return "webhook:event:" + eventID
}
