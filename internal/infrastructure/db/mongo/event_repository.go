package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/meterline/subscription-service/internal/core/domain"
)

const (
	collectionWebhookEvents = "webhook_events"
	collectionUsageResets   = "usage_resets"
)

// EventRepository implements ports.EventRepository using MongoDB.
type EventRepository struct {
	db *mongo.Database
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(db *mongo.Database) *EventRepository {
	return &EventRepository{db: db}
}

// InsertReconciliation persists the outcome of one provider event to the
// webhook_events audit collection.
func (r *EventRepository) InsertReconciliation(ctx context.Context, rec *domain.ReconciliationRecord) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := bson.M{
		"_id":          rec.ID,
		"event_id":     rec.EventID,
		"event_type":   rec.EventType,
		"outcome":      string(rec.Outcome),
		"processed_at": rec.ProcessedAt.UTC(),
	}
	if rec.Reason != "" {
		doc["reason"] = rec.Reason
	}
	if rec.UserID != "" {
		doc["user_id"] = rec.UserID
	}

	if _, err := r.db.Collection(collectionWebhookEvents).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert reconciliation %s: %w", rec.EventID, err)
	}
	return nil
}

// InsertUsageReset persists a usage cycle rollover.
func (r *EventRepository) InsertUsageReset(ctx context.Context, reset *domain.UsageReset) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := bson.M{
		"user_id":        reset.UserID,
		"usage_at_reset": reset.UsageAtReset,
		"reset_at":       reset.ResetAt.UTC(),
		"next_reset":     reset.NextReset.UTC(),
	}

	if _, err := r.db.Collection(collectionUsageResets).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert usage reset: %w", err)
	}
	return nil
}

// EnsureIndexes creates the lookup indexes of both audit collections.
func (r *EventRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	_, err := r.db.Collection(collectionWebhookEvents).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "event_id", Value: 1}}},
		{Keys: bson.D{{Key: "processed_at", Value: -1}}},
	})
	if err != nil {
		return err
	}

	_, err = r.db.Collection(collectionUsageResets).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "reset_at", Value: -1}},
		Options: options.Index().SetName("user_reset_at"),
	})
	return err
}
