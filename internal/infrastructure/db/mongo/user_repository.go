package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/meterline/subscription-service/internal/core/domain"
)

const collectionUsers = "users"

// UserRepository implements ports.UserRepository on the users collection.
type UserRepository struct {
	col *mongo.Collection
	now func() time.Time
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{
		col: db.Collection(collectionUsers),
		now: func() time.Time { return time.Now().UTC() },
	}
}

type mongoUser struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty"`
	Email              string             `bson:"email"`
	PasswordHash       string             `bson:"password_hash"`
	SubscriptionStatus string             `bson:"subscription_status"`
	UsageCount         int64              `bson:"usage_count"`
	ResetDate          *time.Time         `bson:"reset_date"`
	StripeCustomerID   string             `bson:"stripe_customer_id,omitempty"`
	ResetToken         string             `bson:"reset_token,omitempty"`
	ResetTokenExpiry   *time.Time         `bson:"reset_token_expiry,omitempty"`
	CreatedAt          time.Time          `bson:"created_at"`
	UpdatedAt          time.Time          `bson:"updated_at"`
}

func (m *mongoUser) toDomain() *domain.User {
	return &domain.User{
		ID:                 m.ID.Hex(),
		Email:              m.Email,
		PasswordHash:       m.PasswordHash,
		SubscriptionStatus: domain.SubscriptionStatus(m.SubscriptionStatus),
		UsageCount:         m.UsageCount,
		ResetDate:          utcPtr(m.ResetDate),
		StripeCustomerID:   m.StripeCustomerID,
		ResetTokenHash:     m.ResetToken,
		ResetTokenExpiry:   utcPtr(m.ResetTokenExpiry),
		CreatedAt:          m.CreatedAt.UTC(),
		UpdatedAt:          m.UpdatedAt.UTC(),
	}
}

// Create inserts a new user document. A duplicate email maps to domain.ErrUserExists.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	status := user.SubscriptionStatus
	if status == "" {
		status = domain.StatusInactive
	}
	doc := mongoUser{
		Email:              normalizeEmail(user.Email),
		PasswordHash:       user.PasswordHash,
		SubscriptionStatus: string(status),
		UsageCount:         user.UsageCount,
		ResetDate:          user.ResetDate,
		StripeCustomerID:   user.StripeCustomerID,
		CreatedAt:          user.CreatedAt,
		UpdatedAt:          user.UpdatedAt,
	}

	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		doc.ID = id
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": normalizeEmail(email)})
}

func (r *UserRepository) FindByStripeCustomerID(ctx context.Context, customerID string) (*domain.User, error) {
	if customerID == "" {
		return nil, domain.ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"stripe_customer_id": customerID})
}

func (r *UserRepository) FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (*domain.User, error) {
	return r.findOne(ctx, bson.M{
		"reset_token":        tokenHash,
		"reset_token_expiry": bson.M{"$gt": now.UTC()},
	})
}

// ApplySubscription performs a single find-and-update on the selected user.
// It never upserts.
func (r *UserRepository) ApplySubscription(ctx context.Context, sel domain.UserSelector, upd domain.SubscriptionUpdate) (*domain.User, error) {
	filter, err := selectorFilter(sel)
	if err != nil {
		return nil, err
	}

	set := bson.M{
		"subscription_status": string(upd.Status),
		"reset_date":          upd.ResetDate,
		"updated_at":          r.now(),
	}
	if upd.StripeCustomerID != "" {
		set["stripe_customer_id"] = upd.StripeCustomerID
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetUpsert(false)

	var doc mongoUser
	if err := r.col.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("apply subscription (%s): %w", sel, err)
	}
	return doc.toDomain(), nil
}

// SwapUsage is a conditional update: the filter repeats the observed usage
// fields so the write only lands if nobody changed them in between.
func (r *UserRepository) SwapUsage(ctx context.Context, userID string, expected, next domain.UsageState) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return false, domain.ErrUserNotFound
	}

	filter := bson.M{
		"_id":         oid,
		"usage_count": expected.Count,
		"reset_date":  expected.ResetDate,
	}
	update := bson.M{"$set": bson.M{
		"usage_count": next.Count,
		"reset_date":  next.ResetDate,
		"updated_at":  r.now(),
	}}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("swap usage: %w", err)
	}
	return res.MatchedCount == 1, nil
}

func (r *UserRepository) SetResetToken(ctx context.Context, userID, tokenHash string, expiry time.Time) error {
	return r.updateByID(ctx, userID, bson.M{"$set": bson.M{
		"reset_token":        tokenHash,
		"reset_token_expiry": expiry.UTC(),
		"updated_at":         r.now(),
	}})
}

// ResetPassword consumes the reset token. The filter repeats the token hash so
// only one of two concurrent resets can win.
func (r *UserRepository) ResetPassword(ctx context.Context, userID, tokenHash, passwordHash string) error {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return domain.ErrInvalidResetToken
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": oid, "reset_token": tokenHash}, bson.M{
		"$set":   bson.M{"password_hash": passwordHash, "updated_at": r.now()},
		"$unset": bson.M{"reset_token": "", "reset_token_expiry": ""},
	})
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrInvalidResetToken
	}
	return nil
}

// EnsureIndexes creates necessary indexes on the users collection.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "stripe_customer_id", Value: 1}}, Options: options.Index().SetSparse(true)},
		{Keys: bson.D{{Key: "reset_token", Value: 1}}, Options: options.Index().SetSparse(true)},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoUser
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) updateByID(ctx context.Context, userID string, update bson.M) error {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return domain.ErrUserNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func selectorFilter(sel domain.UserSelector) (bson.M, error) {
	switch {
	case sel.Email != "":
		return bson.M{"email": normalizeEmail(sel.Email)}, nil
	case sel.StripeCustomerID != "":
		return bson.M{"stripe_customer_id": sel.StripeCustomerID}, nil
	default:
		return nil, fmt.Errorf("%w: empty user selector", domain.ErrValidation)
	}
}

// normalizeEmail matches the form emails are stored in.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
