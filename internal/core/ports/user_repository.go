package ports

import (
	"context"
	"time"

	"github.com/meterline/subscription-service/internal/core/domain"
)

// UserRepository is the account store. Every mutation is a single-document
// operation; concurrency safety comes from the filters, not from locks.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByStripeCustomerID(ctx context.Context, customerID string) (*domain.User, error)

	// ApplySubscription finds the user matched by sel and writes upd in one
	// find-and-update, never inserting. Returns the updated user or
	// domain.ErrUserNotFound.
	ApplySubscription(ctx context.Context, sel domain.UserSelector, upd domain.SubscriptionUpdate) (*domain.User, error)

	// SwapUsage writes next only if the stored usage still equals expected.
	// It reports false when another writer got there first.
	SwapUsage(ctx context.Context, userID string, expected, next domain.UsageState) (bool, error)

	// FindByResetToken returns the user holding tokenHash whose expiry is after now.
	FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (*domain.User, error)
	SetResetToken(ctx context.Context, userID, tokenHash string, expiry time.Time) error
	// ResetPassword stores the new hash and clears the reset token fields,
	// only while the user still holds tokenHash. Otherwise it returns
	// domain.ErrInvalidResetToken.
	ResetPassword(ctx context.Context, userID, tokenHash, passwordHash string) error
}
