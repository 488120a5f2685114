package domain

import "time"

// SubscriptionStatus is the billing state of a user account.
type SubscriptionStatus string

const (
	StatusActive    SubscriptionStatus = "active"
	StatusInactive  SubscriptionStatus = "inactive"
	StatusRefunded  SubscriptionStatus = "refunded"
	StatusCancelled SubscriptionStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s SubscriptionStatus) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusRefunded, StatusCancelled:
		return true
	}
	return false
}

// User is the aggregate root owned by the account store.
type User struct {
	ID                 string             `json:"id"`
	Email              string             `json:"email"`
	PasswordHash       string             `json:"-"`
	SubscriptionStatus SubscriptionStatus `json:"subscription_status"`
	UsageCount         int64              `json:"usage_count"`
	ResetDate          *time.Time         `json:"reset_date,omitempty"`
	StripeCustomerID   string             `json:"stripe_customer_id,omitempty"`
	ResetTokenHash     string             `json:"-"`
	ResetTokenExpiry   *time.Time         `json:"-"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// NewUser returns a freshly registered user: inactive, no usage, no billing cycle.
func NewUser(email, passwordHash string, now time.Time) *User {
	return &User{
		Email:              email,
		PasswordHash:       passwordHash,
		SubscriptionStatus: StatusInactive,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// IsActive reports whether the user currently holds an active subscription.
func (u *User) IsActive() bool {
	return u.SubscriptionStatus == StatusActive
}

// Usage returns the metering fields of the user.
func (u *User) Usage() UsageState {
	return UsageState{Count: u.UsageCount, ResetDate: u.ResetDate}
}
