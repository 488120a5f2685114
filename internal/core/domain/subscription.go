package domain

import "time"

// SubscriptionUpdate is the set of subscription fields a reconciliation
// handler writes. A nil ResetDate clears the stored value; an empty
// StripeCustomerID leaves the stored value untouched.
type SubscriptionUpdate struct {
	Status           SubscriptionStatus
	StripeCustomerID string
	ResetDate        *time.Time
}

// Activation returns the update that turns a user into an active subscriber
// until periodEnd.
func Activation(customerID string, periodEnd *time.Time) SubscriptionUpdate {
	return SubscriptionUpdate{
		Status:           StatusActive,
		StripeCustomerID: customerID,
		ResetDate:        periodEnd,
	}
}

// Deactivation pauses benefits: status inactive and no billing cycle.
func Deactivation() SubscriptionUpdate {
	return SubscriptionUpdate{Status: StatusInactive}
}

// Refund marks the subscription as refunded and clears the billing cycle.
func Refund() SubscriptionUpdate {
	return SubscriptionUpdate{Status: StatusRefunded}
}

// AlreadyApplied reports whether applying an activation to u would change
// nothing: u is already active with exactly the same reset date. There is no
// event-id ledger requirement, so equality of the resulting state is what
// identifies a redelivered activation.
func (upd SubscriptionUpdate) AlreadyApplied(u *User) bool {
	if u == nil || upd.Status != StatusActive || !u.IsActive() {
		return false
	}
	if u.ResetDate == nil || upd.ResetDate == nil {
		return false
	}
	return u.ResetDate.Equal(*upd.ResetDate)
}

// UserSelector identifies the single user a reconciliation update targets.
// Exactly one field is expected to be set.
type UserSelector struct {
	Email            string
	StripeCustomerID string
}

// ByEmail selects a user by account email.
func ByEmail(email string) UserSelector { return UserSelector{Email: email} }

// ByCustomer selects a user by linked provider customer id.
func ByCustomer(customerID string) UserSelector {
	return UserSelector{StripeCustomerID: customerID}
}

func (s UserSelector) String() string {
	if s.Email != "" {
		return "email=" + s.Email
	}
	return "customer=" + s.StripeCustomerID
}
