package domain

import (
	"errors"
	"fmt"
)

// Reconciliation errors.
var (
	ErrAuthentication = errors.New("webhook signature verification failed")
	ErrRemoteLookup   = errors.New("payment provider lookup failed")
	ErrValidation     = errors.New("invalid event payload")
)

// Account errors.
var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserExists           = errors.New("user already exists")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrWeakPassword         = errors.New("password must be at least 8 characters and include an uppercase letter, a lowercase letter, a number and a symbol")
	ErrInvalidResetToken    = errors.New("invalid or expired reset token")
	ErrNoProviderCustomer   = errors.New("no payment provider customer linked to user")
	ErrNoActiveSubscription = errors.New("no active subscription found")
)

// Metering errors.
var (
	ErrQuotaExceeded    = errors.New("monthly usage limit reached")
	ErrInvalidIncrement = errors.New("usage increment must be positive")
	ErrConcurrentUpdate = errors.New("usage changed concurrently, retry")
)

// QuotaExceededError carries the numbers behind a rejected increment.
// It matches ErrQuotaExceeded with errors.Is.
type QuotaExceededError struct {
	Used      int64
	Requested int64
	Limit     int64
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("%s: %d used + %d requested > %d", ErrQuotaExceeded, e.Used, e.Requested, e.Limit)
}

func (e *QuotaExceededError) Is(target error) bool {
	return target == ErrQuotaExceeded
}
