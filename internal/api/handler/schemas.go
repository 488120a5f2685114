package handler

import "time"

type registerRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,strongpassword"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"    validate:"required"`
	Password string `json:"password" validate:"required,strongpassword"`
}

type userResponse struct {
	ID                 string     `json:"id"`
	Email              string     `json:"email"`
	SubscriptionStatus string     `json:"subscription_status"`
	UsageCount         int64      `json:"usage_count"`
	ResetDate          *time.Time `json:"reset_date,omitempty"`
}

type authResponse struct {
	Token string        `json:"token"`
	User  *userResponse `json:"user,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type webhookResponse struct {
	Received bool `json:"received"`
}

type usageResponse struct {
	UsageCount int64 `json:"usage_count"`
}

// incrementRequest is optional; an empty body applies the default increment.
type incrementRequest struct {
	IncrementBy int64 `json:"increment_by" validate:"omitempty,gt=0"`
}

type incrementResponse struct {
	Success    bool       `json:"success"`
	UsageCount int64      `json:"usage_count"`
	Limit      int64      `json:"limit"`
	ResetDate  *time.Time `json:"reset_date,omitempty"`
}

type subscriptionStatusResponse struct {
	Active bool   `json:"active"`
	Status string `json:"status"`
}

type checkoutResponse struct {
	URL string `json:"url"`
}

type cancelResponse struct {
	Message   string    `json:"message"`
	PeriodEnd time.Time `json:"period_end"`
}

type donationRequest struct {
	AmountCents int64  `json:"amount_cents" validate:"required,gt=0"`
	Email       string `json:"email"        validate:"omitempty,email"`
}

type errorResponse struct {
	Error string `json:"error"`
}
