package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/meterline/subscription-service/internal/core/domain"
)

type stubBillingService struct {
	status    domain.SubscriptionStatus
	url       string
	periodEnd time.Time
	err       error

	donateEmail  string
	donateAmount int64
}

func (s *stubBillingService) Status(context.Context, string) (domain.SubscriptionStatus, error) {
	return s.status, s.err
}

func (s *stubBillingService) StartSubscription(context.Context, string) (string, error) {
	return s.url, s.err
}

func (s *stubBillingService) Donate(_ context.Context, email string, amountCents int64) (string, error) {
	s.donateEmail = email
	s.donateAmount = amountCents
	return s.url, s.err
}

func (s *stubBillingService) CancelSubscription(context.Context, string) (time.Time, error) {
	return s.periodEnd, s.err
}

func TestSubscriptionHandler_Status(t *testing.T) {
	tests := []struct {
		status domain.SubscriptionStatus
		active bool
	}{
		{domain.StatusActive, true},
		{domain.StatusInactive, false},
		{domain.StatusRefunded, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			e := newTestEcho()
			h := NewSubscriptionHandler(&stubBillingService{status: tt.status})

			c, rec := jsonRequest(e, http.MethodGet, "/v1/subscription", "")
			c.Set("user_id", "u1")
			if err := h.Status(c); err != nil {
				t.Fatalf("handler error: %v", err)
			}

			var resp subscriptionStatusResponse
			_ = json.Unmarshal(rec.Body.Bytes(), &resp)
			if resp.Active != tt.active || resp.Status != string(tt.status) {
				t.Fatalf("unexpected response %s", rec.Body.String())
			}
		})
	}
}

func TestSubscriptionHandler_Checkout(t *testing.T) {
	e := newTestEcho()
	h := NewSubscriptionHandler(&stubBillingService{url: "https://checkout.example.com/s/1"})

	c, rec := jsonRequest(e, http.MethodPost, "/v1/subscription/checkout", "")
	c.Set("user_id", "u1")
	if err := h.Checkout(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp checkoutResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.URL != "https://checkout.example.com/s/1" {
		t.Fatalf("unexpected response %s", rec.Body.String())
	}
}

func TestSubscriptionHandler_Cancel(t *testing.T) {
	e := newTestEcho()
	end := time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)
	h := NewSubscriptionHandler(&stubBillingService{periodEnd: end})

	c, rec := jsonRequest(e, http.MethodPost, "/v1/subscription/cancel", "")
	c.Set("user_id", "u1")
	if err := h.Cancel(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp cancelResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if !resp.PeriodEnd.Equal(end) {
		t.Fatalf("unexpected period end in %s", rec.Body.String())
	}

	h = NewSubscriptionHandler(&stubBillingService{err: domain.ErrNoActiveSubscription})
	c, _ = jsonRequest(e, http.MethodPost, "/v1/subscription/cancel", "")
	c.Set("user_id", "u1")
	if err := h.Cancel(c); !errors.Is(err, domain.ErrNoActiveSubscription) {
		t.Fatalf("expected ErrNoActiveSubscription, got %v", err)
	}
}

func TestSubscriptionHandler_Donate(t *testing.T) {
	e := newTestEcho()
	stub := &stubBillingService{url: "https://checkout.example.com/d/1"}
	h := NewSubscriptionHandler(stub)

	c, _ := jsonRequest(e, http.MethodPost, "/v1/donations", `{"amount_cents":500}`)
	c.Set("email", "donor@example.com")
	if err := h.Donate(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if stub.donateEmail != "donor@example.com" || stub.donateAmount != 500 {
		t.Fatalf("unexpected donation args %q %d", stub.donateEmail, stub.donateAmount)
	}

	c, _ = jsonRequest(e, http.MethodPost, "/v1/donations", `{"amount_cents":0}`)
	if code := httpCode(t, h.Donate(c)); code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", code)
	}
}
