package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/meterline/subscription-service/internal/core/domain"
)

func newBillingSvc(users *stubUserRepo, provider *stubProvider) *billingService {
	return NewBillingService(users, provider, BillingConfig{
		PriceID:   "price_123",
		ClientURL: "https://app.example.com/",
	}, zerolog.Nop()).(*billingService)
}

func TestBilling_StartSubscription(t *testing.T) {
	users := newStubUserRepo(&domain.User{ID: "u1", Email: "a@b.com"})
	provider := newStubProvider()

	url, err := newBillingSvc(users, provider).StartSubscription(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != provider.checkoutURL {
		t.Fatalf("unexpected url %s", url)
	}
	req := provider.checkouts[0]
	if req.Mode != "subscription" || req.PriceID != "price_123" || req.CustomerEmail != "a@b.com" {
		t.Fatalf("unexpected checkout request: %+v", req)
	}
	if req.SuccessURL != "https://app.example.com/success?session_id={CHECKOUT_SESSION_ID}" {
		t.Fatalf("unexpected success url %s", req.SuccessURL)
	}
}

func TestBilling_StartSubscription_ProviderError(t *testing.T) {
	users := newStubUserRepo(&domain.User{ID: "u1", Email: "a@b.com"})
	provider := newStubProvider()
	provider.lookupErr = errors.New("down")

	if _, err := newBillingSvc(users, provider).StartSubscription(context.Background(), "u1"); !errors.Is(err, domain.ErrRemoteLookup) {
		t.Fatalf("expected ErrRemoteLookup, got %v", err)
	}
}

func TestBilling_Donate(t *testing.T) {
	provider := newStubProvider()
	svc := newBillingSvc(newStubUserRepo(), provider)

	if _, err := svc.Donate(context.Background(), "", 0); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if _, err := svc.Donate(context.Background(), "", 500); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req := provider.checkouts[0]
	if req.Mode != "payment" || req.AmountCents != 500 || req.ProductName == "" {
		t.Fatalf("unexpected donation checkout: %+v", req)
	}
}

func TestBilling_CancelSubscription(t *testing.T) {
	end := time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)
	users := newStubUserRepo(&domain.User{ID: "u1", StripeCustomerID: "cus_1", SubscriptionStatus: domain.StatusActive})
	provider := newStubProvider()
	provider.active["cus_1"] = []string{"sub_1"}
	provider.periodEnds["sub_1"] = &end

	got, err := newBillingSvc(users, provider).CancelSubscription(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(end) || len(provider.cancelAtEnd) != 1 {
		t.Fatalf("unexpected cancel: %v %v", got, provider.cancelAtEnd)
	}
	// Local state only changes when the provider reports the deletion.
	if u := users.get("u1"); u.SubscriptionStatus != domain.StatusActive {
		t.Fatalf("status changed early: %s", u.SubscriptionStatus)
	}
}

func TestBilling_CancelSubscription_Errors(t *testing.T) {
	users := newStubUserRepo(
		&domain.User{ID: "u1"},
		&domain.User{ID: "u2", StripeCustomerID: "cus_2"},
	)
	svc := newBillingSvc(users, newStubProvider())

	if _, err := svc.CancelSubscription(context.Background(), "u1"); !errors.Is(err, domain.ErrNoProviderCustomer) {
		t.Fatalf("expected ErrNoProviderCustomer, got %v", err)
	}
	if _, err := svc.CancelSubscription(context.Background(), "u2"); !errors.Is(err, domain.ErrNoActiveSubscription) {
		t.Fatalf("expected ErrNoActiveSubscription, got %v", err)
	}
}

func TestBilling_Status(t *testing.T) {
	users := newStubUserRepo(&domain.User{ID: "u1", SubscriptionStatus: domain.StatusRefunded})

	status, err := newBillingSvc(users, newStubProvider()).Status(context.Background(), "u1")
	if err != nil || status != domain.StatusRefunded {
		t.Fatalf("expected refunded, got %s (%v)", status, err)
	}
}
