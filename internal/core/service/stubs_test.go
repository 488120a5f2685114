package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/meterline/subscription-service/internal/core/domain"
	"github.com/meterline/subscription-service/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	mu     sync.Mutex
	users  map[string]*domain.User
	nextID int

	applyCalls int
	applyErr   error
	// beforeSwap runs before each SwapUsage; it may mutate the stored user
	// to simulate a concurrent writer.
	beforeSwap func(u *domain.User)
	swapCalls  int

	// beforeReset runs before each ResetPassword, like beforeSwap.
	beforeReset func(u *domain.User)
}

func newStubUserRepo(users ...*domain.User) *stubUserRepo {
	r := &stubUserRepo{users: make(map[string]*domain.User)}
	for _, u := range users {
		r.put(u)
	}
	return r
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	c := *u
	if u.ResetDate != nil {
		t := *u.ResetDate
		c.ResetDate = &t
	}
	return &c
}

func (r *stubUserRepo) put(u *domain.User) {
	if u.ID == "" {
		r.nextID++
		u.ID = fmt.Sprintf("user_%d", r.nextID)
	}
	r.users[u.ID] = cloneUser(u)
}

func (r *stubUserRepo) get(id string) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneUser(r.users[id])
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return nil, domain.ErrUserExists
		}
	}
	c := cloneUser(user)
	r.put(c)
	return cloneUser(c), nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	if u := r.get(id); u != nil {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) find(match func(*domain.User) bool) *domain.User {
	for _, u := range r.users {
		if match(u) {
			return u
		}
	}
	return nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u := r.find(func(u *domain.User) bool { return u.Email == email }); u != nil {
		return cloneUser(u), nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByStripeCustomerID(_ context.Context, customerID string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u := r.find(func(u *domain.User) bool { return customerID != "" && u.StripeCustomerID == customerID }); u != nil {
		return cloneUser(u), nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) ApplySubscription(_ context.Context, sel domain.UserSelector, upd domain.SubscriptionUpdate) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applyCalls++
	if r.applyErr != nil {
		return nil, r.applyErr
	}

	u := r.find(func(u *domain.User) bool {
		if sel.Email != "" {
			return u.Email == sel.Email
		}
		return sel.StripeCustomerID != "" && u.StripeCustomerID == sel.StripeCustomerID
	})
	if u == nil {
		return nil, domain.ErrUserNotFound
	}

	u.SubscriptionStatus = upd.Status
	u.ResetDate = upd.ResetDate
	if upd.StripeCustomerID != "" {
		u.StripeCustomerID = upd.StripeCustomerID
	}
	return cloneUser(u), nil
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func (r *stubUserRepo) SwapUsage(_ context.Context, userID string, expected, next domain.UsageState) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.swapCalls++

	u, ok := r.users[userID]
	if !ok {
		return false, nil
	}
	if r.beforeSwap != nil {
		r.beforeSwap(u)
	}
	if u.UsageCount != expected.Count || !sameDate(u.ResetDate, expected.ResetDate) {
		return false, nil
	}
	u.UsageCount = next.Count
	u.ResetDate = next.ResetDate
	return true, nil
}

func (r *stubUserRepo) FindByResetToken(_ context.Context, tokenHash string, now time.Time) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.find(func(u *domain.User) bool {
		return u.ResetTokenHash == tokenHash && u.ResetTokenExpiry != nil && u.ResetTokenExpiry.After(now)
	})
	if u == nil {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) SetResetToken(_ context.Context, userID, tokenHash string, expiry time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.ResetTokenHash = tokenHash
	u.ResetTokenExpiry = &expiry
	return nil
}

func (r *stubUserRepo) ResetPassword(_ context.Context, userID, tokenHash, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	if r.beforeReset != nil {
		r.beforeReset(u)
	}
	if tokenHash == "" || u.ResetTokenHash != tokenHash {
		return domain.ErrInvalidResetToken
	}
	u.PasswordHash = passwordHash
	u.ResetTokenHash = ""
	u.ResetTokenExpiry = nil
	return nil
}

type stubEventRepo struct {
	mu        sync.Mutex
	insertErr error
	records   []*domain.ReconciliationRecord
	resets    []*domain.UsageReset
}

func (r *stubEventRepo) InsertReconciliation(_ context.Context, rec *domain.ReconciliationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	r.records = append(r.records, rec)
	return nil
}

func (r *stubEventRepo) InsertUsageReset(_ context.Context, reset *domain.UsageReset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	r.resets = append(r.resets, reset)
	return nil
}

type stubLedger struct {
	seen    map[string]bool
	seenErr error
	markErr error
	marked  []string
}

func newStubLedger() *stubLedger { return &stubLedger{seen: make(map[string]bool)} }

func (l *stubLedger) IsProcessed(_ context.Context, id string) (bool, error) {
	return l.seen[id], l.seenErr
}

func (l *stubLedger) MarkProcessed(_ context.Context, id string) error {
	if l.markErr != nil {
		return l.markErr
	}
	l.seen[id] = true
	l.marked = append(l.marked, id)
	return nil
}

type stubProvider struct {
	emails     map[string]string
	periodEnds map[string]*time.Time
	active     map[string][]string

	lookupErr error
	cancelErr error

	cancelled      []string
	cancelAtEnd    []string
	checkouts      []ports.CheckoutRequest
	checkoutURL    string
	periodEndCalls int
}

func newStubProvider() *stubProvider {
	return &stubProvider{
		emails:      make(map[string]string),
		periodEnds:  make(map[string]*time.Time),
		active:      make(map[string][]string),
		checkoutURL: "https://checkout.example.com/s/1",
	}
}

func (p *stubProvider) CustomerEmail(ctx context.Context, customerID string) (string, error) {
	if _, ok := ctx.Deadline(); !ok {
		return "", errors.New("provider call without deadline")
	}
	if p.lookupErr != nil {
		return "", p.lookupErr
	}
	return p.emails[customerID], nil
}

func (p *stubProvider) SubscriptionPeriodEnd(ctx context.Context, subscriptionID string) (*time.Time, error) {
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("provider call without deadline")
	}
	p.periodEndCalls++
	if p.lookupErr != nil {
		return nil, p.lookupErr
	}
	return p.periodEnds[subscriptionID], nil
}

func (p *stubProvider) ActiveSubscriptions(_ context.Context, customerID string) ([]string, error) {
	if p.lookupErr != nil {
		return nil, p.lookupErr
	}
	return p.active[customerID], nil
}

func (p *stubProvider) CancelSubscription(_ context.Context, subscriptionID string) error {
	if p.cancelErr != nil {
		return p.cancelErr
	}
	p.cancelled = append(p.cancelled, subscriptionID)
	return nil
}

func (p *stubProvider) CancelAtPeriodEnd(_ context.Context, subscriptionID string) (time.Time, error) {
	if p.cancelErr != nil {
		return time.Time{}, p.cancelErr
	}
	p.cancelAtEnd = append(p.cancelAtEnd, subscriptionID)
	if end := p.periodEnds[subscriptionID]; end != nil {
		return *end, nil
	}
	return time.Time{}, nil
}

func (p *stubProvider) CreateCheckoutSession(_ context.Context, req ports.CheckoutRequest) (string, error) {
	if p.lookupErr != nil {
		return "", p.lookupErr
	}
	p.checkouts = append(p.checkouts, req)
	return p.checkoutURL, nil
}

type stubMailer struct {
	err   error
	to    []string
	links []string
}

func (m *stubMailer) SendPasswordReset(_ context.Context, to, link string) error {
	if m.err != nil {
		return m.err
	}
	m.to = append(m.to, to)
	m.links = append(m.links, link)
	return nil
}

func timePtr(t time.Time) *time.Time { return &t }
