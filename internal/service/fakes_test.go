package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"app/internal/model"

	"github.com/stripe/stripe-go/v82"
)

// fakeStripeClient returns canned provider objects and records calls.
type fakeStripeClient struct {
	session      *stripe.CheckoutSession
	sessionErr   error
	paymentIntnt *stripe.PaymentIntent
	charge       *stripe.Charge
	refund       *stripe.Refund
	subscription *stripe.Subscription
	cancelResult *stripe.Subscription
	cancelErr    error

	cancelCalls []string
}

func (f *fakeStripeClient) GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	if f.session == nil {
		return nil, errors.New("no session configured")
	}
	return f.session, nil
}

func (f *fakeStripeClient) GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	if f.paymentIntnt == nil {
		return nil, errors.New("no payment intent configured")
	}
	return f.paymentIntnt, nil
}

func (f *fakeStripeClient) GetCharge(ctx context.Context, id string) (*stripe.Charge, error) {
	if f.charge == nil {
		return nil, errors.New("no charge configured")
	}
	return f.charge, nil
}

func (f *fakeStripeClient) CreateRefund(ctx context.Context, paymentIntentID, reason string) (*stripe.Refund, error) {
	if f.refund == nil {
		return nil, errors.New("no refund configured")
	}
	return f.refund, nil
}

func (f *fakeStripeClient) GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	if f.subscription == nil {
		return nil, errors.New("no subscription configured")
	}
	return f.subscription, nil
}

func (f *fakeStripeClient) CancelAtPeriodEnd(ctx context.Context, id string) (*stripe.Subscription, error) {
	f.cancelCalls = append(f.cancelCalls, id)
	if f.cancelErr != nil {
		return nil, f.cancelErr
	}
	if f.cancelResult == nil {
		return nil, errors.New("no cancel result configured")
	}
	return f.cancelResult, nil
}

// fakePurchaseRepo is an in-memory store enforcing the same
// (stripe_session_id, guide_id) uniqueness the real table does.
type fakePurchaseRepo struct {
	mu        sync.Mutex
	purchases []*model.Purchase
	nextID    int

	// markDelay stretches MarkRefunded so tests can observe how many calls
	// run at once.
	markDelay   time.Duration
	inFlight    int32
	maxInFlight int32
}

func (f *fakePurchaseRepo) ListBySession(ctx context.Context, sessionID string) ([]model.Purchase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Purchase
	for _, p := range f.purchases {
		if p.StripeSessionID == sessionID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePurchaseRepo) CreateIfAbsent(ctx context.Context, p *model.Purchase) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.purchases {
		if existing.StripeSessionID == p.StripeSessionID && existing.GuideID == p.GuideID {
			return false, nil
		}
	}
	f.nextID++
	cp := *p
	cp.ID = fmt.Sprintf("p%d", f.nextID)
	cp.PurchasedAt = time.Now()
	f.purchases = append(f.purchases, &cp)
	return true, nil
}

func (f *fakePurchaseRepo) GetByTokenAndGuide(ctx context.Context, accessToken, guideID string) (*model.Purchase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.purchases {
		if p.AccessToken == accessToken && p.GuideID == guideID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakePurchaseRepo) RecordAccess(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.purchases {
		if p.ID == id {
			p.AccessCount++
			now := time.Now()
			p.LastAccessedAt = &now
			return nil
		}
	}
	return errors.New("purchase not found")
}

func (f *fakePurchaseRepo) FindActiveByEmailAndGuide(ctx context.Context, email, guideID string) (*model.Purchase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.purchases {
		if p.Email == email && p.GuideID == guideID && p.Status == model.PurchaseStatusActive {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakePurchaseRepo) ListByPaymentIntent(ctx context.Context, paymentIntentID string) ([]model.Purchase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Purchase
	for _, p := range f.purchases {
		if p.StripePaymentIntentID != nil && *p.StripePaymentIntentID == paymentIntentID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePurchaseRepo) MarkRefunded(ctx context.Context, id string) (bool, error) {
	cur := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		max := atomic.LoadInt32(&f.maxInFlight)
		if cur <= max || atomic.CompareAndSwapInt32(&f.maxInFlight, max, cur) {
			break
		}
	}
	if f.markDelay > 0 {
		time.Sleep(f.markDelay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.purchases {
		if p.ID == id {
			if p.Status == model.PurchaseStatusRefunded {
				return false, nil
			}
			p.Status = model.PurchaseStatusRefunded
			now := time.Now()
			p.RefundedAt = &now
			return true, nil
		}
	}
	return false, errors.New("purchase not found")
}

func (f *fakePurchaseRepo) add(p model.Purchase) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := p
	f.purchases = append(f.purchases, &cp)
}

func (f *fakePurchaseRepo) get(id string) *model.Purchase {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.purchases {
		if p.ID == id {
			cp := *p
			return &cp
		}
	}
	return nil
}

// fakeSubscriptionRepo holds at most a handful of records and serves GetCurrent
// with the same status filtering the SQL does.
type fakeSubscriptionRepo struct {
	mu            sync.Mutex
	subscriptions []*model.Subscription

	setCancelCalls []string
	setCancelErr   error
}

func (f *fakeSubscriptionRepo) GetCurrent(ctx context.Context, ref model.IdentityRef, statuses []string) (*model.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	allowed := make(map[string]bool, len(statuses))
	for _, s := range statuses {
		allowed[s] = true
	}
	var newest *model.Subscription
	for _, s := range f.subscriptions {
		if !allowed[s.Status] {
			continue
		}
		switch ref.Kind {
		case model.IdentityByUserID:
			if s.UserID != ref.Value {
				continue
			}
		case model.IdentityByEmail:
			if s.Email != ref.Value {
				continue
			}
		default:
			continue
		}
		if newest == nil || s.CreatedAt.After(newest.CreatedAt) {
			newest = s
		}
	}
	if newest == nil {
		return nil, nil
	}
	cp := *newest
	return &cp, nil
}

func (f *fakeSubscriptionRepo) Upsert(ctx context.Context, s *model.Subscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, existing := range f.subscriptions {
		if existing.StripeSubscriptionID == s.StripeSubscriptionID {
			cp := *s
			if cp.UserID == "" {
				cp.UserID = existing.UserID
			}
			if cp.Email == "" {
				cp.Email = existing.Email
			}
			cp.CreatedAt = existing.CreatedAt
			f.subscriptions[i] = &cp
			return nil
		}
	}
	cp := *s
	cp.CreatedAt = time.Now()
	f.subscriptions = append(f.subscriptions, &cp)
	return nil
}

func (f *fakeSubscriptionRepo) SetCancelAtPeriodEnd(ctx context.Context, stripeSubscriptionID string, reason *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCancelCalls = append(f.setCancelCalls, stripeSubscriptionID)
	if f.setCancelErr != nil {
		return f.setCancelErr
	}
	for _, s := range f.subscriptions {
		if s.StripeSubscriptionID == stripeSubscriptionID {
			s.CancelAtPeriodEnd = true
			s.CancelReason = reason
			return nil
		}
	}
	return errors.New("subscription not found")
}

func (f *fakeSubscriptionRepo) UpdateStatus(ctx context.Context, stripeSubscriptionID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.subscriptions {
		if s.StripeSubscriptionID == stripeSubscriptionID {
			s.Status = status
			return nil
		}
	}
	return errors.New("subscription not found")
}

func (f *fakeSubscriptionRepo) add(s model.Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := s
	f.subscriptions = append(f.subscriptions, &cp)
}

// fakeIdentityService resolves user ids from a fixed map.
type fakeIdentityService struct {
	emails map[string]string
	err    error
}

func (f *fakeIdentityService) EmailForUser(ctx context.Context, userID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.emails[userID], nil
}

// fakePublisher records published payloads.
type fakePublisher struct {
	mu       sync.Mutex
	messages [][]byte
	topics   []string
	err      error
}

func (f *fakePublisher) Publish(ctx context.Context, topic string, payload []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.topics = append(f.topics, topic)
	f.messages = append(f.messages, payload)
	return "msg-1", nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}
