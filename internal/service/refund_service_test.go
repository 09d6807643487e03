package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"app/internal/apperr"
	"app/internal/model"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
)

func purchaseForIntent(id, intentID string) model.Purchase {
	pi := intentID
	return model.Purchase{
		ID:                    id,
		Email:                 "buyer@example.com",
		GuideID:               "pcos",
		StripeSessionID:       "cs_1",
		StripePaymentIntentID: &pi,
		Status:                model.PurchaseStatusActive,
	}
}

func refundedCharge(amount int64) *fakeStripeClient {
	return &fakeStripeClient{
		paymentIntnt: &stripe.PaymentIntent{
			ID:           "pi_1",
			LatestCharge: &stripe.Charge{ID: "ch_1"},
		},
		charge: &stripe.Charge{ID: "ch_1", AmountRefunded: amount, Refunded: amount > 0},
	}
}

func TestSyncRefundStatusRevokesAll(t *testing.T) {
	repo := &fakePurchaseRepo{}
	repo.add(purchaseForIntent("p1", "pi_1"))
	repo.add(purchaseForIntent("p2", "pi_1"))
	client := refundedCharge(499)
	client.charge.Refunded = false // partial refund
	svc := NewRefundService(client, repo, &fakeSubscriptionRepo{}, zerolog.Nop())

	result, err := svc.SyncRefundStatus(context.Background(), "pi_1")
	if err != nil {
		t.Fatalf("SyncRefundStatus returned error: %v", err)
	}
	if !result.WasRefunded {
		t.Fatal("partial refund must count as refunded")
	}
	if result.Updated != 2 || result.PurchaseCount != 2 {
		t.Fatalf("expected 2 updated of 2, got %d of %d", result.Updated, result.PurchaseCount)
	}
	if result.RefundAmount != 499 {
		t.Fatalf("expected refund amount 499, got %d", result.RefundAmount)
	}
	for _, id := range []string{"p1", "p2"} {
		if got := repo.get(id); got.Status != model.PurchaseStatusRefunded {
			t.Fatalf("purchase %s not revoked, status=%q", id, got.Status)
		}
	}
}

func TestSyncRefundStatusBoundsConcurrentRevocations(t *testing.T) {
	repo := &fakePurchaseRepo{markDelay: 2 * time.Millisecond}
	const batch = 40
	for i := 0; i < batch; i++ {
		repo.add(purchaseForIntent(fmt.Sprintf("p%d", i), "pi_1"))
	}
	svc := NewRefundService(refundedCharge(999), repo, &fakeSubscriptionRepo{}, zerolog.Nop())

	result, err := svc.SyncRefundStatus(context.Background(), "pi_1")
	if err != nil {
		t.Fatalf("SyncRefundStatus returned error: %v", err)
	}
	if result.Updated != batch {
		t.Fatalf("expected all %d purchases revoked, got %d", batch, result.Updated)
	}
	if repo.maxInFlight > revokeConcurrency {
		t.Fatalf("observed %d concurrent store writes, cap is %d", repo.maxInFlight, revokeConcurrency)
	}
}

func TestSyncRefundStatusIsIdempotent(t *testing.T) {
	repo := &fakePurchaseRepo{}
	repo.add(purchaseForIntent("p1", "pi_1"))
	svc := NewRefundService(refundedCharge(999), repo, &fakeSubscriptionRepo{}, zerolog.Nop())

	if _, err := svc.SyncRefundStatus(context.Background(), "pi_1"); err != nil {
		t.Fatalf("first sync returned error: %v", err)
	}
	second, err := svc.SyncRefundStatus(context.Background(), "pi_1")
	if err != nil {
		t.Fatalf("second sync returned error: %v", err)
	}
	if !second.WasRefunded {
		t.Fatal("re-run still reports the provider refund")
	}
	if second.Updated != 0 {
		t.Fatalf("re-run must flip nothing, got %d", second.Updated)
	}
	if second.PurchaseCount != 1 {
		t.Fatalf("expected purchase count 1, got %d", second.PurchaseCount)
	}
}

func TestSyncRefundStatusNoRefund(t *testing.T) {
	repo := &fakePurchaseRepo{}
	repo.add(purchaseForIntent("p1", "pi_1"))
	svc := NewRefundService(refundedCharge(0), repo, &fakeSubscriptionRepo{}, zerolog.Nop())

	result, err := svc.SyncRefundStatus(context.Background(), "pi_1")
	if err != nil {
		t.Fatalf("SyncRefundStatus returned error: %v", err)
	}
	if result.WasRefunded {
		t.Fatal("expected WasRefunded=false when nothing was refunded")
	}
	if got := repo.get("p1"); got.Status != model.PurchaseStatusActive {
		t.Fatalf("no refund must not mutate purchases, status=%q", got.Status)
	}
}

func TestSyncRefundStatusNoCharge(t *testing.T) {
	client := &fakeStripeClient{paymentIntnt: &stripe.PaymentIntent{ID: "pi_1"}}
	svc := NewRefundService(client, &fakePurchaseRepo{}, &fakeSubscriptionRepo{}, zerolog.Nop())

	result, err := svc.SyncRefundStatus(context.Background(), "pi_1")
	if err != nil {
		t.Fatalf("SyncRefundStatus returned error: %v", err)
	}
	if result.WasRefunded {
		t.Fatal("a payment with no charge has nothing refunded")
	}
}

func TestSyncRefundStatusRequiresID(t *testing.T) {
	svc := NewRefundService(&fakeStripeClient{}, &fakePurchaseRepo{}, &fakeSubscriptionRepo{}, zerolog.Nop())
	if _, err := svc.SyncRefundStatus(context.Background(), ""); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateRefundRevokesPurchases(t *testing.T) {
	repo := &fakePurchaseRepo{}
	repo.add(purchaseForIntent("p1", "pi_1"))
	client := &fakeStripeClient{
		refund: &stripe.Refund{ID: "re_1", Amount: 999, Status: stripe.RefundStatusSucceeded},
	}
	svc := NewRefundService(client, repo, &fakeSubscriptionRepo{}, zerolog.Nop())

	result, err := svc.CreateRefund(context.Background(), "pi_1", "requested_by_customer")
	if err != nil {
		t.Fatalf("CreateRefund returned error: %v", err)
	}
	if result.RefundID != "re_1" || result.Amount != 999 {
		t.Fatalf("unexpected refund creation result: %+v", result)
	}
	if got := repo.get("p1"); got.Status != model.PurchaseStatusRefunded {
		t.Fatalf("purchase not revoked after refund, status=%q", got.Status)
	}
}

func TestCancelSubscriptionAtPeriodEnd(t *testing.T) {
	subs := &fakeSubscriptionRepo{}
	storedEnd := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)
	subs.add(model.Subscription{
		UserID:               "user-1",
		StripeSubscriptionID: "sub_1",
		Status:               model.SubscriptionStatusActive,
		CurrentPeriodEnd:     storedEnd,
	})
	providerEnd := storedEnd.Add(24 * time.Hour)
	client := &fakeStripeClient{
		cancelResult: &stripe.Subscription{
			ID: "sub_1",
			Items: &stripe.SubscriptionItemList{Data: []*stripe.SubscriptionItem{
				{CurrentPeriodEnd: providerEnd.Unix()},
			}},
		},
	}
	svc := NewRefundService(client, &fakePurchaseRepo{}, subs, zerolog.Nop())

	periodEnd, err := svc.CancelSubscription(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("CancelSubscription returned error: %v", err)
	}
	if !periodEnd.Equal(providerEnd) {
		t.Fatalf("expected provider period end %v, got %v", providerEnd, periodEnd)
	}
	if len(client.cancelCalls) != 1 || client.cancelCalls[0] != "sub_1" {
		t.Fatalf("expected one provider cancel for sub_1, got %v", client.cancelCalls)
	}
	if len(subs.setCancelCalls) != 1 {
		t.Fatalf("expected local cancel flag mirrored, got %v", subs.setCancelCalls)
	}
}

func TestCancelSubscriptionPastDueStillCancelable(t *testing.T) {
	subs := &fakeSubscriptionRepo{}
	subs.add(model.Subscription{
		UserID:               "user-1",
		StripeSubscriptionID: "sub_1",
		Status:               model.SubscriptionStatusPastDue,
		CurrentPeriodEnd:     time.Now().Add(24 * time.Hour),
	})
	client := &fakeStripeClient{cancelResult: &stripe.Subscription{ID: "sub_1", Items: &stripe.SubscriptionItemList{}}}
	svc := NewRefundService(client, &fakePurchaseRepo{}, subs, zerolog.Nop())

	if _, err := svc.CancelSubscription(context.Background(), "user-1"); err != nil {
		t.Fatalf("past_due subscription should be cancelable: %v", err)
	}
}

func TestCancelSubscriptionNoneFound(t *testing.T) {
	svc := NewRefundService(&fakeStripeClient{}, &fakePurchaseRepo{}, &fakeSubscriptionRepo{}, zerolog.Nop())
	_, err := svc.CancelSubscription(context.Background(), "user-1")
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestCancelSubscriptionProviderFailureSkipsLocalWrite(t *testing.T) {
	subs := &fakeSubscriptionRepo{}
	subs.add(model.Subscription{
		UserID:               "user-1",
		StripeSubscriptionID: "sub_1",
		Status:               model.SubscriptionStatusActive,
		CurrentPeriodEnd:     time.Now().Add(24 * time.Hour),
	})
	client := &fakeStripeClient{cancelErr: errors.New("provider down")}
	svc := NewRefundService(client, &fakePurchaseRepo{}, subs, zerolog.Nop())

	if _, err := svc.CancelSubscription(context.Background(), "user-1"); err == nil {
		t.Fatal("expected error when provider cancel fails")
	}
	if len(subs.setCancelCalls) != 0 {
		t.Fatal("local state must not change when the provider call fails")
	}
}
