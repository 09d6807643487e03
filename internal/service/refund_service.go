package service

import (
	"context"
	"sync"
	"time"

	"app/internal/apperr"
	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// RefundSyncResult reports one reconciliation pass against the payment
// provider's refund state. Updated counts records flipped by this call, so a
// re-run on an already-synced payment reports zero.
type RefundSyncResult struct {
	WasRefunded   bool  `json:"was_refunded"`
	Updated       int   `json:"updated"`
	PurchaseCount int   `json:"purchase_count"`
	RefundAmount  int64 `json:"refund_amount,omitempty"`
}

// RefundCreation is the provider's view of a newly created refund.
type RefundCreation struct {
	RefundID string `json:"refund_id"`
	Amount   int64  `json:"amount"`
	Status   string `json:"status"`
}

// RefundService reconciles provider-side refunds and cancellations back into
// the entitlement store.
type RefundService interface {
	SyncRefundStatus(ctx context.Context, paymentIntentID string) (*RefundSyncResult, error)
	CreateRefund(ctx context.Context, paymentIntentID, reason string) (*RefundCreation, error)
	CancelSubscription(ctx context.Context, userID string) (time.Time, error)
}

type refundService struct {
	stripe    StripeClient
	purchases repository.PurchaseRepository
	subs      repository.SubscriptionRepository
	logger    zerolog.Logger
}

// NewRefundService creates a new RefundService with a scoped logger.
func NewRefundService(
	stripeClient StripeClient,
	purchases repository.PurchaseRepository,
	subs repository.SubscriptionRepository,
	logger zerolog.Logger,
) RefundService {
	return &refundService{
		stripe:    stripeClient,
		purchases: purchases,
		subs:      subs,
		logger:    logger.With().Str("service", "RefundService").Logger(),
	}
}

// SyncRefundStatus checks the payment's charge for any refunded amount and
// revokes every purchase sharing the payment intent. Safe to call repeatedly.
func (s *refundService) SyncRefundStatus(ctx context.Context, paymentIntentID string) (*RefundSyncResult, error) {
	if paymentIntentID == "" {
		return nil, apperr.E(apperr.KindValidation, "paymentIntentId is required")
	}
	pi, err := s.stripe.GetPaymentIntent(ctx, paymentIntentID)
	if err != nil {
		s.logger.Error().Err(err).Str("payment_intent_id", paymentIntentID).Msg("Failed to fetch payment intent")
		return nil, mapStripeErr("fetch payment intent", err)
	}
	if pi.LatestCharge == nil || pi.LatestCharge.ID == "" {
		return &RefundSyncResult{WasRefunded: false}, nil
	}
	charge, err := s.stripe.GetCharge(ctx, pi.LatestCharge.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("charge_id", pi.LatestCharge.ID).Msg("Failed to fetch charge")
		return nil, mapStripeErr("fetch charge", err)
	}

	// Partial refunds revoke access too: any refunded amount counts.
	if charge.AmountRefunded == 0 && !charge.Refunded {
		return &RefundSyncResult{WasRefunded: false}, nil
	}

	purchases, err := s.purchases.ListByPaymentIntent(ctx, paymentIntentID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindExternal, "query purchases", err)
	}

	updated := s.revokeAll(ctx, purchases)

	return &RefundSyncResult{
		WasRefunded:   true,
		Updated:       updated,
		PurchaseCount: len(purchases),
		RefundAmount:  charge.AmountRefunded,
	}, nil
}

// revokeConcurrency caps concurrent store writes per refund batch.
const revokeConcurrency = 8

// revokeAll flips records concurrently with no cross-record atomicity; a
// partial failure leaves the batch convergent under re-invocation.
func (s *refundService) revokeAll(ctx context.Context, purchases []model.Purchase) int {
	var (
		mu      sync.Mutex
		updated int
	)
	g := new(errgroup.Group)
	g.SetLimit(revokeConcurrency)
	for _, p := range purchases {
		id := p.ID
		g.Go(func() error {
			flipped, err := s.purchases.MarkRefunded(ctx, id)
			if err != nil {
				s.logger.Error().Err(err).Str("purchase_id", id).Msg("Failed to mark purchase refunded")
				return nil
			}
			if flipped {
				mu.Lock()
				updated++
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()
	return updated
}

// CreateRefund issues a provider-side refund and revokes the associated
// purchases. The store mutation happens only after the provider call succeeds.
func (s *refundService) CreateRefund(ctx context.Context, paymentIntentID, reason string) (*RefundCreation, error) {
	if paymentIntentID == "" {
		return nil, apperr.E(apperr.KindValidation, "paymentIntentId is required")
	}
	refund, err := s.stripe.CreateRefund(ctx, paymentIntentID, reason)
	if err != nil {
		s.logger.Error().Err(err).Str("payment_intent_id", paymentIntentID).Msg("Failed to create refund")
		return nil, mapStripeErr("create refund", err)
	}

	purchases, err := s.purchases.ListByPaymentIntent(ctx, paymentIntentID)
	if err != nil {
		// The refund exists provider-side; the next sync pass converges.
		s.logger.Error().Err(err).Str("payment_intent_id", paymentIntentID).Msg("Failed to query purchases after refund")
	} else {
		s.revokeAll(ctx, purchases)
	}

	return &RefundCreation{
		RefundID: refund.ID,
		Amount:   refund.Amount,
		Status:   string(refund.Status),
	}, nil
}

// CancelSubscription requests provider-side cancellation effective at period
// end, then mirrors the flag locally. No local write happens on the provider
// failure path, so retries are safe.
func (s *refundService) CancelSubscription(ctx context.Context, userID string) (time.Time, error) {
	if userID == "" {
		return time.Time{}, apperr.E(apperr.KindValidation, "userId is required")
	}
	sub, err := s.subs.GetCurrent(ctx, model.ByUserID(userID), []string{
		model.SubscriptionStatusActive,
		model.SubscriptionStatusTrialing,
		model.SubscriptionStatusPastDue,
	})
	if err != nil {
		return time.Time{}, apperr.Wrap(apperr.KindExternal, "query subscription", err)
	}
	if sub == nil {
		return time.Time{}, apperr.E(apperr.KindNotFound, "no current subscription")
	}

	updated, err := s.stripe.CancelAtPeriodEnd(ctx, sub.StripeSubscriptionID)
	if err != nil {
		s.logger.Error().Err(err).Str("subscription_id", sub.StripeSubscriptionID).Msg("Failed to cancel subscription at period end")
		return time.Time{}, mapStripeErr("cancel subscription", err)
	}

	periodEnd := sub.CurrentPeriodEnd
	if len(updated.Items.Data) > 0 && updated.Items.Data[0].CurrentPeriodEnd > 0 {
		periodEnd = time.Unix(updated.Items.Data[0].CurrentPeriodEnd, 0)
	}

	if err := s.subs.SetCancelAtPeriodEnd(ctx, sub.StripeSubscriptionID, nil); err != nil {
		// Provider-side state is authoritative; the webhook mirror converges.
		s.logger.Error().Err(err).Str("subscription_id", sub.StripeSubscriptionID).Msg("Failed to mirror cancel_at_period_end")
	}

	return periodEnd, nil
}
