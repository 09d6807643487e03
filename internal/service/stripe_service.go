package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"app/internal/apperr"
	"app/internal/config"
	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeService processes payment-provider webhook events, keeping the
// entitlement store consistent with the provider's view.
type StripeService struct {
	cfg         *config.Config
	stripe      StripeClient
	checkoutSvc CheckoutService
	refundSvc   RefundService
	subs        repository.SubscriptionRepository
	logger      zerolog.Logger
}

// NewStripeService returns a webhook processor with a scoped logger.
func NewStripeService(
	cfg *config.Config,
	stripeClient StripeClient,
	checkoutSvc CheckoutService,
	refundSvc RefundService,
	subs repository.SubscriptionRepository,
	logger zerolog.Logger,
) *StripeService {
	return &StripeService{
		cfg:         cfg,
		stripe:      stripeClient,
		checkoutSvc: checkoutSvc,
		refundSvc:   refundSvc,
		subs:        subs,
		logger:      logger.With().Str("service", "StripeService").Logger(),
	}
}

// HandleWebhook verifies and dispatches Stripe webhook events.
func (s *StripeService) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read Stripe webhook payload")
		http.Error(w, "failed to read payload", http.StatusBadRequest)
		return
	}
	sig := r.Header.Get("Stripe-Signature")
	event, err := webhook.ConstructEvent(payload, sig, s.cfg.StripeWebhookSecret)
	if err != nil {
		s.logger.Error().Err(err).Msg("Signature verification failed for Stripe webhook")
		http.Error(w, "signature verification failed", http.StatusBadRequest)
		return
	}
	s.logger.Info().Str("event_type", string(event.Type)).Msg("Stripe webhook received")

	ctx := r.Context()
	switch event.Type {
	case "checkout.session.completed":
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			s.logger.Error().Err(err).Msg("Invalid checkout.session data")
			http.Error(w, "invalid checkout.session data", http.StatusBadRequest)
			return
		}
		if cs.Mode == stripe.CheckoutSessionModeSubscription {
			if err := s.handleSubscriptionCheckout(ctx, &cs); err != nil {
				s.logger.Error().Err(err).Str("session_id", cs.ID).Msg("Failed to record subscription from checkout")
				// Validation kinds answer 4xx so the provider does not retry a
				// malformed session forever.
				http.Error(w, apperr.Message(err), apperr.HTTPStatus(err))
				return
			}
		} else {
			if _, err := s.checkoutSvc.ReconcileSession(ctx, &cs); err != nil {
				s.logger.Error().Err(err).Str("session_id", cs.ID).Msg("Failed to reconcile purchases from checkout")
				http.Error(w, apperr.Message(err), apperr.HTTPStatus(err))
				return
			}
		}
	case "customer.subscription.updated":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			s.logger.Error().Err(err).Msg("Invalid customer.subscription.updated payload")
			http.Error(w, "invalid subscription data", http.StatusBadRequest)
			return
		}
		record := subscriptionFromStripe(&sub, sub.Metadata["user_id"], sub.Metadata["email"])
		if err := s.subs.Upsert(ctx, record); err != nil {
			s.logger.Error().Err(err).Str("subscription_id", sub.ID).Msg("Failed to mirror subscription update")
			http.Error(w, "failed to update subscription", http.StatusInternalServerError)
			return
		}
	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			s.logger.Error().Err(err).Msg("Invalid customer.subscription.deleted payload")
			http.Error(w, "invalid subscription data", http.StatusBadRequest)
			return
		}
		if err := s.subs.UpdateStatus(ctx, sub.ID, model.SubscriptionStatusCanceled); err != nil {
			s.logger.Error().Err(err).Str("subscription_id", sub.ID).Msg("Failed to mark subscription canceled")
			http.Error(w, "failed to mark canceled", http.StatusInternalServerError)
			return
		}
	case "invoice.payment_failed":
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			s.logger.Error().Err(err).Msg("Invalid invoice.payment_failed payload")
			http.Error(w, "invalid invoice data", http.StatusBadRequest)
			return
		}
		subID := subscriptionIDFromInvoice(&invoice)
		if subID == "" {
			s.logger.Info().Str("invoice_id", invoice.ID).Msg("Invoice has no subscription, skipping")
			w.WriteHeader(http.StatusOK)
			return
		}
		if err := s.subs.UpdateStatus(ctx, subID, model.SubscriptionStatusPastDue); err != nil {
			s.logger.Error().Err(err).Str("subscription_id", subID).Msg("Failed to mark subscription past_due")
			http.Error(w, "failed to mark past_due", http.StatusInternalServerError)
			return
		}
	case "charge.refunded":
		var charge stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			s.logger.Error().Err(err).Msg("Invalid charge.refunded payload")
			http.Error(w, "invalid charge data", http.StatusBadRequest)
			return
		}
		if charge.PaymentIntent == nil || charge.PaymentIntent.ID == "" {
			s.logger.Warn().Str("charge_id", charge.ID).Msg("Refunded charge has no payment intent")
			w.WriteHeader(http.StatusOK)
			return
		}
		if _, err := s.refundSvc.SyncRefundStatus(ctx, charge.PaymentIntent.ID); err != nil {
			s.logger.Error().Err(err).Str("charge_id", charge.ID).Msg("Failed to sync refund status")
			http.Error(w, apperr.Message(err), apperr.HTTPStatus(err))
			return
		}
	default:
		s.logger.Warn().Str("event_type", string(event.Type)).Msg("Unhandled Stripe webhook event")
	}
	w.WriteHeader(http.StatusOK)
}

// handleSubscriptionCheckout fetches the full subscription object behind a
// completed subscription-mode checkout and mirrors it into the store.
func (s *StripeService) handleSubscriptionCheckout(ctx context.Context, cs *stripe.CheckoutSession) error {
	if cs.Subscription == nil || cs.Subscription.ID == "" {
		s.logger.Error().Str("session_id", cs.ID).Msg("Subscription checkout without subscription id")
		return nil
	}
	sub, err := s.stripe.GetSubscription(ctx, cs.Subscription.ID)
	if err != nil {
		return err
	}
	email := ""
	if cs.CustomerDetails != nil {
		email = cs.CustomerDetails.Email
	}
	record := subscriptionFromStripe(sub, cs.Metadata["user_id"], email)
	return s.subs.Upsert(ctx, record)
}

// subscriptionFromStripe maps the provider's subscription object onto the
// stored record. Period and price live on the first subscription item.
func subscriptionFromStripe(sub *stripe.Subscription, userID, email string) *model.Subscription {
	record := &model.Subscription{
		UserID:               userID,
		Email:                email,
		StripeSubscriptionID: sub.ID,
		Status:               string(sub.Status),
		Currency:             string(sub.Currency),
		CancelAtPeriodEnd:    sub.CancelAtPeriodEnd,
	}
	if sub.Customer != nil {
		record.StripeCustomerID = sub.Customer.ID
	}
	if len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		record.CurrentPeriodStart = time.Unix(item.CurrentPeriodStart, 0)
		record.CurrentPeriodEnd = time.Unix(item.CurrentPeriodEnd, 0)
		if item.Price != nil {
			record.StripePriceID = item.Price.ID
			record.Amount = item.Price.UnitAmount
			if item.Price.Recurring != nil {
				record.Interval = string(item.Price.Recurring.Interval)
			}
		}
	}
	if sub.TrialStart > 0 {
		t := time.Unix(sub.TrialStart, 0)
		record.TrialStart = &t
	}
	if sub.TrialEnd > 0 {
		t := time.Unix(sub.TrialEnd, 0)
		record.TrialEnd = &t
	}
	if sub.CanceledAt > 0 {
		t := time.Unix(sub.CanceledAt, 0)
		record.CanceledAt = &t
	}
	return record
}

func subscriptionIDFromInvoice(invoice *stripe.Invoice) string {
	if invoice.Parent != nil && invoice.Parent.SubscriptionDetails != nil &&
		invoice.Parent.SubscriptionDetails.Subscription != nil {
		return invoice.Parent.SubscriptionDetails.Subscription.ID
	}
	return ""
}
