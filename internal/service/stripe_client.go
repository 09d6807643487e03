package service

import (
	"context"
	"errors"
	"net/http"

	"app/internal/apperr"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

// StripeClient is the slice of the Stripe API this service consumes. The
// concrete client is injected at construction time so request handlers never
// touch package-level state.
type StripeClient interface {
	GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error)
	GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error)
	GetCharge(ctx context.Context, id string) (*stripe.Charge, error)
	CreateRefund(ctx context.Context, paymentIntentID, reason string) (*stripe.Refund, error)
	GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error)
	CancelAtPeriodEnd(ctx context.Context, id string) (*stripe.Subscription, error)
}

type stripeClient struct {
	api *client.API
}

// NewStripeClient builds a StripeClient bound to the given secret key.
func NewStripeClient(secretKey string) StripeClient {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &stripeClient{api: api}
}

func (c *stripeClient) GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	return c.api.CheckoutSessions.Get(id, &stripe.CheckoutSessionParams{
		Params: stripe.Params{Context: ctx},
	})
}

func (c *stripeClient) GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	return c.api.PaymentIntents.Get(id, &stripe.PaymentIntentParams{
		Params: stripe.Params{Context: ctx},
	})
}

func (c *stripeClient) GetCharge(ctx context.Context, id string) (*stripe.Charge, error) {
	return c.api.Charges.Get(id, &stripe.ChargeParams{
		Params: stripe.Params{Context: ctx},
	})
}

func (c *stripeClient) CreateRefund(ctx context.Context, paymentIntentID, reason string) (*stripe.Refund, error) {
	params := &stripe.RefundParams{
		Params:        stripe.Params{Context: ctx},
		PaymentIntent: stripe.String(paymentIntentID),
	}
	if reason != "" {
		params.Reason = stripe.String(reason)
	}
	return c.api.Refunds.New(params)
}

func (c *stripeClient) GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	return c.api.Subscriptions.Get(id, &stripe.SubscriptionParams{
		Params: stripe.Params{Context: ctx},
	})
}

func (c *stripeClient) CancelAtPeriodEnd(ctx context.Context, id string) (*stripe.Subscription, error) {
	return c.api.Subscriptions.Update(id, &stripe.SubscriptionParams{
		Params:            stripe.Params{Context: ctx},
		CancelAtPeriodEnd: stripe.Bool(true),
	})
}

// mapStripeErr classifies a provider error: invalid or unknown ids surface as
// client-facing failures, everything else is a transient service failure.
func mapStripeErr(msg string, err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		switch {
		case se.HTTPStatusCode == http.StatusNotFound:
			return apperr.Wrap(apperr.KindNotFound, msg+": not found", err)
		case se.Type == stripe.ErrorTypeInvalidRequest:
			return apperr.Wrap(apperr.KindValidation, msg+": invalid request", err)
		}
	}
	return apperr.Wrap(apperr.KindExternal, msg+" failed", err)
}
