package model

import "time"

// Subscription statuses mirror the Stripe lifecycle.
const (
	SubscriptionStatusActive            = "active"
	SubscriptionStatusTrialing          = "trialing"
	SubscriptionStatusPastDue           = "past_due"
	SubscriptionStatusCanceled          = "canceled"
	SubscriptionStatusIncomplete        = "incomplete"
	SubscriptionStatusIncompleteExpired = "incomplete_expired"
	SubscriptionStatusUnpaid            = "unpaid"
)

// Subscription represents a recurring entitlement to the entire guide catalog.
// Rows are retained for history; cancellation flips flags rather than deleting.
type Subscription struct {
	ID                   string     `db:"id" json:"id"`
	UserID               string     `db:"user_id" json:"user_id"`
	Email                string     `db:"email" json:"email"`
	StripeCustomerID     string     `db:"stripe_customer_id" json:"stripe_customer_id"`
	StripeSubscriptionID string     `db:"stripe_subscription_id" json:"stripe_subscription_id"`
	StripePriceID        string     `db:"stripe_price_id" json:"stripe_price_id"`
	Status               string     `db:"status" json:"status"`
	Interval             string     `db:"billing_interval" json:"interval"`
	Amount               int64      `db:"amount" json:"amount"`
	Currency             string     `db:"currency" json:"currency"`
	TrialStart           *time.Time `db:"trial_start" json:"trial_start,omitempty"`
	TrialEnd             *time.Time `db:"trial_end" json:"trial_end,omitempty"`
	CurrentPeriodStart   time.Time  `db:"current_period_start" json:"current_period_start"`
	CurrentPeriodEnd     time.Time  `db:"current_period_end" json:"current_period_end"`
	CancelAtPeriodEnd    bool       `db:"cancel_at_period_end" json:"cancel_at_period_end"`
	CanceledAt           *time.Time `db:"canceled_at" json:"canceled_at,omitempty"`
	CancelReason         *string    `db:"cancel_reason" json:"cancel_reason,omitempty"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}
