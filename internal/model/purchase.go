package model

import "time"

// Purchase statuses. A refunded purchase is kept for history and never deleted.
const (
	PurchaseStatusActive   = "active"
	PurchaseStatusRefunded = "refunded"
)

// Purchase represents a one-time entitlement to a single guide, granted by an
// access token minted at checkout.
type Purchase struct {
	ID                    string     `db:"id" json:"id"`
	Email                 string     `db:"email" json:"email"`
	GuideID               string     `db:"guide_id" json:"guide_id"`
	GuideName             string     `db:"guide_name" json:"guide_name"`
	AccessToken           string     `db:"access_token" json:"access_token"`
	StripeSessionID       string     `db:"stripe_session_id" json:"stripe_session_id"`
	StripePaymentIntentID *string    `db:"stripe_payment_intent_id" json:"stripe_payment_intent_id,omitempty"`
	Amount                int64      `db:"amount" json:"amount"`
	Currency              string     `db:"currency" json:"currency"`
	IsBundle              bool       `db:"is_bundle" json:"is_bundle"`
	Status                string     `db:"status" json:"status"`
	PurchasedAt           time.Time  `db:"purchased_at" json:"purchased_at"`
	RefundedAt            *time.Time `db:"refunded_at" json:"refunded_at,omitempty"`
	LastAccessedAt        *time.Time `db:"last_accessed_at" json:"last_accessed_at,omitempty"`
	AccessCount           int        `db:"access_count" json:"access_count"`
}
