package dto

import "time"

// SubscriptionCancelResponse confirms a cancellation effective at period end.
type SubscriptionCancelResponse struct {
	PeriodEnd time.Time `json:"periodEnd"`
}
