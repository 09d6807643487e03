package dto

// RefundCheckRequest asks whether the provider shows a refund for a payment.
type RefundCheckRequest struct {
	PaymentIntentID string `json:"paymentIntentId" validate:"required"`
}

// RefundCheckResponse reports one refund reconciliation pass.
type RefundCheckResponse struct {
	WasRefunded   bool  `json:"wasRefunded"`
	Updated       int   `json:"updated"`
	PurchaseCount int   `json:"purchaseCount"`
	RefundAmount  int64 `json:"refundAmount,omitempty"`
}

// RefundCreateRequest issues a provider-side refund.
type RefundCreateRequest struct {
	PaymentIntentID string `json:"paymentIntentId" validate:"required"`
	Reason          string `json:"reason,omitempty"`
}

// RefundCreateResponse is the provider's view of the new refund.
type RefundCreateResponse struct {
	RefundID string `json:"refundId"`
	Amount   int64  `json:"amount"`
	Status   string `json:"status"`
}
