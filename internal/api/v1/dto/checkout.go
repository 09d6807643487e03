package dto

// CheckoutReconcileRequest asks for the purchases behind a completed checkout
// session.
type CheckoutReconcileRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
}

// PurchaseGrantDTO is one guide entitlement returned after reconciliation.
type PurchaseGrantDTO struct {
	GuideID     string `json:"guideId"`
	GuideName   string `json:"guideName"`
	AccessToken string `json:"accessToken"`
}

// CheckoutReconcileResponse returns the full token set for a session.
type CheckoutReconcileResponse struct {
	Purchases []PurchaseGrantDTO `json:"purchases"`
}
