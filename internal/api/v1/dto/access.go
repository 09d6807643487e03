package dto

import "time"

// ValidateAccessRequest checks a token/guide pair.
type ValidateAccessRequest struct {
	AccessToken string `json:"accessToken" validate:"required"`
	GuideID     string `json:"guideId" validate:"required"`
}

// ValidateAccessResponse reports whether a token grants access to the guide.
type ValidateAccessResponse struct {
	Valid     bool   `json:"valid"`
	GuideID   string `json:"guideId,omitempty"`
	GuideName string `json:"guideName,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// SubscriptionAccessRequest evaluates identity-based access. At least one of
// userId and email is required.
type SubscriptionAccessRequest struct {
	UserID  string `json:"userId"`
	Email   string `json:"email" validate:"omitempty,email"`
	GuideID string `json:"guideId"`
}

// SubscriptionAccessResponse reports the current entitlement for an identity.
type SubscriptionAccessResponse struct {
	HasAccess  bool       `json:"hasAccess"`
	AccessType string     `json:"accessType,omitempty"`
	ValidUntil *time.Time `json:"validUntil,omitempty"`
	Reason     string     `json:"reason,omitempty"`
}

// DownloadRequest exchanges an entitlement for a short-lived file URL. The
// caller presents either an access token or a bearer token on the request.
type DownloadRequest struct {
	AccessToken string `json:"accessToken" validate:"omitempty"`
	GuideID     string `json:"guideId" validate:"required"`
}

// DownloadResponse carries the presigned guide URL.
type DownloadResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}
