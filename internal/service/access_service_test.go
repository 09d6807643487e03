package service

import (
	"context"
	"testing"
	"time"

	"app/internal/apperr"
	"app/internal/model"

	"github.com/rs/zerolog"
)

func activePurchase(token string) model.Purchase {
	return model.Purchase{
		ID:              "p1",
		Email:           "buyer@example.com",
		GuideID:         "pcos",
		GuideName:       "The Complete PCOS Guide",
		AccessToken:     token,
		StripeSessionID: "cs_1",
		Status:          model.PurchaseStatusActive,
	}
}

func TestValidateTokenKnownActive(t *testing.T) {
	repo := &fakePurchaseRepo{}
	repo.add(activePurchase("tok1"))
	svc := NewAccessService(repo, &fakeSubscriptionRepo{}, &fakeIdentityService{}, zerolog.Nop())

	result, err := svc.ValidateToken(context.Background(), "tok1", "pcos")
	if err != nil {
		t.Fatalf("ValidateToken returned error: %v", err)
	}
	if !result.Valid {
		t.Fatal("expected valid result for active token")
	}
	if result.GuideName != "The Complete PCOS Guide" {
		t.Fatalf("expected guide name, got %q", result.GuideName)
	}
	if got := repo.get("p1"); got.AccessCount != 1 {
		t.Fatalf("expected access count stamped to 1, got %d", got.AccessCount)
	}
}

func TestValidateTokenUnknown(t *testing.T) {
	svc := NewAccessService(&fakePurchaseRepo{}, &fakeSubscriptionRepo{}, &fakeIdentityService{}, zerolog.Nop())

	result, err := svc.ValidateToken(context.Background(), "nope", "pcos")
	if err != nil {
		t.Fatalf("unknown token must not be an error: %v", err)
	}
	if result.Valid {
		t.Fatal("expected invalid result for unknown token")
	}
	if result.Reason != "" {
		t.Fatalf("unknown token carries no reason, got %q", result.Reason)
	}
}

func TestValidateTokenWrongGuide(t *testing.T) {
	repo := &fakePurchaseRepo{}
	repo.add(activePurchase("tok1"))
	svc := NewAccessService(repo, &fakeSubscriptionRepo{}, &fakeIdentityService{}, zerolog.Nop())

	result, err := svc.ValidateToken(context.Background(), "tok1", "thyroid")
	if err != nil {
		t.Fatalf("ValidateToken returned error: %v", err)
	}
	if result.Valid {
		t.Fatal("a token is scoped to one guide; wrong guide must be invalid")
	}
}

func TestValidateTokenRefunded(t *testing.T) {
	repo := &fakePurchaseRepo{}
	p := activePurchase("tok1")
	p.Status = model.PurchaseStatusRefunded
	repo.add(p)
	svc := NewAccessService(repo, &fakeSubscriptionRepo{}, &fakeIdentityService{}, zerolog.Nop())

	result, err := svc.ValidateToken(context.Background(), "tok1", "pcos")
	if err != nil {
		t.Fatalf("ValidateToken returned error: %v", err)
	}
	if result.Valid {
		t.Fatal("refunded purchase must not validate")
	}
	if result.Reason != ReasonRevoked {
		t.Fatalf("expected reason %q, got %q", ReasonRevoked, result.Reason)
	}
	if got := repo.get("p1"); got.AccessCount != 0 {
		t.Fatal("revoked token must not stamp access")
	}
}

func TestValidateTokenMissingArgs(t *testing.T) {
	svc := NewAccessService(&fakePurchaseRepo{}, &fakeSubscriptionRepo{}, &fakeIdentityService{}, zerolog.Nop())
	if _, err := svc.ValidateToken(context.Background(), "", "pcos"); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for empty token, got %v", err)
	}
	if _, err := svc.ValidateToken(context.Background(), "tok1", ""); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for empty guide, got %v", err)
	}
}

func TestHasAccessRequiresIdentity(t *testing.T) {
	subs := &fakeSubscriptionRepo{}
	svc := NewAccessService(&fakePurchaseRepo{}, subs, &fakeIdentityService{}, zerolog.Nop())

	_, err := svc.HasAccess(context.Background(), "", "", "pcos")
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for missing identity, got %v", err)
	}
}

func TestHasAccessActiveSubscription(t *testing.T) {
	subs := &fakeSubscriptionRepo{}
	end := time.Now().Add(20 * 24 * time.Hour)
	subs.add(model.Subscription{
		UserID:               "user-1",
		StripeSubscriptionID: "sub_1",
		Status:               model.SubscriptionStatusActive,
		CurrentPeriodEnd:     end,
	})
	svc := NewAccessService(&fakePurchaseRepo{}, subs, &fakeIdentityService{}, zerolog.Nop())

	decision, err := svc.HasAccess(context.Background(), "user-1", "", "")
	if err != nil {
		t.Fatalf("HasAccess returned error: %v", err)
	}
	if !decision.HasAccess {
		t.Fatal("expected access for active subscription")
	}
	if decision.AccessType != AccessTypeSubscription {
		t.Fatalf("expected access type %q, got %q", AccessTypeSubscription, decision.AccessType)
	}
	if decision.ValidUntil == nil || !decision.ValidUntil.Equal(end) {
		t.Fatalf("expected validUntil %v, got %v", end, decision.ValidUntil)
	}
}

func TestHasAccessExpiredPeriodDeniesDespiteStatus(t *testing.T) {
	subs := &fakeSubscriptionRepo{}
	subs.add(model.Subscription{
		UserID:               "user-1",
		StripeSubscriptionID: "sub_1",
		Status:               model.SubscriptionStatusActive,
		CurrentPeriodEnd:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	svc := NewAccessService(&fakePurchaseRepo{}, subs, &fakeIdentityService{}, zerolog.Nop()).(*accessService)
	svc.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 1, time.UTC) }

	decision, err := svc.HasAccess(context.Background(), "user-1", "", "")
	if err != nil {
		t.Fatalf("HasAccess returned error: %v", err)
	}
	if decision.HasAccess {
		t.Fatal("a lapsed period must deny access even while status reads active")
	}
	if decision.Reason != ReasonNoActiveSubscription {
		t.Fatalf("expected reason %q, got %q", ReasonNoActiveSubscription, decision.Reason)
	}
}

func TestHasAccessCanceledStatusDenied(t *testing.T) {
	subs := &fakeSubscriptionRepo{}
	subs.add(model.Subscription{
		UserID:               "user-1",
		StripeSubscriptionID: "sub_1",
		Status:               model.SubscriptionStatusCanceled,
		CurrentPeriodEnd:     time.Now().Add(24 * time.Hour),
	})
	svc := NewAccessService(&fakePurchaseRepo{}, subs, &fakeIdentityService{}, zerolog.Nop())

	decision, err := svc.HasAccess(context.Background(), "user-1", "", "")
	if err != nil {
		t.Fatalf("HasAccess returned error: %v", err)
	}
	if decision.HasAccess {
		t.Fatal("canceled subscription must not grant access")
	}
}

func TestHasAccessLegacyPurchaseFallback(t *testing.T) {
	repo := &fakePurchaseRepo{}
	repo.add(activePurchase("tok1"))
	svc := NewAccessService(repo, &fakeSubscriptionRepo{}, &fakeIdentityService{}, zerolog.Nop())

	decision, err := svc.HasAccess(context.Background(), "", "buyer@example.com", "pcos")
	if err != nil {
		t.Fatalf("HasAccess returned error: %v", err)
	}
	if !decision.HasAccess {
		t.Fatal("expected legacy purchase to grant access")
	}
	if decision.AccessType != AccessTypeLegacyPurchase {
		t.Fatalf("expected access type %q, got %q", AccessTypeLegacyPurchase, decision.AccessType)
	}
	if decision.ValidUntil != nil {
		t.Fatal("legacy purchases carry no expiry")
	}
}

func TestHasAccessLegacyPurchaseNeedsGuideID(t *testing.T) {
	repo := &fakePurchaseRepo{}
	repo.add(activePurchase("tok1"))
	svc := NewAccessService(repo, &fakeSubscriptionRepo{}, &fakeIdentityService{}, zerolog.Nop())

	decision, err := svc.HasAccess(context.Background(), "", "buyer@example.com", "")
	if err != nil {
		t.Fatalf("HasAccess returned error: %v", err)
	}
	if decision.HasAccess {
		t.Fatal("a one-time purchase must not grant catalog-wide access")
	}
}

func TestHasAccessSubscriptionBeatsLegacyPurchase(t *testing.T) {
	repo := &fakePurchaseRepo{}
	repo.add(activePurchase("tok1"))
	subs := &fakeSubscriptionRepo{}
	end := time.Now().Add(24 * time.Hour)
	subs.add(model.Subscription{
		Email:                "buyer@example.com",
		StripeSubscriptionID: "sub_1",
		Status:               model.SubscriptionStatusTrialing,
		CurrentPeriodEnd:     end,
	})
	svc := NewAccessService(repo, subs, &fakeIdentityService{}, zerolog.Nop())

	decision, err := svc.HasAccess(context.Background(), "", "buyer@example.com", "pcos")
	if err != nil {
		t.Fatalf("HasAccess returned error: %v", err)
	}
	if decision.AccessType != AccessTypeSubscription {
		t.Fatalf("subscription must take priority, got %q", decision.AccessType)
	}
}

func TestHasAccessResolvesEmailFromUserID(t *testing.T) {
	repo := &fakePurchaseRepo{}
	repo.add(activePurchase("tok1"))
	identity := &fakeIdentityService{emails: map[string]string{"user-1": "buyer@example.com"}}
	svc := NewAccessService(repo, &fakeSubscriptionRepo{}, identity, zerolog.Nop())

	decision, err := svc.HasAccess(context.Background(), "user-1", "", "pcos")
	if err != nil {
		t.Fatalf("HasAccess returned error: %v", err)
	}
	if !decision.HasAccess {
		t.Fatal("expected purchase found via resolved email")
	}
	if decision.AccessType != AccessTypeLegacyPurchase {
		t.Fatalf("expected legacy purchase grant, got %q", decision.AccessType)
	}
}
