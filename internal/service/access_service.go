package service

import (
	"context"
	"time"

	"app/internal/apperr"
	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

// Access types reported by HasAccess.
const (
	AccessTypeSubscription   = "subscription"
	AccessTypeLegacyPurchase = "legacy_purchase"
)

// Denial reasons. Token revocation and missing entitlements are expected
// outcomes, not errors.
const (
	ReasonRevoked              = "revoked"
	ReasonNoActiveSubscription = "no_active_subscription"
)

// TokenValidation is the outcome of validating an access token for one guide.
type TokenValidation struct {
	Valid     bool   `json:"valid"`
	GuideID   string `json:"guide_id,omitempty"`
	GuideName string `json:"guide_name,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// AccessDecision is the outcome of evaluating identity-based access.
type AccessDecision struct {
	HasAccess  bool       `json:"has_access"`
	AccessType string     `json:"access_type,omitempty"`
	ValidUntil *time.Time `json:"valid_until,omitempty"`
	Reason     string     `json:"reason,omitempty"`
}

// AccessService answers "does this identity currently have access to this
// content". Reads go straight to the store so revocations are observed on the
// next check.
type AccessService interface {
	ValidateToken(ctx context.Context, accessToken, guideID string) (*TokenValidation, error)
	HasAccess(ctx context.Context, userID, email, guideID string) (*AccessDecision, error)
}

type accessService struct {
	purchases repository.PurchaseRepository
	subs      repository.SubscriptionRepository
	identity  IdentityService
	logger    zerolog.Logger
	now       func() time.Time
}

// NewAccessService creates a new AccessService with a scoped logger.
func NewAccessService(
	purchases repository.PurchaseRepository,
	subs repository.SubscriptionRepository,
	identity IdentityService,
	logger zerolog.Logger,
) AccessService {
	return &accessService{
		purchases: purchases,
		subs:      subs,
		identity:  identity,
		logger:    logger.With().Str("service", "AccessService").Logger(),
		now:       time.Now,
	}
}

// ValidateToken checks a token/guide pair. An unknown pair is a plain
// invalid result, not a fault.
func (s *accessService) ValidateToken(ctx context.Context, accessToken, guideID string) (*TokenValidation, error) {
	if accessToken == "" || guideID == "" {
		return nil, apperr.E(apperr.KindValidation, "accessToken and guideId are required")
	}
	p, err := s.purchases.GetByTokenAndGuide(ctx, accessToken, guideID)
	if err != nil {
		s.logger.Error().Err(err).Str("guide_id", guideID).Msg("Failed to look up access token")
		return nil, apperr.Wrap(apperr.KindExternal, "look up access token", err)
	}
	if p == nil {
		return &TokenValidation{Valid: false}, nil
	}
	if p.Status != model.PurchaseStatusActive {
		return &TokenValidation{Valid: false, Reason: ReasonRevoked}, nil
	}

	// Best-effort usage stamp; a failure here must not block access.
	if err := s.purchases.RecordAccess(ctx, p.ID); err != nil {
		s.logger.Warn().Err(err).Str("purchase_id", p.ID).Msg("Failed to record access")
	}

	return &TokenValidation{Valid: true, GuideID: p.GuideID, GuideName: p.GuideName}, nil
}

// HasAccess evaluates, in priority order, active subscription then legacy
// one-time purchase. Subscriptions are the canonical path; legacy purchases
// require a specific guide id and never grant catalog-wide access.
func (s *accessService) HasAccess(ctx context.Context, userID, email, guideID string) (*AccessDecision, error) {
	if userID == "" && email == "" {
		return nil, apperr.E(apperr.KindValidation, "userId or email is required")
	}

	if email == "" && userID != "" {
		// Best-effort: a failed lookup falls through to the userId query.
		resolved, err := s.identity.EmailForUser(ctx, userID)
		if err == nil {
			email = resolved
		}
	}

	ref := model.ByEmail(email)
	if userID != "" {
		ref = model.ByUserID(userID)
	}
	sub, err := s.subs.GetCurrent(ctx, ref, []string{
		model.SubscriptionStatusActive,
		model.SubscriptionStatusTrialing,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to query current subscription")
		return nil, apperr.Wrap(apperr.KindExternal, "query subscription", err)
	}
	// The stored status alone is not trusted: access requires the paid period
	// to still be running at evaluation time.
	if sub != nil && sub.CurrentPeriodEnd.After(s.now()) {
		validUntil := sub.CurrentPeriodEnd
		return &AccessDecision{
			HasAccess:  true,
			AccessType: AccessTypeSubscription,
			ValidUntil: &validUntil,
		}, nil
	}

	if guideID != "" && email != "" {
		p, err := s.purchases.FindActiveByEmailAndGuide(ctx, email, guideID)
		if err != nil {
			s.logger.Error().Err(err).Str("guide_id", guideID).Msg("Failed to query legacy purchase")
			return nil, apperr.Wrap(apperr.KindExternal, "query purchase", err)
		}
		if p != nil {
			return &AccessDecision{HasAccess: true, AccessType: AccessTypeLegacyPurchase}, nil
		}
	}

	return &AccessDecision{HasAccess: false, Reason: ReasonNoActiveSubscription}, nil
}
