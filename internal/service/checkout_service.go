package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"app/internal/apperr"
	"app/internal/catalog"
	"app/internal/model"
	"app/internal/pubsub"
	"app/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
)

// PurchaseGrant is one guide entitlement produced by checkout reconciliation.
type PurchaseGrant struct {
	GuideID     string `json:"guide_id"`
	GuideName   string `json:"guide_name"`
	AccessToken string `json:"access_token"`
}

// ReconcileResult is the full set of grants for a checkout session. Created is
// false when the session was already fully reconciled.
type ReconcileResult struct {
	Purchases []PurchaseGrant
	Created   bool
}

// CheckoutService converts completed checkout sessions into durable purchase
// records, idempotently under webhook replays and client re-fetches.
type CheckoutService interface {
	Reconcile(ctx context.Context, sessionID string) (*ReconcileResult, error)
	// ReconcileSession reconciles an already-fetched session (webhook path).
	ReconcileSession(ctx context.Context, sess *stripe.CheckoutSession) (*ReconcileResult, error)
}

type checkoutService struct {
	stripe      StripeClient
	repo        repository.PurchaseRepository
	publisher   pubsub.Publisher
	eventsTopic string
	logger      zerolog.Logger
}

// NewCheckoutService creates a new CheckoutService with a scoped logger.
func NewCheckoutService(
	stripeClient StripeClient,
	repo repository.PurchaseRepository,
	publisher pubsub.Publisher,
	eventsTopic string,
	logger zerolog.Logger,
) CheckoutService {
	return &checkoutService{
		stripe:      stripeClient,
		repo:        repo,
		publisher:   publisher,
		eventsTopic: eventsTopic,
		logger:      logger.With().Str("service", "CheckoutService").Logger(),
	}
}

func (s *checkoutService) Reconcile(ctx context.Context, sessionID string) (*ReconcileResult, error) {
	if sessionID == "" {
		return nil, apperr.E(apperr.KindValidation, "sessionId is required")
	}
	sess, err := s.stripe.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("Failed to fetch checkout session")
		return nil, mapStripeErr("fetch checkout session", err)
	}
	return s.ReconcileSession(ctx, sess)
}

func (s *checkoutService) ReconcileSession(ctx context.Context, sess *stripe.CheckoutSession) (*ReconcileResult, error) {
	email := sessionEmail(sess)
	guideIDs, err := parseGuideIDs(sess.Metadata)
	if err != nil {
		return nil, err
	}
	// A malformed session is fatal; retrying the same session cannot succeed.
	if email == "" || len(guideIDs) == 0 {
		s.logger.Error().Str("session_id", sess.ID).Msg("Checkout session missing email or guide ids")
		return nil, apperr.E(apperr.KindValidation, "checkout session is missing email or guide ids")
	}

	existing, err := s.repo.ListBySession(ctx, sess.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindExternal, "query purchases", err)
	}
	seen := make(map[string]bool, len(existing))
	for _, p := range existing {
		seen[p.GuideID] = true
	}

	isBundle := sess.Metadata["is_bundle"] == "true"
	titleFallback := sess.Metadata["guide_title"]
	var paymentIntentID *string
	if sess.PaymentIntent != nil && sess.PaymentIntent.ID != "" {
		paymentIntentID = stripe.String(sess.PaymentIntent.ID)
	}

	created := false
	for _, guideID := range guideIDs {
		if seen[guideID] {
			continue
		}
		token, err := mintAccessToken()
		if err != nil {
			return nil, apperr.Wrap(apperr.KindExternal, "mint access token", err)
		}
		p := &model.Purchase{
			Email:                 email,
			GuideID:               guideID,
			GuideName:             catalog.ResolveName(guideID, titleFallback),
			AccessToken:           token,
			StripeSessionID:       sess.ID,
			StripePaymentIntentID: paymentIntentID,
			Amount:                sess.AmountTotal,
			Currency:              string(sess.Currency),
			IsBundle:              isBundle,
			Status:                model.PurchaseStatusActive,
		}
		ok, err := s.repo.CreateIfAbsent(ctx, p)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindExternal, "create purchase", err)
		}
		if ok {
			created = true
		}
		// When the insert lost a race with a concurrent reconcile, the
		// winner's row is picked up by the re-read below.
	}

	// Re-read so replays and race losers return the winner's token set.
	all, err := s.repo.ListBySession(ctx, sess.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindExternal, "query purchases", err)
	}
	grants := make([]PurchaseGrant, 0, len(all))
	for _, p := range all {
		grants = append(grants, PurchaseGrant{
			GuideID:     p.GuideID,
			GuideName:   p.GuideName,
			AccessToken: p.AccessToken,
		})
	}

	if created {
		s.publishPurchaseEvent(ctx, sess.ID, email, grants)
	}

	return &ReconcileResult{Purchases: grants, Created: created}, nil
}

// publishPurchaseEvent notifies the guide-delivery mailer. Best-effort: a
// publish failure never blocks the purchase response.
func (s *checkoutService) publishPurchaseEvent(ctx context.Context, sessionID, email string, grants []PurchaseGrant) {
	if s.publisher == nil {
		return
	}
	payload, err := json.Marshal(map[string]any{
		"type":       "purchase.completed",
		"session_id": sessionID,
		"email":      email,
		"purchases":  grants,
		"at":         time.Now().UTC(),
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode purchase event")
		return
	}
	if _, err := s.publisher.Publish(ctx, s.eventsTopic, payload); err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("Failed to publish purchase event")
	}
}

func sessionEmail(sess *stripe.CheckoutSession) string {
	if sess.CustomerDetails != nil && sess.CustomerDetails.Email != "" {
		return sess.CustomerDetails.Email
	}
	return sess.CustomerEmail
}

func parseGuideIDs(metadata map[string]string) ([]string, error) {
	raw, ok := metadata["guide_ids"]
	if !ok || raw == "" {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "guide_ids metadata is not a JSON list", err)
	}
	return ids, nil
}

// mintAccessToken returns 256 bits from crypto/rand as lowercase hex.
func mintAccessToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
