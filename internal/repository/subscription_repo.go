package repository

import (
	"context"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SubscriptionRepository defines methods for accessing subscription records.
type SubscriptionRepository interface {
	// GetCurrent returns the newest subscription for the identity with one of
	// the given statuses, or nil, nil when none exists.
	GetCurrent(ctx context.Context, ref model.IdentityRef, statuses []string) (*model.Subscription, error)
	// Upsert creates or updates the record keyed by stripe_subscription_id.
	Upsert(ctx context.Context, s *model.Subscription) error
	SetCancelAtPeriodEnd(ctx context.Context, stripeSubscriptionID string, reason *string) error
	UpdateStatus(ctx context.Context, stripeSubscriptionID, status string) error
}

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

// NewSubscriptionRepo creates a new SubscriptionRepository.
func NewSubscriptionRepo(pool *pgxpool.Pool) SubscriptionRepository {
	return &subscriptionRepo{pool: pool}
}

const subscriptionColumns = `
    id, user_id, email, stripe_customer_id, stripe_subscription_id,
    stripe_price_id, status, billing_interval, amount, currency,
    trial_start, trial_end, current_period_start, current_period_end,
    cancel_at_period_end, canceled_at, cancel_reason, created_at, updated_at
`

func scanSubscription(row pgx.Row) (*model.Subscription, error) {
	var s model.Subscription
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.Email,
		&s.StripeCustomerID,
		&s.StripeSubscriptionID,
		&s.StripePriceID,
		&s.Status,
		&s.Interval,
		&s.Amount,
		&s.Currency,
		&s.TrialStart,
		&s.TrialEnd,
		&s.CurrentPeriodStart,
		&s.CurrentPeriodEnd,
		&s.CancelAtPeriodEnd,
		&s.CanceledAt,
		&s.CancelReason,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetCurrent maps each identity tag to one fixed query shape. Ties between
// multiple current records resolve to the most recently created one.
func (r *subscriptionRepo) GetCurrent(ctx context.Context, ref model.IdentityRef, statuses []string) (*model.Subscription, error) {
	var column string
	switch ref.Kind {
	case model.IdentityByUserID:
		column = "user_id"
	case model.IdentityByEmail:
		column = "email"
	default:
		return nil, fmt.Errorf("unsupported identity kind: %d", ref.Kind)
	}

	q := `SELECT ` + subscriptionColumns + `
        FROM subscriptions
        WHERE ` + column + ` = $1 AND status = ANY($2)
        ORDER BY created_at DESC
        LIMIT 1`
	s, err := scanSubscription(r.pool.QueryRow(ctx, q, ref.Value, statuses))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch current subscription by %s: %w", column, err)
	}
	return s, nil
}

func (r *subscriptionRepo) Upsert(ctx context.Context, s *model.Subscription) error {
	// A webhook replay may arrive without user metadata; keep the stored
	// identity fields in that case.
	const q = `
        INSERT INTO subscriptions (
            user_id, email, stripe_customer_id, stripe_subscription_id,
            stripe_price_id, status, billing_interval, amount, currency,
            trial_start, trial_end, current_period_start, current_period_end,
            cancel_at_period_end, canceled_at, created_at, updated_at
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW(), NOW())
        ON CONFLICT (stripe_subscription_id) DO UPDATE
        SET user_id = COALESCE(NULLIF(EXCLUDED.user_id, ''), subscriptions.user_id),
            email = COALESCE(NULLIF(EXCLUDED.email, ''), subscriptions.email),
            stripe_customer_id = EXCLUDED.stripe_customer_id,
            stripe_price_id = EXCLUDED.stripe_price_id,
            status = EXCLUDED.status,
            billing_interval = EXCLUDED.billing_interval,
            amount = EXCLUDED.amount,
            currency = EXCLUDED.currency,
            trial_start = EXCLUDED.trial_start,
            trial_end = EXCLUDED.trial_end,
            current_period_start = EXCLUDED.current_period_start,
            current_period_end = EXCLUDED.current_period_end,
            cancel_at_period_end = EXCLUDED.cancel_at_period_end,
            canceled_at = EXCLUDED.canceled_at,
            updated_at = NOW()
    `
	_, err := r.pool.Exec(ctx, q,
		s.UserID,
		s.Email,
		s.StripeCustomerID,
		s.StripeSubscriptionID,
		s.StripePriceID,
		s.Status,
		s.Interval,
		s.Amount,
		s.Currency,
		s.TrialStart,
		s.TrialEnd,
		s.CurrentPeriodStart,
		s.CurrentPeriodEnd,
		s.CancelAtPeriodEnd,
		s.CanceledAt,
	)
	if err != nil {
		return fmt.Errorf("upsert subscription %s: %w", s.StripeSubscriptionID, err)
	}
	return nil
}

func (r *subscriptionRepo) SetCancelAtPeriodEnd(ctx context.Context, stripeSubscriptionID string, reason *string) error {
	const q = `
        UPDATE subscriptions
        SET cancel_at_period_end = TRUE,
            canceled_at = NOW(),
            cancel_reason = COALESCE($2, cancel_reason),
            updated_at = NOW()
        WHERE stripe_subscription_id = $1
    `
	if _, err := r.pool.Exec(ctx, q, stripeSubscriptionID, reason); err != nil {
		return fmt.Errorf("set cancel_at_period_end for %s: %w", stripeSubscriptionID, err)
	}
	return nil
}

func (r *subscriptionRepo) UpdateStatus(ctx context.Context, stripeSubscriptionID, status string) error {
	const q = `
        UPDATE subscriptions
        SET status = $2, updated_at = NOW()
        WHERE stripe_subscription_id = $1
    `
	if _, err := r.pool.Exec(ctx, q, stripeSubscriptionID, status); err != nil {
		return fmt.Errorf("update status for %s: %w", stripeSubscriptionID, err)
	}
	return nil
}
