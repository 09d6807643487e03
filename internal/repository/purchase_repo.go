package repository

import (
	"context"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PurchaseRepository defines methods for accessing one-time purchase records.
type PurchaseRepository interface {
	ListBySession(ctx context.Context, sessionID string) ([]model.Purchase, error)
	// CreateIfAbsent inserts the purchase unless a record for the same
	// (stripe_session_id, guide_id) pair already exists. Returns whether a row
	// was created.
	CreateIfAbsent(ctx context.Context, p *model.Purchase) (bool, error)
	// GetByTokenAndGuide returns nil, nil when no record matches.
	GetByTokenAndGuide(ctx context.Context, accessToken, guideID string) (*model.Purchase, error)
	RecordAccess(ctx context.Context, id string) error
	FindActiveByEmailAndGuide(ctx context.Context, email, guideID string) (*model.Purchase, error)
	ListByPaymentIntent(ctx context.Context, paymentIntentID string) ([]model.Purchase, error)
	// MarkRefunded flips a record to refunded. Returns whether the record was
	// still active (re-runs on an already-refunded record report false).
	MarkRefunded(ctx context.Context, id string) (bool, error)
}

type purchaseRepo struct {
	pool *pgxpool.Pool
}

// NewPurchaseRepo creates a new PurchaseRepository.
func NewPurchaseRepo(pool *pgxpool.Pool) PurchaseRepository {
	return &purchaseRepo{pool: pool}
}

const purchaseColumns = `
    id, email, guide_id, guide_name, access_token, stripe_session_id,
    stripe_payment_intent_id, amount, currency, is_bundle, status,
    purchased_at, refunded_at, last_accessed_at, access_count
`

func scanPurchase(row pgx.Row) (*model.Purchase, error) {
	var p model.Purchase
	err := row.Scan(
		&p.ID,
		&p.Email,
		&p.GuideID,
		&p.GuideName,
		&p.AccessToken,
		&p.StripeSessionID,
		&p.StripePaymentIntentID,
		&p.Amount,
		&p.Currency,
		&p.IsBundle,
		&p.Status,
		&p.PurchasedAt,
		&p.RefundedAt,
		&p.LastAccessedAt,
		&p.AccessCount,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *purchaseRepo) ListBySession(ctx context.Context, sessionID string) ([]model.Purchase, error) {
	q := `SELECT ` + purchaseColumns + ` FROM purchases WHERE stripe_session_id = $1 ORDER BY guide_id`
	rows, err := r.pool.Query(ctx, q, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list purchases for session %s: %w", sessionID, err)
	}
	defer rows.Close()

	var out []model.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan purchase for session %s: %w", sessionID, err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// CreateIfAbsent relies on the UNIQUE (stripe_session_id, guide_id) constraint,
// so concurrent reconcile calls for the same session cannot create duplicates.
func (r *purchaseRepo) CreateIfAbsent(ctx context.Context, p *model.Purchase) (bool, error) {
	const q = `
        INSERT INTO purchases (
            email, guide_id, guide_name, access_token, stripe_session_id,
            stripe_payment_intent_id, amount, currency, is_bundle, status,
            purchased_at, access_count
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), 0)
        ON CONFLICT (stripe_session_id, guide_id) DO NOTHING
    `
	tag, err := r.pool.Exec(ctx, q,
		p.Email,
		p.GuideID,
		p.GuideName,
		p.AccessToken,
		p.StripeSessionID,
		p.StripePaymentIntentID,
		p.Amount,
		p.Currency,
		p.IsBundle,
		p.Status,
	)
	if err != nil {
		return false, fmt.Errorf("create purchase %s/%s: %w", p.StripeSessionID, p.GuideID, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *purchaseRepo) GetByTokenAndGuide(ctx context.Context, accessToken, guideID string) (*model.Purchase, error) {
	q := `SELECT ` + purchaseColumns + ` FROM purchases WHERE access_token = $1 AND guide_id = $2`
	p, err := scanPurchase(r.pool.QueryRow(ctx, q, accessToken, guideID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch purchase by token: %w", err)
	}
	return p, nil
}

func (r *purchaseRepo) RecordAccess(ctx context.Context, id string) error {
	const q = `
        UPDATE purchases
        SET access_count = access_count + 1, last_accessed_at = NOW()
        WHERE id = $1
    `
	if _, err := r.pool.Exec(ctx, q, id); err != nil {
		return fmt.Errorf("record access for purchase %s: %w", id, err)
	}
	return nil
}

func (r *purchaseRepo) FindActiveByEmailAndGuide(ctx context.Context, email, guideID string) (*model.Purchase, error) {
	q := `SELECT ` + purchaseColumns + `
        FROM purchases
        WHERE email = $1 AND guide_id = $2 AND status = 'active'
        ORDER BY purchased_at DESC
        LIMIT 1`
	p, err := scanPurchase(r.pool.QueryRow(ctx, q, email, guideID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch active purchase for %s/%s: %w", email, guideID, err)
	}
	return p, nil
}

func (r *purchaseRepo) ListByPaymentIntent(ctx context.Context, paymentIntentID string) ([]model.Purchase, error) {
	q := `SELECT ` + purchaseColumns + ` FROM purchases WHERE stripe_payment_intent_id = $1`
	rows, err := r.pool.Query(ctx, q, paymentIntentID)
	if err != nil {
		return nil, fmt.Errorf("list purchases for payment intent %s: %w", paymentIntentID, err)
	}
	defer rows.Close()

	var out []model.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan purchase for payment intent %s: %w", paymentIntentID, err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *purchaseRepo) MarkRefunded(ctx context.Context, id string) (bool, error) {
	const q = `
        UPDATE purchases
        SET status = 'refunded', refunded_at = NOW()
        WHERE id = $1 AND status <> 'refunded'
    `
	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return false, fmt.Errorf("mark purchase %s refunded: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}
