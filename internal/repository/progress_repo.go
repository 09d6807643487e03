package repository

import (
	"context"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProgressRepository covers reading-progress and favorites for guides.
type ProgressRepository interface {
	GetProgress(ctx context.Context, userID, guideID string) (*model.GuideProgress, error)
	UpsertProgress(ctx context.Context, userID, guideID string, percent int) error
	ListFavorites(ctx context.Context, userID string) ([]model.Favorite, error)
	AddFavorite(ctx context.Context, userID, guideID string) error
	RemoveFavorite(ctx context.Context, userID, guideID string) error
}

type progressRepo struct {
	pool *pgxpool.Pool
}

func NewProgressRepo(pool *pgxpool.Pool) ProgressRepository {
	return &progressRepo{pool: pool}
}

func (r *progressRepo) GetProgress(ctx context.Context, userID, guideID string) (*model.GuideProgress, error) {
	const q = `
        SELECT user_id, guide_id, percent, updated_at
        FROM user_guide_progress
        WHERE user_id = $1 AND guide_id = $2
    `
	var p model.GuideProgress
	err := r.pool.QueryRow(ctx, q, userID, guideID).Scan(&p.UserID, &p.GuideID, &p.Percent, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch progress for %s/%s: %w", userID, guideID, err)
	}
	return &p, nil
}

func (r *progressRepo) UpsertProgress(ctx context.Context, userID, guideID string, percent int) error {
	const q = `
        INSERT INTO user_guide_progress (user_id, guide_id, percent, updated_at)
        VALUES ($1, $2, $3, NOW())
        ON CONFLICT (user_id, guide_id) DO UPDATE
        SET percent = EXCLUDED.percent, updated_at = NOW()
    `
	if _, err := r.pool.Exec(ctx, q, userID, guideID, percent); err != nil {
		return fmt.Errorf("upsert progress for %s/%s: %w", userID, guideID, err)
	}
	return nil
}

func (r *progressRepo) ListFavorites(ctx context.Context, userID string) ([]model.Favorite, error) {
	const q = `
        SELECT user_id, guide_id, created_at
        FROM favorites
        WHERE user_id = $1
        ORDER BY created_at DESC
    `
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list favorites for %s: %w", userID, err)
	}
	defer rows.Close()

	var out []model.Favorite
	for rows.Next() {
		var f model.Favorite
		if err := rows.Scan(&f.UserID, &f.GuideID, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan favorite for %s: %w", userID, err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *progressRepo) AddFavorite(ctx context.Context, userID, guideID string) error {
	const q = `
        INSERT INTO favorites (user_id, guide_id, created_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (user_id, guide_id) DO NOTHING
    `
	if _, err := r.pool.Exec(ctx, q, userID, guideID); err != nil {
		return fmt.Errorf("add favorite %s/%s: %w", userID, guideID, err)
	}
	return nil
}

func (r *progressRepo) RemoveFavorite(ctx context.Context, userID, guideID string) error {
	const q = `DELETE FROM favorites WHERE user_id = $1 AND guide_id = $2`
	if _, err := r.pool.Exec(ctx, q, userID, guideID); err != nil {
		return fmt.Errorf("remove favorite %s/%s: %w", userID, guideID, err)
	}
	return nil
}
