package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository resolves identity-provider user ids to profile data mirrored
// in the store.
type UserRepository interface {
	// GetEmailByUserID returns "" with no error when the user is unknown.
	GetEmailByUserID(ctx context.Context, userID string) (string, error)
}

type userRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) UserRepository {
	return &userRepo{pool: pool}
}

func (r *userRepo) GetEmailByUserID(ctx context.Context, userID string) (string, error) {
	const q = `SELECT email FROM user_profiles WHERE user_id = $1`
	var email string
	if err := r.pool.QueryRow(ctx, q, userID).Scan(&email); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("fetch email for user %s: %w", userID, err)
	}
	return email, nil
}
