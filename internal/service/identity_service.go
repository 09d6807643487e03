package service

import (
	"context"

	"app/internal/repository"

	"github.com/rs/zerolog"
)

// IdentityService resolves identity-provider user ids to email addresses.
type IdentityService interface {
	EmailForUser(ctx context.Context, userID string) (string, error)
}

type identityService struct {
	userRepo repository.UserRepository
	logger   zerolog.Logger
}

// NewIdentityService creates a new IdentityService with a scoped logger.
func NewIdentityService(userRepo repository.UserRepository, logger zerolog.Logger) IdentityService {
	return &identityService{
		userRepo: userRepo,
		logger:   logger.With().Str("service", "IdentityService").Logger(),
	}
}

// EmailForUser returns "" with no error when the user has no known email.
func (s *identityService) EmailForUser(ctx context.Context, userID string) (string, error) {
	email, err := s.userRepo.GetEmailByUserID(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to resolve email for user")
		return "", err
	}
	return email, nil
}
