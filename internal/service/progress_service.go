package service

import (
	"context"

	"app/internal/apperr"
	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

// ProgressService covers reading-progress and favorites for signed-in users.
type ProgressService interface {
	GetProgress(ctx context.Context, userID, guideID string) (*model.GuideProgress, error)
	SaveProgress(ctx context.Context, userID, guideID string, percent int) error
	ListFavorites(ctx context.Context, userID string) ([]model.Favorite, error)
	AddFavorite(ctx context.Context, userID, guideID string) error
	RemoveFavorite(ctx context.Context, userID, guideID string) error
}

type progressService struct {
	repo   repository.ProgressRepository
	logger zerolog.Logger
}

// NewProgressService creates a new ProgressService with a scoped logger.
func NewProgressService(repo repository.ProgressRepository, logger zerolog.Logger) ProgressService {
	return &progressService{
		repo:   repo,
		logger: logger.With().Str("service", "ProgressService").Logger(),
	}
}

func (s *progressService) GetProgress(ctx context.Context, userID, guideID string) (*model.GuideProgress, error) {
	p, err := s.repo.GetProgress(ctx, userID, guideID)
	if err != nil {
		s.logger.Error().Err(err).Str("guide_id", guideID).Msg("Failed to fetch progress")
		return nil, apperr.Wrap(apperr.KindExternal, "fetch progress", err)
	}
	return p, nil
}

func (s *progressService) SaveProgress(ctx context.Context, userID, guideID string, percent int) error {
	if percent < 0 || percent > 100 {
		return apperr.E(apperr.KindValidation, "percent must be between 0 and 100")
	}
	if err := s.repo.UpsertProgress(ctx, userID, guideID, percent); err != nil {
		s.logger.Error().Err(err).Str("guide_id", guideID).Msg("Failed to save progress")
		return apperr.Wrap(apperr.KindExternal, "save progress", err)
	}
	return nil
}

func (s *progressService) ListFavorites(ctx context.Context, userID string) ([]model.Favorite, error) {
	favs, err := s.repo.ListFavorites(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list favorites")
		return nil, apperr.Wrap(apperr.KindExternal, "list favorites", err)
	}
	return favs, nil
}

func (s *progressService) AddFavorite(ctx context.Context, userID, guideID string) error {
	if err := s.repo.AddFavorite(ctx, userID, guideID); err != nil {
		s.logger.Error().Err(err).Str("guide_id", guideID).Msg("Failed to add favorite")
		return apperr.Wrap(apperr.KindExternal, "add favorite", err)
	}
	return nil
}

func (s *progressService) RemoveFavorite(ctx context.Context, userID, guideID string) error {
	if err := s.repo.RemoveFavorite(ctx, userID, guideID); err != nil {
		s.logger.Error().Err(err).Str("guide_id", guideID).Msg("Failed to remove favorite")
		return apperr.Wrap(apperr.KindExternal, "remove favorite", err)
	}
	return nil
}
