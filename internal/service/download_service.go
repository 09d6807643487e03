package service

import (
	"context"
	"fmt"
	"time"

	"app/internal/apperr"
	"app/internal/catalog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// DownloadService hands out short-lived URLs for guide documents. Callers are
// responsible for checking access first.
type DownloadService interface {
	GuideURL(ctx context.Context, guideID string) (string, time.Time, error)
}

type downloadService struct {
	presignClient *s3.PresignClient
	bucketName    string
	ttl           time.Duration
	logger        zerolog.Logger
}

// NewDownloadService creates a new DownloadService with a scoped logger.
func NewDownloadService(s3Client *s3.Client, bucketName string, ttl time.Duration, logger zerolog.Logger) DownloadService {
	return &downloadService{
		presignClient: s3.NewPresignClient(s3Client),
		bucketName:    bucketName,
		ttl:           ttl,
		logger:        logger.With().Str("service", "DownloadService").Logger(),
	}
}

// GuideURL generates a presigned GET URL for the guide's document.
func (s *downloadService) GuideURL(ctx context.Context, guideID string) (string, time.Time, error) {
	g, ok := catalog.Lookup(guideID)
	if !ok {
		return "", time.Time{}, apperr.E(apperr.KindNotFound, "unknown guide")
	}
	resp, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(g.FileKey),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		s.logger.Error().Err(err).Str("guide_id", guideID).Msg("Failed to generate presigned URL")
		return "", time.Time{}, apperr.Wrap(apperr.KindExternal, fmt.Sprintf("presign guide %s", guideID), err)
	}
	return resp.URL, time.Now().Add(s.ttl), nil
}
