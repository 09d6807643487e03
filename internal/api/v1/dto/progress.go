package dto

import "time"

// ProgressResponseDTO reports a user's reading progress for one guide.
type ProgressResponseDTO struct {
	GuideID   string    `json:"guideId"`
	Percent   int       `json:"percent"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ProgressUpdateDTO saves reading progress.
type ProgressUpdateDTO struct {
	GuideID string `json:"guideId" validate:"required"`
	Percent int    `json:"percent" validate:"min=0,max=100"`
}

// FavoriteDTO marks or lists a bookmarked guide.
type FavoriteDTO struct {
	GuideID string `json:"guideId" validate:"required"`
}

// FavoriteResponseDTO is one bookmarked guide.
type FavoriteResponseDTO struct {
	GuideID   string    `json:"guideId"`
	CreatedAt time.Time `json:"createdAt"`
}
