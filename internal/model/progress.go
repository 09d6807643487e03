package model

import "time"

// GuideProgress tracks how far a user has read a guide.
type GuideProgress struct {
	UserID    string    `db:"user_id" json:"user_id"`
	GuideID   string    `db:"guide_id" json:"guide_id"`
	Percent   int       `db:"percent" json:"percent"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Favorite marks a guide a user has bookmarked.
type Favorite struct {
	UserID    string    `db:"user_id" json:"user_id"`
	GuideID   string    `db:"guide_id" json:"guide_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
