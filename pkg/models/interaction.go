package models

import "time"

// Like is an immutable record of one user liking another. The log is
// append-only: repeated likes between the same pair produce new rows.
type Like struct {
	ID           string    `db:"id" json:"id"`
	FromUserID   string    `db:"from_user_id" json:"from_user_id"`
	ToUserID     string    `db:"to_user_id" json:"to_user_id"`
	LikedElement string    `db:"liked_element" json:"liked_element"`
	Comment      *string   `db:"comment" json:"comment,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Pass is an immutable record of one user passing on another.
type Pass struct {
	ID         string    `db:"id" json:"id"`
	FromUserID string    `db:"from_user_id" json:"from_user_id"`
	ToUserID   string    `db:"to_user_id" json:"to_user_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// LikeRequest is the POST /discovery/like payload.
type LikeRequest struct {
	ToUserID     string  `json:"to_user_id" validate:"required"`
	LikedElement string  `json:"liked_element,omitempty"`
	Comment      *string `json:"comment,omitempty"`
}

// PassRequest is the POST /discovery/pass payload.
type PassRequest struct {
	ToUserID string `json:"to_user_id" validate:"required"`
}

// LikeResponse reports whether the like completed a mutual pair.
type LikeResponse struct {
	Matched bool   `json:"matched"`
	MatchID string `json:"match_id,omitempty"`
}

// ReceivedLike is one entry of the likes-received listing: the like record
// with the sender's trimmed profile attached.
type ReceivedLike struct {
	ID           string        `json:"id"`
	FromUser     *MatchProfile `json:"from_user"`
	LikedElement string        `json:"liked_element"`
	Comment      *string       `json:"comment,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}
