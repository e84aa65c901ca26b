package models

import "time"

// Message belongs to exactly one match. Viewed flips to true when the
// receiver lists the conversation; nothing else mutates a message.
type Message struct {
	ID         string    `db:"id" json:"id"`
	MatchID    string    `db:"match_id" json:"match_id"`
	SenderID   string    `db:"sender_id" json:"sender_id"`
	ReceiverID string    `db:"receiver_id" json:"receiver_id"`
	Content    *string   `db:"content" json:"content,omitempty"`
	MediaURL   *string   `db:"media_url" json:"media_url,omitempty"`
	MediaType  *string   `db:"media_type" json:"media_type,omitempty"`
	ViewOnce   bool      `db:"view_once" json:"view_once"`
	Viewed     bool      `db:"viewed" json:"viewed"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// SendMessageRequest is the POST /messages payload. At least one of content
// and media_url must be present.
type SendMessageRequest struct {
	MatchID    string  `json:"match_id" validate:"required"`
	ReceiverID string  `json:"receiver_id" validate:"required"`
	Content    *string `json:"content,omitempty"`
	MediaURL   *string `json:"media_url,omitempty"`
	MediaType  *string `json:"media_type,omitempty"`
	ViewOnce   bool    `json:"view_once,omitempty"`
}
