package models

import (
	"strings"
	"time"
)

// Match represents two users' mutual interest. User1 is the side whose like
// completed the pair; MatchContext copies that like's liked_element. PairKey
// is the canonical sorted id pair and carries a unique constraint, so at most
// one match can exist per pair regardless of which side completed it or how
// many times the pair liked each other.
type Match struct {
	ID            string     `db:"id" json:"id"`
	User1ID       string     `db:"user1_id" json:"user1_id"`
	User2ID       string     `db:"user2_id" json:"user2_id"`
	PairKey       string     `db:"pair_key" json:"-"`
	MatchContext  *string    `db:"match_context" json:"match_context,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	LastMessageAt *time.Time `db:"last_message_at" json:"last_message_at,omitempty"`
	IsActive      bool       `db:"is_active" json:"is_active"`
}

// PairKey returns the canonical key for an unordered user pair: the
// lexicographically smaller id first, joined with a colon.
func PairKey(userA, userB string) string {
	if strings.Compare(userA, userB) > 0 {
		userA, userB = userB, userA
	}
	return userA + ":" + userB
}

// OtherUser returns the match member that is not userID.
func (m *Match) OtherUser(userID string) string {
	if m.User1ID == userID {
		return m.User2ID
	}
	return m.User1ID
}

// HasMember reports whether userID is one of the match's two members.
func (m *Match) HasMember(userID string) bool {
	return m.User1ID == userID || m.User2ID == userID
}

// ConversationSummary is one entry of the GET /matches listing.
type ConversationSummary struct {
	ID           string          `json:"id"`
	User1ID      string          `json:"user1_id"`
	User2ID      string          `json:"user2_id"`
	MatchContext *string         `json:"match_context,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	OtherUser    *MatchProfile   `json:"other_user"`
	LastMessage  *MessageSummary `json:"last_message"`
}

// MessageSummary is the latest-message preview inside a ConversationSummary.
type MessageSummary struct {
	ID        string    `json:"id"`
	Content   *string   `json:"content,omitempty"`
	SenderID  string    `json:"sender_id"`
	CreatedAt time.Time `json:"created_at"`
}
