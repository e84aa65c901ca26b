package models

import (
	"time"

	"github.com/PixieStack/indulge/pkg/database"
)

// Role determines which side of the discovery feed a user appears on.
type Role string

const (
	RoleBaby  Role = "baby"
	RoleDaddy Role = "daddy"
	RoleMommy Role = "mommy"
)

// ValidRole reports whether s is one of the supported roles.
func ValidRole(s string) bool {
	switch Role(s) {
	case RoleBaby, RoleDaddy, RoleMommy:
		return true
	}
	return false
}

// ComplementaryRoles returns the roles shown in the discovery feed of a user
// with the given role. Babies see daddies and mommies; everyone else sees babies.
func ComplementaryRoles(role Role) []Role {
	if role == RoleBaby {
		return []Role{RoleDaddy, RoleMommy}
	}
	return []Role{RoleBaby}
}

// Prompt is an answered profile prompt.
type Prompt struct {
	PromptID string `json:"prompt_id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// User is the full account record. The password hash is never serialized in
// API responses.
type User struct {
	ID           string  `db:"id" json:"id"`
	Email        string  `db:"email" json:"email"`
	Phone        *string `db:"phone" json:"phone,omitempty"`
	PasswordHash string  `db:"password_hash" json:"-"`
	Role         Role    `db:"role" json:"role"`

	EmailVerified    bool `db:"email_verified" json:"email_verified"`
	PhoneVerified    bool `db:"phone_verified" json:"phone_verified"`
	FaceVerified     bool `db:"face_verified" json:"face_verified"`
	VerificationPaid bool `db:"verification_paid" json:"verification_paid"`

	FirstName   string  `db:"first_name" json:"first_name"`
	Age         *int    `db:"age" json:"age,omitempty"`
	Gender      *string `db:"gender" json:"gender,omitempty"`
	Orientation *string `db:"orientation" json:"orientation,omitempty"`
	Location    *string `db:"location" json:"location,omitempty"`

	IncomeBracket        *string `db:"income_bracket" json:"income_bracket,omitempty"`
	NetWorth             *string `db:"net_worth" json:"net_worth,omitempty"`
	AllowanceExpectation *string `db:"allowance_expectation" json:"allowance_expectation,omitempty"`

	LifestyleTags database.JSONB[[]string] `db:"lifestyle_tags" json:"lifestyle_tags"`
	Height        *string                  `db:"height" json:"height,omitempty"`
	Education     *string                  `db:"education" json:"education,omitempty"`
	Smoking       *string                  `db:"smoking" json:"smoking,omitempty"`
	Drinking      *string                  `db:"drinking" json:"drinking,omitempty"`

	Photos   database.JSONB[[]string] `db:"photos" json:"photos"`
	VideoURL *string                  `db:"video_url" json:"video_url,omitempty"`
	VoiceURL *string                  `db:"voice_url" json:"voice_url,omitempty"`

	Prompts database.JSONB[[]Prompt] `db:"prompts" json:"prompts"`

	PreferredGender *string `db:"preferred_gender" json:"preferred_gender,omitempty"`
	PreferredAgeMin *int    `db:"preferred_age_min" json:"preferred_age_min,omitempty"`
	PreferredAgeMax *int    `db:"preferred_age_max" json:"preferred_age_max,omitempty"`

	IsPremium        bool       `db:"is_premium" json:"is_premium"`
	SubscriptionEnds *time.Time `db:"subscription_ends" json:"subscription_ends,omitempty"`

	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	LastActive time.Time `db:"last_active" json:"last_active"`
	IsBanned   bool      `db:"is_banned" json:"is_banned"`
}

// PublicProfile is the view of a user exposed to other users (feed cards,
// match counterparts).
type PublicProfile struct {
	ID                   string                   `db:"id" json:"id"`
	FirstName            string                   `db:"first_name" json:"first_name"`
	Age                  *int                     `db:"age" json:"age,omitempty"`
	Gender               *string                  `db:"gender" json:"gender,omitempty"`
	Location             *string                  `db:"location" json:"location,omitempty"`
	Role                 Role                     `db:"role" json:"role"`
	Photos               database.JSONB[[]string] `db:"photos" json:"photos"`
	VideoURL             *string                  `db:"video_url" json:"video_url,omitempty"`
	VoiceURL             *string                  `db:"voice_url" json:"voice_url,omitempty"`
	Prompts              database.JSONB[[]Prompt] `db:"prompts" json:"prompts"`
	LifestyleTags        database.JSONB[[]string] `db:"lifestyle_tags" json:"lifestyle_tags"`
	IncomeBracket        *string                  `db:"income_bracket" json:"income_bracket,omitempty"`
	AllowanceExpectation *string                  `db:"allowance_expectation" json:"allowance_expectation,omitempty"`
	LastActive           *time.Time               `db:"last_active" json:"last_active,omitempty"`
}

// MatchProfile is the trimmed counterpart summary embedded in conversation
// listings.
type MatchProfile struct {
	ID         string                   `db:"id" json:"id"`
	FirstName  string                   `db:"first_name" json:"first_name"`
	Age        *int                     `db:"age" json:"age,omitempty"`
	Photos     database.JSONB[[]string] `db:"photos" json:"photos"`
	LastActive *time.Time               `db:"last_active" json:"last_active,omitempty"`
}

// SignupRequest creates an account.
type SignupRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required"`
	Password  string `json:"password" validate:"required,min=8"`
	Role      string `json:"role" validate:"required,oneof=baby daddy mommy"`
	FirstName string `json:"first_name" validate:"required"`
}

// LoginRequest authenticates an account.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned by signup and login.
type AuthResponse struct {
	Token string    `json:"token"`
	User  *AuthUser `json:"user"`
}

// AuthUser is the account summary embedded in AuthResponse.
type AuthUser struct {
	ID               string `json:"id"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	Role             Role   `json:"role"`
	FirstName        string `json:"first_name"`
	EmailVerified    bool   `json:"email_verified"`
	PhoneVerified    bool   `json:"phone_verified"`
	FaceVerified     bool   `json:"face_verified"`
	VerificationPaid bool   `json:"verification_paid"`
}

// UpdateProfileRequest is the allow-listed profile update payload. Every field
// is optional; unknown fields in the body are rejected at the handler.
type UpdateProfileRequest struct {
	Age                  *int      `json:"age,omitempty" validate:"omitempty,gte=18,lte=120"`
	Gender               *string   `json:"gender,omitempty"`
	Orientation          *string   `json:"orientation,omitempty"`
	Location             *string   `json:"location,omitempty"`
	IncomeBracket        *string   `json:"income_bracket,omitempty"`
	NetWorth             *string   `json:"net_worth,omitempty"`
	AllowanceExpectation *string   `json:"allowance_expectation,omitempty"`
	LifestyleTags        *[]string `json:"lifestyle_tags,omitempty"`
	Height               *string   `json:"height,omitempty"`
	Education            *string   `json:"education,omitempty"`
	Smoking              *string   `json:"smoking,omitempty"`
	Drinking             *string   `json:"drinking,omitempty"`
	Photos               *[]string `json:"photos,omitempty"`
	VideoURL             *string   `json:"video_url,omitempty"`
	VoiceURL             *string   `json:"voice_url,omitempty"`
	Prompts              *[]Prompt `json:"prompts,omitempty"`
	PreferredGender      *string   `json:"preferred_gender,omitempty"`
	PreferredAgeMin      *int      `json:"preferred_age_min,omitempty" validate:"omitempty,gte=18"`
	PreferredAgeMax      *int      `json:"preferred_age_max,omitempty" validate:"omitempty,lte=120"`
}
