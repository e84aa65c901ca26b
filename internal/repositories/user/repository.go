package user

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/PixieStack/indulge/pkg/database"
	"github.com/PixieStack/indulge/pkg/models"
	"github.com/PixieStack/indulge/pkg/tracing"
)

var userColumns = []string{
	"id", "email", "phone", "password_hash", "role",
	"email_verified", "phone_verified", "face_verified", "verification_paid",
	"first_name", "age", "gender", "orientation", "location",
	"income_bracket", "net_worth", "allowance_expectation",
	"lifestyle_tags", "height", "education", "smoking", "drinking",
	"photos", "video_url", "voice_url", "prompts",
	"preferred_gender", "preferred_age_min", "preferred_age_max",
	"is_premium", "subscription_ends",
	"created_at", "last_active", "is_banned",
}

// Repository handles user persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new user repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new user. Returns 409 if the email is already registered.
func (r *Repository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	ctx, span := tracing.StartSpan(ctx, "user.Repository.Create")
	defer span.End()

	now := time.Now().UTC()
	user.CreatedAt = now
	user.LastActive = now

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("users")
	sb.Cols(userColumns...)
	sb.Values(
		user.ID, user.Email, user.Phone, user.PasswordHash, user.Role,
		user.EmailVerified, user.PhoneVerified, user.FaceVerified, user.VerificationPaid,
		user.FirstName, user.Age, user.Gender, user.Orientation, user.Location,
		user.IncomeBracket, user.NetWorth, user.AllowanceExpectation,
		user.LifestyleTags, user.Height, user.Education, user.Smoking, user.Drinking,
		user.Photos, user.VideoURL, user.VoiceURL, user.Prompts,
		user.PreferredGender, user.PreferredAgeMin, user.PreferredAgeMax,
		user.IsPremium, user.SubscriptionEnds,
		user.CreatedAt, user.LastActive, user.IsBanned,
	)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return nil, httperror.NewHTTPError(http.StatusConflict, "email already registered")
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"user_id": user.ID}).Error("Failed to create user")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create user")
	}

	return user, nil
}

// GetByID retrieves a user by ID
func (r *Repository) GetByID(ctx context.Context, id string) (*models.User, error) {
	ctx, span := tracing.StartSpan(ctx, "user.Repository.GetByID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(userColumns...)
	sb.From("users")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("user %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get user")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get user")
	}

	return &user, nil
}

// GetByEmail retrieves a user by email
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, span := tracing.StartSpan(ctx, "user.Repository.GetByEmail")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(userColumns...)
	sb.From("users")
	sb.Where(sb.Equal("email", email))

	query, args := sb.Build()
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, "user not found")
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get user by email")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get user")
	}

	return &user, nil
}

// GetByPhone retrieves a user by phone number. The phone column is not
// unique; verified rows sort first so a claim check always sees the account
// that verified the number.
func (r *Repository) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	ctx, span := tracing.StartSpan(ctx, "user.Repository.GetByPhone")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(userColumns...)
	sb.From("users")
	sb.Where(sb.Equal("phone", phone))
	sb.OrderBy("phone_verified DESC", "created_at ASC")
	sb.Limit(1)

	query, args := sb.Build()
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, "user not found")
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get user by phone")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get user")
	}

	return &user, nil
}

// UpdateProfile applies the non-nil fields of req to the user and returns the
// updated record.
func (r *Repository) UpdateProfile(ctx context.Context, id string, req *models.UpdateProfileRequest) (*models.User, error) {
	ctx, span := tracing.StartSpan(ctx, "user.Repository.UpdateProfile")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("users")

	assignments := []string{}
	add := func(col string, value any) {
		assignments = append(assignments, sb.Assign(col, value))
	}

	if req.Age != nil {
		add("age", *req.Age)
	}
	if req.Gender != nil {
		add("gender", *req.Gender)
	}
	if req.Orientation != nil {
		add("orientation", *req.Orientation)
	}
	if req.Location != nil {
		add("location", *req.Location)
	}
	if req.IncomeBracket != nil {
		add("income_bracket", *req.IncomeBracket)
	}
	if req.NetWorth != nil {
		add("net_worth", *req.NetWorth)
	}
	if req.AllowanceExpectation != nil {
		add("allowance_expectation", *req.AllowanceExpectation)
	}
	if req.LifestyleTags != nil {
		add("lifestyle_tags", database.NewJSONB(*req.LifestyleTags))
	}
	if req.Height != nil {
		add("height", *req.Height)
	}
	if req.Education != nil {
		add("education", *req.Education)
	}
	if req.Smoking != nil {
		add("smoking", *req.Smoking)
	}
	if req.Drinking != nil {
		add("drinking", *req.Drinking)
	}
	if req.Photos != nil {
		add("photos", database.NewJSONB(*req.Photos))
	}
	if req.VideoURL != nil {
		add("video_url", *req.VideoURL)
	}
	if req.VoiceURL != nil {
		add("voice_url", *req.VoiceURL)
	}
	if req.Prompts != nil {
		add("prompts", database.NewJSONB(*req.Prompts))
	}
	if req.PreferredGender != nil {
		add("preferred_gender", *req.PreferredGender)
	}
	if req.PreferredAgeMin != nil {
		add("preferred_age_min", *req.PreferredAgeMin)
	}
	if req.PreferredAgeMax != nil {
		add("preferred_age_max", *req.PreferredAgeMax)
	}

	if len(assignments) == 0 {
		return r.GetByID(ctx, id)
	}

	sb.Set(assignments...)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"user_id": id}).Error("Failed to update user profile")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update profile")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("user %s not found", id))
	}

	return r.GetByID(ctx, id)
}

// TouchLastActive bumps the user's last_active timestamp
func (r *Repository) TouchLastActive(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "user.Repository.TouchLastActive")
	defer span.End()

	query := `UPDATE users SET last_active = $1 WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"user_id": id}).Error("Failed to touch last_active")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update user")
	}

	return nil
}

// MarkEmailVerified sets the email_verified flag
func (r *Repository) MarkEmailVerified(ctx context.Context, id string) error {
	return r.setFlag(ctx, "user.Repository.MarkEmailVerified", id, "email_verified", true)
}

// MarkPhoneVerified sets the phone_verified flag
func (r *Repository) MarkPhoneVerified(ctx context.Context, id string) error {
	return r.setFlag(ctx, "user.Repository.MarkPhoneVerified", id, "phone_verified", true)
}

// MarkFaceVerified sets the face_verified flag. Face verification is a paid
// feature, so verification_paid must already be set.
func (r *Repository) MarkFaceVerified(ctx context.Context, id string) error {
	return r.setFlag(ctx, "user.Repository.MarkFaceVerified", id, "face_verified", true)
}

// MarkVerificationPaid records payment for face verification
func (r *Repository) MarkVerificationPaid(ctx context.Context, id string) error {
	return r.setFlag(ctx, "user.Repository.MarkVerificationPaid", id, "verification_paid", true)
}

// SetBanned updates the is_banned flag
func (r *Repository) SetBanned(ctx context.Context, id string, banned bool) error {
	return r.setFlag(ctx, "user.Repository.SetBanned", id, "is_banned", banned)
}

func (r *Repository) setFlag(ctx context.Context, spanName, id, column string, value bool) error {
	ctx, span := tracing.StartSpan(ctx, spanName)
	defer span.End()

	query := fmt.Sprintf(`UPDATE users SET %s = $1 WHERE id = $2`, column)
	result, err := r.db.ExecContext(ctx, query, value, id)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"user_id": id, "column": column}).Error("Failed to update user flag")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update user")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("user %s not found", id))
	}

	return nil
}

// SetSubscription activates or clears the user's premium subscription
func (r *Repository) SetSubscription(ctx context.Context, id string, isPremium bool, ends *time.Time) error {
	ctx, span := tracing.StartSpan(ctx, "user.Repository.SetSubscription")
	defer span.End()

	query := `UPDATE users SET is_premium = $1, subscription_ends = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, isPremium, ends, id)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"user_id": id}).Error("Failed to update subscription")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update subscription")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("user %s not found", id))
	}

	return nil
}

// List retrieves users for admin review, newest first
func (r *Repository) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	ctx, span := tracing.StartSpan(ctx, "user.Repository.List")
	defer span.End()

	if limit < 1 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(userColumns...)
	sb.From("users")
	sb.OrderBy("created_at DESC")
	sb.Limit(limit)
	sb.Offset(offset)

	query, args := sb.Build()
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list users")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list users")
	}

	return users, nil
}

// CountByRole returns user totals grouped by role
func (r *Repository) CountByRole(ctx context.Context) (map[models.Role]int, error) {
	ctx, span := tracing.StartSpan(ctx, "user.Repository.CountByRole")
	defer span.End()

	query := `SELECT role, COUNT(*) AS total FROM users GROUP BY role`
	rows := []struct {
		Role  models.Role `db:"role"`
		Total int         `db:"total"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count users by role")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count users")
	}

	counts := make(map[models.Role]int, len(rows))
	for _, row := range rows {
		counts[row.Role] = row.Total
	}
	return counts, nil
}

// ListFeedCandidates returns discovery candidates for the viewer: users with a
// complementary role the viewer has not already liked, passed, or been banned
// from seeing. The viewer never appears in their own feed.
func (r *Repository) ListFeedCandidates(ctx context.Context, viewer *models.User, limit int) ([]models.PublicProfile, error) {
	ctx, span := tracing.StartSpan(ctx, "user.Repository.ListFeedCandidates")
	defer span.End()

	if limit < 1 || limit > 100 {
		limit = 20
	}

	roles := models.ComplementaryRoles(viewer.Role)
	rolePlaceholders := make([]string, len(roles))
	args := []any{viewer.ID}
	for i, role := range roles {
		args = append(args, role)
		rolePlaceholders[i] = fmt.Sprintf("$%d", len(args))
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT id, first_name, age, gender, location, role, photos, video_url, voice_url, prompts, lifestyle_tags, income_bracket, allowance_expectation, last_active
		FROM users u
		WHERE u.id != $1
		AND u.is_banned = FALSE
		AND u.role IN (%s)
		AND NOT EXISTS (SELECT 1 FROM likes l WHERE l.from_user_id = $1 AND l.to_user_id = u.id)
		AND NOT EXISTS (SELECT 1 FROM passes p WHERE p.from_user_id = $1 AND p.to_user_id = u.id)
		ORDER BY u.last_active DESC
		LIMIT $%d
	`, strings.Join(rolePlaceholders, ", "), len(args))

	var profiles []models.PublicProfile
	if err := r.db.SelectContext(ctx, &profiles, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"viewer_id": viewer.ID}).Error("Failed to list feed candidates")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to load discovery feed")
	}

	return profiles, nil
}
