package match

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/PixieStack/indulge/pkg/database"
	"github.com/PixieStack/indulge/pkg/models"
	"github.com/PixieStack/indulge/pkg/tracing"
)

var matchColumns = []string{"id", "user1_id", "user2_id", "pair_key", "match_context", "created_at", "last_message_at", "is_active"}

// Repository handles match persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new match repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a match for the pair. The pair_key unique constraint makes
// the insert a no-op when a match already exists, so concurrent reciprocal
// likes can both call Create and exactly one row wins. The second boolean
// return is false when the insert was skipped; callers then fetch the
// existing match with GetByPairKey.
func (r *Repository) Create(ctx context.Context, match *models.Match) (*models.Match, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "match.Repository.Create")
	defer span.End()

	if match.ID == "" {
		match.ID = uuid.New().String()
	}
	match.PairKey = models.PairKey(match.User1ID, match.User2ID)
	match.CreatedAt = time.Now().UTC()
	match.IsActive = true

	sb := database.NewInsertBuilder().
		InsertInto("matches").
		Cols("id", "user1_id", "user2_id", "pair_key", "match_context", "created_at", "is_active").
		Values(match.ID, match.User1ID, match.User2ID, match.PairKey, match.MatchContext, match.CreatedAt, match.IsActive).
		OnConflictDoNothing("pair_key")

	query, args := sb.Build()

	ex := database.ExecutorFrom(ctx, r.db)
	result, err := ex.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"pair_key": match.PairKey}).Error("Failed to create match")
		return nil, false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create match")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, false, nil
	}

	return match, true, nil
}

// GetByID retrieves a match by ID
func (r *Repository) GetByID(ctx context.Context, id string) (*models.Match, error) {
	ctx, span := tracing.StartSpan(ctx, "match.Repository.GetByID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(matchColumns...)
	sb.From("matches")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var match models.Match
	ex := database.ExecutorFrom(ctx, r.db)
	if err := ex.GetContext(ctx, &match, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("match %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get match")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get match")
	}

	return &match, nil
}

// GetByPairKey retrieves the match for an unordered user pair, or nil when
// the pair has never matched
func (r *Repository) GetByPairKey(ctx context.Context, userA, userB string) (*models.Match, error) {
	ctx, span := tracing.StartSpan(ctx, "match.Repository.GetByPairKey")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(matchColumns...)
	sb.From("matches")
	sb.Where(sb.Equal("pair_key", models.PairKey(userA, userB)))

	query, args := sb.Build()
	var match models.Match
	ex := database.ExecutorFrom(ctx, r.db)
	if err := ex.GetContext(ctx, &match, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get match by pair key")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get match")
	}

	return &match, nil
}

// ListActiveForUser returns the user's active matches ordered by recent
// conversation activity, falling back to match creation time for matches
// without messages
func (r *Repository) ListActiveForUser(ctx context.Context, userID string) ([]models.Match, error) {
	ctx, span := tracing.StartSpan(ctx, "match.Repository.ListActiveForUser")
	defer span.End()

	query := `
		SELECT id, user1_id, user2_id, pair_key, match_context, created_at, last_message_at, is_active
		FROM matches
		WHERE (user1_id = $1 OR user2_id = $1)
		AND is_active = TRUE
		ORDER BY last_message_at DESC NULLS LAST, created_at DESC
	`

	var matches []models.Match
	if err := r.db.SelectContext(ctx, &matches, query, userID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"user_id": userID}).Error("Failed to list matches")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list matches")
	}

	return matches, nil
}

// TouchLastMessage updates the match's last_message_at. Joins the context
// transaction so the bump commits atomically with the message insert.
func (r *Repository) TouchLastMessage(ctx context.Context, id string, at time.Time) error {
	ctx, span := tracing.StartSpan(ctx, "match.Repository.TouchLastMessage")
	defer span.End()

	query := `UPDATE matches SET last_message_at = $1 WHERE id = $2`
	ex := database.ExecutorFrom(ctx, r.db)
	result, err := ex.ExecContext(ctx, query, at, id)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"match_id": id}).Error("Failed to update match last_message_at")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update match")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("match %s not found", id))
	}

	return nil
}

// SetActive updates the is_active flag (unmatching deactivates rather than
// deletes, keeping the message history)
func (r *Repository) SetActive(ctx context.Context, id string, active bool) error {
	ctx, span := tracing.StartSpan(ctx, "match.Repository.SetActive")
	defer span.End()

	query := `UPDATE matches SET is_active = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, active, id)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"match_id": id}).Error("Failed to update match active flag")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update match")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("match %s not found", id))
	}

	return nil
}

// Count returns the total number of matches
func (r *Repository) Count(ctx context.Context) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "match.Repository.Count")
	defer span.End()

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM matches`); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count matches")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count matches")
	}

	return total, nil
}
