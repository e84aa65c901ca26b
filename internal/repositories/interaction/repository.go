package interaction

import (
	"context"
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

// Repository handles like and pass persistence. Both tables are append-only.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new interaction repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// CreateLike records a like. Repeated likes between the same pair produce new
// rows; the log is never deduplicated. Joins the context transaction if one
// is open.
func (r *Repository) CreateLike(ctx context.Context, like *models.Like) (*models.Like, error) {
	ctx, span := tracing.StartSpan(ctx, "interaction.Repository.CreateLike")
	defer span.End()

	if like.ID == "" {
		like.ID = uuid.New().String()
	}
	like.CreatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("likes")
	sb.Cols("id", "from_user_id", "to_user_id", "liked_element", "comment", "created_at")
	sb.Values(like.ID, like.FromUserID, like.ToUserID, like.LikedElement, like.Comment, like.CreatedAt)

	query, args := sb.Build()
	ex := database.ExecutorFrom(ctx, r.db)
	if _, err := ex.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"from_user_id": like.FromUserID, "to_user_id": like.ToUserID}).Error("Failed to create like")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to record like")
	}

	return like, nil
}

// CreatePass records a pass
func (r *Repository) CreatePass(ctx context.Context, pass *models.Pass) (*models.Pass, error) {
	ctx, span := tracing.StartSpan(ctx, "interaction.Repository.CreatePass")
	defer span.End()

	if pass.ID == "" {
		pass.ID = uuid.New().String()
	}
	pass.CreatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("passes")
	sb.Cols("id", "from_user_id", "to_user_id", "created_at")
	sb.Values(pass.ID, pass.FromUserID, pass.ToUserID, pass.CreatedAt)

	query, args := sb.Build()
	ex := database.ExecutorFrom(ctx, r.db)
	if _, err := ex.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"from_user_id": pass.FromUserID, "to_user_id": pass.ToUserID}).Error("Failed to create pass")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to record pass")
	}

	return pass, nil
}

// HasLikeFrom reports whether fromUserID has ever liked toUserID. Used for
// the reciprocal check when a new like arrives.
func (r *Repository) HasLikeFrom(ctx context.Context, fromUserID, toUserID string) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "interaction.Repository.HasLikeFrom")
	defer span.End()

	query := `SELECT EXISTS (SELECT 1 FROM likes WHERE from_user_id = $1 AND to_user_id = $2)`

	var exists bool
	ex := database.ExecutorFrom(ctx, r.db)
	if err := ex.GetContext(ctx, &exists, query, fromUserID, toUserID); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to check reciprocal like")
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to check like")
	}

	return exists, nil
}

// ListLikesReceived returns likes another user sent to userID, newest first
func (r *Repository) ListLikesReceived(ctx context.Context, userID string, limit int) ([]models.Like, error) {
	ctx, span := tracing.StartSpan(ctx, "interaction.Repository.ListLikesReceived")
	defer span.End()

	if limit < 1 || limit > 100 {
		limit = 50
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "from_user_id", "to_user_id", "liked_element", "comment", "created_at")
	sb.From("likes")
	sb.Where(sb.Equal("to_user_id", userID))
	sb.OrderBy("created_at DESC")
	sb.Limit(limit)

	query, args := sb.Build()
	var likes []models.Like
	if err := r.db.SelectContext(ctx, &likes, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list likes received")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list likes")
	}

	return likes, nil
}

// CountLikes returns the total number of like rows
func (r *Repository) CountLikes(ctx context.Context) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "interaction.Repository.CountLikes")
	defer span.End()

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM likes`); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count likes")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count likes")
	}

	return total, nil
}
