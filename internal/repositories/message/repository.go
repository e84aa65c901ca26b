package message

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

var messageColumns = []string{"id", "match_id", "sender_id", "receiver_id", "content", "media_url", "media_type", "view_once", "viewed", "created_at"}

// Repository handles message persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new message repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a message. Joins the context transaction so the insert
// commits atomically with the match's last_message_at bump.
func (r *Repository) Create(ctx context.Context, message *models.Message) (*models.Message, error) {
	ctx, span := tracing.StartSpan(ctx, "message.Repository.Create")
	defer span.End()

	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	message.CreatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("messages")
	sb.Cols(messageColumns...)
	sb.Values(message.ID, message.MatchID, message.SenderID, message.ReceiverID, message.Content, message.MediaURL, message.MediaType, message.ViewOnce, message.Viewed, message.CreatedAt)

	query, args := sb.Build()
	ex := database.ExecutorFrom(ctx, r.db)
	if _, err := ex.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"match_id": message.MatchID}).Error("Failed to create message")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to send message")
	}

	return message, nil
}

// ListByMatch returns every message in the match in chronological order
func (r *Repository) ListByMatch(ctx context.Context, matchID string) ([]models.Message, error) {
	ctx, span := tracing.StartSpan(ctx, "message.Repository.ListByMatch")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(messageColumns...)
	sb.From("messages")
	sb.Where(sb.Equal("match_id", matchID))
	sb.OrderBy("created_at ASC")

	query, args := sb.Build()
	var messages []models.Message
	ex := database.ExecutorFrom(ctx, r.db)
	if err := ex.SelectContext(ctx, &messages, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"match_id": matchID}).Error("Failed to list messages")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list messages")
	}

	return messages, nil
}

// MarkViewed flips viewed on the receiver's unviewed messages in the match.
// Idempotent: already-viewed rows are untouched.
func (r *Repository) MarkViewed(ctx context.Context, matchID, receiverID string) error {
	ctx, span := tracing.StartSpan(ctx, "message.Repository.MarkViewed")
	defer span.End()

	query := `UPDATE messages SET viewed = TRUE WHERE match_id = $1 AND receiver_id = $2 AND viewed = FALSE`
	ex := database.ExecutorFrom(ctx, r.db)
	if _, err := ex.ExecContext(ctx, query, matchID, receiverID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"match_id": matchID}).Error("Failed to mark messages viewed")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to mark messages viewed")
	}

	return nil
}

// LatestForMatch returns the newest message in the match, or nil when the
// conversation is empty
func (r *Repository) LatestForMatch(ctx context.Context, matchID string) (*models.Message, error) {
	ctx, span := tracing.StartSpan(ctx, "message.Repository.LatestForMatch")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(messageColumns...)
	sb.From("messages")
	sb.Where(sb.Equal("match_id", matchID))
	sb.OrderBy("created_at DESC")
	sb.Limit(1)

	query, args := sb.Build()
	var message models.Message
	if err := r.db.GetContext(ctx, &message, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get latest message")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get latest message")
	}

	return &message, nil
}

// Count returns the total number of messages
func (r *Repository) Count(ctx context.Context) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "message.Repository.Count")
	defer span.End()

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM messages`); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count messages")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count messages")
	}

	return total, nil
}
