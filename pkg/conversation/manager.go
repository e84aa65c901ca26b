// Package conversation manages match conversations: sending messages,
// listing them, and the read-receipt flip that listing implies.
package conversation

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/PixieStack/indulge/pkg/database"
	"github.com/PixieStack/indulge/pkg/events"
	"github.com/PixieStack/indulge/pkg/metrics"
	"github.com/PixieStack/indulge/pkg/models"
	"github.com/PixieStack/indulge/pkg/tracing"
)

// UserRepository is the user storage the manager depends on
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// MatchRepository is the match storage
type MatchRepository interface {
	GetByID(ctx context.Context, id string) (*models.Match, error)
	ListActiveForUser(ctx context.Context, userID string) ([]models.Match, error)
	TouchLastMessage(ctx context.Context, id string, at time.Time) error
	SetActive(ctx context.Context, id string, active bool) error
}

// MessageRepository is the message storage
type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) (*models.Message, error)
	ListByMatch(ctx context.Context, matchID string) ([]models.Message, error)
	MarkViewed(ctx context.Context, matchID, receiverID string) error
	LatestForMatch(ctx context.Context, matchID string) (*models.Message, error)
}

// Manager handles conversation operations
type Manager struct {
	db       database.DB
	users    UserRepository
	matches  MatchRepository
	messages MessageRepository
	emitter  *events.Emitter
	logger   ectologger.Logger
}

// NewManager creates a new conversation manager
func NewManager(
	db database.DB,
	users UserRepository,
	matches MatchRepository,
	messages MessageRepository,
	emitter *events.Emitter,
	logger ectologger.Logger,
) *Manager {
	return &Manager{
		db:       db,
		users:    users,
		matches:  matches,
		messages: messages,
		emitter:  emitter,
		logger:   logger,
	}
}

// SendMessage delivers a message into a match. The sender must be a member,
// the receiver must be the other member, and the message needs content or
// media. The insert and the match's last_message_at bump commit together.
func (m *Manager) SendMessage(ctx context.Context, senderID string, req *models.SendMessageRequest) (*models.Message, error) {
	ctx, span := tracing.StartSpan(ctx, "conversation.Manager.SendMessage")
	defer span.End()

	match, err := m.matches.GetByID(ctx, req.MatchID)
	if err != nil {
		return nil, err
	}

	if !match.HasMember(senderID) {
		return nil, httperror.NewHTTPError(http.StatusForbidden, "not a member of this match")
	}
	if req.ReceiverID != match.OtherUser(senderID) {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "receiver is not the other member of this match")
	}
	if !match.IsActive {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "match is no longer active")
	}

	hasContent := req.Content != nil && strings.TrimSpace(*req.Content) != ""
	hasMedia := req.MediaURL != nil && *req.MediaURL != ""
	if !hasContent && !hasMedia {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "message needs content or media")
	}

	txCtx, tx, err := m.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to send message")
	}
	defer tx.Rollback(ctx)

	message := &models.Message{
		MatchID:    match.ID,
		SenderID:   senderID,
		ReceiverID: req.ReceiverID,
		Content:    req.Content,
		MediaURL:   req.MediaURL,
		MediaType:  req.MediaType,
		ViewOnce:   req.ViewOnce,
	}
	if _, err := m.messages.Create(txCtx, message); err != nil {
		return nil, err
	}

	if err := m.matches.TouchLastMessage(txCtx, match.ID, message.CreatedAt); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to send message")
	}

	metrics.MessagesTotal.Inc()
	m.emitter.EmitMessageSent(ctx, match, message)

	return message, nil
}

// ListMessages returns the match's messages in chronological order and marks
// the caller's unviewed messages as viewed. The flip and the read commit
// together, so the caller sees the viewed state their listing produced.
func (m *Manager) ListMessages(ctx context.Context, userID, matchID string) ([]models.Message, error) {
	ctx, span := tracing.StartSpan(ctx, "conversation.Manager.ListMessages")
	defer span.End()

	match, err := m.matches.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}

	if !match.HasMember(userID) {
		return nil, httperror.NewHTTPError(http.StatusForbidden, "not a member of this match")
	}

	txCtx, tx, err := m.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list messages")
	}
	defer tx.Rollback(ctx)

	if err := m.messages.MarkViewed(txCtx, matchID, userID); err != nil {
		return nil, err
	}

	messages, err := m.messages.ListByMatch(txCtx, matchID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list messages")
	}

	if messages == nil {
		messages = []models.Message{}
	}

	return messages, nil
}

// Unmatch deactivates a match. The row and its messages are kept; the match
// stops appearing in listings and rejects new messages. Unmatching an already
// inactive match is a no-op.
func (m *Manager) Unmatch(ctx context.Context, userID, matchID string) error {
	ctx, span := tracing.StartSpan(ctx, "conversation.Manager.Unmatch")
	defer span.End()

	match, err := m.matches.GetByID(ctx, matchID)
	if err != nil {
		return err
	}

	if !match.HasMember(userID) {
		return httperror.NewHTTPError(http.StatusForbidden, "not a member of this match")
	}

	if !match.IsActive {
		return nil
	}

	if err := m.matches.SetActive(ctx, matchID, false); err != nil {
		return err
	}

	m.logger.WithContext(ctx).WithFields(map[string]any{"match_id": matchID, "user_id": userID}).Info("Match deactivated")
	return nil
}

// Summaries returns the caller's active matches ordered by most recent
// conversation activity, each with the counterpart's profile summary and the
// latest message preview.
func (m *Manager) Summaries(ctx context.Context, userID string) ([]models.ConversationSummary, error) {
	ctx, span := tracing.StartSpan(ctx, "conversation.Manager.Summaries")
	defer span.End()

	matches, err := m.matches.ListActiveForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.ConversationSummary, 0, len(matches))
	for i := range matches {
		match := &matches[i]

		other, err := m.users.GetByID(ctx, match.OtherUser(userID))
		if err != nil {
			// Counterpart rows can disappear under admin cleanup; skip
			// rather than fail the whole listing.
			m.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"match_id": match.ID}).Warn("Failed to load match counterpart")
			continue
		}

		summary := models.ConversationSummary{
			ID:           match.ID,
			User1ID:      match.User1ID,
			User2ID:      match.User2ID,
			MatchContext: match.MatchContext,
			CreatedAt:    match.CreatedAt,
			OtherUser: &models.MatchProfile{
				ID:         other.ID,
				FirstName:  other.FirstName,
				Age:        other.Age,
				Photos:     other.Photos,
				LastActive: &other.LastActive,
			},
		}

		latest, err := m.messages.LatestForMatch(ctx, match.ID)
		if err != nil {
			return nil, err
		}
		if latest != nil {
			summary.LastMessage = &models.MessageSummary{
				ID:        latest.ID,
				Content:   latest.Content,
				SenderID:  latest.SenderID,
				CreatedAt: latest.CreatedAt,
			}
		}

		summaries = append(summaries, summary)
	}

	return summaries, nil
}
