// Package matching implements the like/pass ledger and mutual match
// detection. A like that completes a reciprocal pair creates the match in the
// same transaction as the like itself, so a crash never leaves a mutual pair
// unmatched.
package matching

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/PixieStack/indulge/pkg/database"
	"github.com/PixieStack/indulge/pkg/events"
	"github.com/PixieStack/indulge/pkg/metrics"
	"github.com/PixieStack/indulge/pkg/models"
	"github.com/PixieStack/indulge/pkg/tracing"
)

// DefaultLikedElement is recorded when the client does not say which profile
// element was liked.
const DefaultLikedElement = "profile"

// UserRepository is the user storage the matcher depends on
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// InteractionRepository is the like/pass ledger storage
type InteractionRepository interface {
	CreateLike(ctx context.Context, like *models.Like) (*models.Like, error)
	CreatePass(ctx context.Context, pass *models.Pass) (*models.Pass, error)
	HasLikeFrom(ctx context.Context, fromUserID, toUserID string) (bool, error)
	ListLikesReceived(ctx context.Context, userID string, limit int) ([]models.Like, error)
}

// MatchRepository is the match storage
type MatchRepository interface {
	Create(ctx context.Context, match *models.Match) (*models.Match, bool, error)
	GetByPairKey(ctx context.Context, userA, userB string) (*models.Match, error)
}

// Matcher records likes and passes and creates matches from mutual likes
type Matcher struct {
	db           database.DB
	users        UserRepository
	interactions InteractionRepository
	matches      MatchRepository
	emitter      *events.Emitter
	logger       ectologger.Logger
}

// NewMatcher creates a new matcher
func NewMatcher(
	db database.DB,
	users UserRepository,
	interactions InteractionRepository,
	matches MatchRepository,
	emitter *events.Emitter,
	logger ectologger.Logger,
) *Matcher {
	return &Matcher{
		db:           db,
		users:        users,
		interactions: interactions,
		matches:      matches,
		emitter:      emitter,
		logger:       logger,
	}
}

// Like records a like from fromUserID and reports whether it completed a
// mutual pair. The like insert, the reciprocal check, and the match insert
// run in one transaction. When the pair is already matched the like is still
// recorded and the existing match is reported.
func (m *Matcher) Like(ctx context.Context, fromUserID string, req *models.LikeRequest) (*models.LikeResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Matcher.Like")
	defer span.End()

	if fromUserID == req.ToUserID {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "cannot like yourself")
	}

	if _, err := m.users.GetByID(ctx, req.ToUserID); err != nil {
		return nil, err
	}

	likedElement := req.LikedElement
	if likedElement == "" {
		likedElement = DefaultLikedElement
	}

	txCtx, tx, err := m.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to record like")
	}
	defer tx.Rollback(ctx)

	like := &models.Like{
		FromUserID:   fromUserID,
		ToUserID:     req.ToUserID,
		LikedElement: likedElement,
		Comment:      req.Comment,
	}
	if _, err := m.interactions.CreateLike(txCtx, like); err != nil {
		return nil, err
	}

	reciprocal, err := m.interactions.HasLikeFrom(txCtx, req.ToUserID, fromUserID)
	if err != nil {
		return nil, err
	}

	if !reciprocal {
		if err := tx.Commit(txCtx); err != nil {
			return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to record like")
		}
		metrics.LikesTotal.Inc()
		return &models.LikeResponse{Matched: false}, nil
	}

	// User1 is the side whose like completed the pair; the match context is
	// that like's element.
	match := &models.Match{
		User1ID:      fromUserID,
		User2ID:      req.ToUserID,
		MatchContext: &likedElement,
	}
	created, isNew, err := m.matches.Create(txCtx, match)
	if err != nil {
		return nil, err
	}

	if !isNew {
		existing, err := m.matches.GetByPairKey(txCtx, fromUserID, req.ToUserID)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			m.logger.WithContext(ctx).WithFields(map[string]any{"from_user_id": fromUserID, "to_user_id": req.ToUserID}).Error("Match insert skipped but no existing match found")
			return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create match")
		}
		created = existing
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to record like")
	}

	metrics.LikesTotal.Inc()
	if isNew {
		metrics.MatchesTotal.Inc()
		m.emitter.EmitMatchCreated(ctx, created)
		m.logger.WithContext(ctx).WithFields(map[string]any{"match_id": created.ID}).Info("Match created")
	}

	return &models.LikeResponse{Matched: true, MatchID: created.ID}, nil
}

// Pass records a pass from fromUserID. Passes only feed the discovery
// exclusion set; they never affect existing matches.
func (m *Matcher) Pass(ctx context.Context, fromUserID string, req *models.PassRequest) error {
	ctx, span := tracing.StartSpan(ctx, "matching.Matcher.Pass")
	defer span.End()

	if fromUserID == req.ToUserID {
		return httperror.NewHTTPError(http.StatusBadRequest, "cannot pass on yourself")
	}

	if _, err := m.users.GetByID(ctx, req.ToUserID); err != nil {
		return err
	}

	pass := &models.Pass{
		FromUserID: fromUserID,
		ToUserID:   req.ToUserID,
	}
	if _, err := m.interactions.CreatePass(ctx, pass); err != nil {
		return err
	}

	metrics.PassesTotal.Inc()
	return nil
}

// likesReceivedLimit caps the likes-received listing.
const likesReceivedLimit = 50

// LikesReceived returns the most recent likes sent to userID, each with the
// sender's trimmed profile. Likes whose sender no longer resolves are skipped.
func (m *Matcher) LikesReceived(ctx context.Context, userID string) ([]models.ReceivedLike, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Matcher.LikesReceived")
	defer span.End()

	likes, err := m.interactions.ListLikesReceived(ctx, userID, likesReceivedLimit)
	if err != nil {
		return nil, err
	}

	received := make([]models.ReceivedLike, 0, len(likes))
	for i := range likes {
		like := &likes[i]

		sender, err := m.users.GetByID(ctx, like.FromUserID)
		if err != nil {
			m.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"like_id": like.ID}).Warn("Failed to load like sender")
			continue
		}

		received = append(received, models.ReceivedLike{
			ID: like.ID,
			FromUser: &models.MatchProfile{
				ID:         sender.ID,
				FirstName:  sender.FirstName,
				Age:        sender.Age,
				Photos:     sender.Photos,
				LastActive: &sender.LastActive,
			},
			LikedElement: like.LikedElement,
			Comment:      like.Comment,
			CreatedAt:    like.CreatedAt,
		})
	}

	return received, nil
}
