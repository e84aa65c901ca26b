// Package feed builds the discovery feed: candidates with a complementary
// role that the viewer has not already interacted with.
package feed

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/PixieStack/indulge/pkg/metrics"
	"github.com/PixieStack/indulge/pkg/models"
	"github.com/PixieStack/indulge/pkg/tracing"
)

// UserRepository is the user storage the selector depends on
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	ListFeedCandidates(ctx context.Context, viewer *models.User, limit int) ([]models.PublicProfile, error)
}

// Selector produces discovery feeds
type Selector struct {
	users  UserRepository
	logger ectologger.Logger
	limit  int
}

// NewSelector creates a new feed selector. limit caps the feed page size.
func NewSelector(users UserRepository, logger ectologger.Logger, limit int) *Selector {
	if limit < 1 {
		limit = 20
	}
	return &Selector{
		users:  users,
		logger: logger,
		limit:  limit,
	}
}

// Feed returns discovery candidates for the viewer. Candidates the viewer has
// liked or passed never reappear; banned users and the viewer themselves are
// excluded. An empty feed is a valid result.
func (s *Selector) Feed(ctx context.Context, viewerID string) ([]models.PublicProfile, error) {
	ctx, span := tracing.StartSpan(ctx, "feed.Selector.Feed")
	defer span.End()

	viewer, err := s.users.GetByID(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	if viewer.IsBanned {
		return nil, httperror.NewHTTPError(http.StatusForbidden, "account is banned")
	}

	start := time.Now()
	profiles, err := s.users.ListFeedCandidates(ctx, viewer, s.limit)
	if err != nil {
		return nil, err
	}
	metrics.FeedRequestDuration.Observe(time.Since(start).Seconds())

	if profiles == nil {
		profiles = []models.PublicProfile{}
	}

	return profiles, nil
}
