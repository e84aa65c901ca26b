package matches_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appcontext "github.com/PixieStack/indulge/pkg/context"
	"github.com/PixieStack/indulge/pkg/conversation"
	"github.com/PixieStack/indulge/pkg/database"
	"github.com/PixieStack/indulge/pkg/events"
	"github.com/PixieStack/indulge/pkg/models"
	"github.com/PixieStack/indulge/pkg/routes/matches"
)

func getTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

type fakeTx struct {
	committed  bool
	rolledBack bool
}

func (t *fakeTx) IsOpen() bool { return !t.committed && !t.rolledBack }
func (t *fakeTx) Commit(ctx context.Context) error {
	t.committed = true
	return nil
}
func (t *fakeTx) Rollback(ctx context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}
func (t *fakeTx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return nil, nil
}
func (t *fakeTx) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	return nil
}
func (t *fakeTx) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	return nil
}
func (t *fakeTx) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return nil
}
func (t *fakeTx) QueryRowxContext(ctx context.Context, query string, args ...any) *sqlx.Row {
	return nil
}

type fakeDB struct {
	database.DB
	tx *fakeTx
}

func (d *fakeDB) GetTx(ctx context.Context, opts *sql.TxOptions) (context.Context, database.Tx, error) {
	return ctx, d.tx, nil
}

type fakeUsers struct {
	users map[string]*models.User
}

func (f *fakeUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "user not found")
	}
	return u, nil
}

type fakeMatches struct {
	byID map[string]*models.Match
}

func (f *fakeMatches) GetByID(ctx context.Context, id string) (*models.Match, error) {
	match, ok := f.byID[id]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "match not found")
	}
	return match, nil
}

func (f *fakeMatches) ListActiveForUser(ctx context.Context, userID string) ([]models.Match, error) {
	var out []models.Match
	for _, match := range f.byID {
		if match.IsActive && match.HasMember(userID) {
			out = append(out, *match)
		}
	}
	return out, nil
}

func (f *fakeMatches) TouchLastMessage(ctx context.Context, id string, at time.Time) error {
	match, ok := f.byID[id]
	if !ok {
		return httperror.NewHTTPError(http.StatusNotFound, "match not found")
	}
	match.LastMessageAt = &at
	return nil
}

func (f *fakeMatches) SetActive(ctx context.Context, id string, active bool) error {
	match, ok := f.byID[id]
	if !ok {
		return httperror.NewHTTPError(http.StatusNotFound, "match not found")
	}
	match.IsActive = active
	return nil
}

type fakeMessages struct {
	messages []*models.Message
}

func (f *fakeMessages) Create(ctx context.Context, message *models.Message) (*models.Message, error) {
	message.ID = uuid.New().String()
	message.CreatedAt = time.Now().UTC()
	f.messages = append(f.messages, message)
	return message, nil
}

func (f *fakeMessages) ListByMatch(ctx context.Context, matchID string) ([]models.Message, error) {
	var out []models.Message
	for _, msg := range f.messages {
		if msg.MatchID == matchID {
			out = append(out, *msg)
		}
	}
	return out, nil
}

func (f *fakeMessages) MarkViewed(ctx context.Context, matchID, receiverID string) error {
	for _, msg := range f.messages {
		if msg.MatchID == matchID && msg.ReceiverID == receiverID {
			msg.Viewed = true
		}
	}
	return nil
}

func (f *fakeMessages) LatestForMatch(ctx context.Context, matchID string) (*models.Message, error) {
	var latest *models.Message
	for _, msg := range f.messages {
		if msg.MatchID != matchID {
			continue
		}
		if latest == nil || msg.CreatedAt.After(latest.CreatedAt) {
			latest = msg
		}
	}
	return latest, nil
}

func registerManager(t *testing.T) *fakeMatches {
	t.Helper()
	logger := getTestLogger()
	db := &fakeDB{tx: &fakeTx{}}
	users := &fakeUsers{users: map[string]*models.User{
		"alice": {ID: "alice", FirstName: "Alice"},
		"bob":   {ID: "bob", FirstName: "Bob"},
	}}
	matchStore := &fakeMatches{byID: map[string]*models.Match{
		"m-1": {ID: "m-1", User1ID: "alice", User2ID: "bob", IsActive: true, CreatedAt: time.Now().UTC()},
	}}
	manager := conversation.NewManager(db, users, matchStore, &fakeMessages{}, events.NewEmitter(nil, logger), logger)

	container := ectoinject.GetDefaultContainer()
	if container == nil {
		var err error
		container, err = ectoinject.NewDIDefaultContainer()
		require.NoError(t, err)
	}
	require.NoError(t, ectoinject.RegisterInstance[*conversation.Manager](container, manager))
	return matchStore
}

func newContext(method, target, userID string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, nil)
	req = req.WithContext(appcontext.SetUserID(req.Context(), userID))
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec), rec
}

func TestListResponseShape(t *testing.T) {
	registerManager(t)

	c, rec := newContext(http.MethodGet, "/api/matches", "alice")
	require.NoError(t, matches.List(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string][]models.ConversationSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Contains(t, body, "matches")
	require.Len(t, body["matches"], 1)
	assert.Equal(t, "m-1", body["matches"][0].ID)
}

func TestListResponseShapeEmpty(t *testing.T) {
	matchStore := registerManager(t)
	matchStore.byID["m-1"].IsActive = false

	c, rec := newContext(http.MethodGet, "/api/matches", "alice")
	require.NoError(t, matches.List(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"matches":[]}`, rec.Body.String())
}

func TestUnmatchRoute(t *testing.T) {
	matchStore := registerManager(t)

	c, rec := newContext(http.MethodDelete, "/api/matches/m-1", "alice")
	c.SetParamNames("id")
	c.SetParamValues("m-1")
	require.NoError(t, matches.Unmatch(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body["success"])
	assert.False(t, matchStore.byID["m-1"].IsActive)
}

func TestUnmatchRouteNonMember(t *testing.T) {
	matchStore := registerManager(t)

	c, _ := newContext(http.MethodDelete, "/api/matches/m-1", "mallory")
	c.SetParamNames("id")
	c.SetParamValues("m-1")
	err := matches.Unmatch(c)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, httperror.GetStatusCode(err))
	assert.True(t, matchStore.byID["m-1"].IsActive)
}
