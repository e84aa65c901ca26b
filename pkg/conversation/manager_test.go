package conversation

import (
	"context"
	"database/sql"
	"net/http"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/PixieStack/indulge/pkg/database"
	"github.com/PixieStack/indulge/pkg/events"
	"github.com/PixieStack/indulge/pkg/models"
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

func strPtr(s string) *string { return &s }

func newTestManager() (*Manager, *fakeDB, *fakeMatches, *fakeMessages) {
	logger := getTestLogger()
	db := &fakeDB{tx: &fakeTx{}}
	users := &fakeUsers{users: map[string]*models.User{
		"alice": {ID: "alice", FirstName: "Alice"},
		"bob":   {ID: "bob", FirstName: "Bob"},
	}}
	matches := &fakeMatches{byID: map[string]*models.Match{
		"m-1": {ID: "m-1", User1ID: "alice", User2ID: "bob", IsActive: true, CreatedAt: time.Now().UTC()},
	}}
	messages := &fakeMessages{}
	manager := NewManager(db, users, matches, messages, events.NewEmitter(nil, logger), logger)
	return manager, db, matches, messages
}

func TestSendMessage(t *testing.T) {
	manager, db, matches, messages := newTestManager()

	msg, err := manager.SendMessage(context.Background(), "alice", &models.SendMessageRequest{
		MatchID:    "m-1",
		ReceiverID: "bob",
		Content:    strPtr("hey there"),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "alice", msg.SenderID)
	assert.Equal(t, "bob", msg.ReceiverID)
	assert.False(t, msg.Viewed)
	require.Len(t, messages.messages, 1)
	assert.True(t, db.tx.committed)

	match := matches.byID["m-1"]
	require.NotNil(t, match.LastMessageAt)
	assert.Equal(t, msg.CreatedAt, *match.LastMessageAt)
}

func TestSendMessageMediaOnly(t *testing.T) {
	manager, _, _, _ := newTestManager()

	msg, err := manager.SendMessage(context.Background(), "bob", &models.SendMessageRequest{
		MatchID:    "m-1",
		ReceiverID: "alice",
		MediaURL:   strPtr("https://cdn.example.com/pic.jpg"),
		MediaType:  strPtr("image"),
		ViewOnce:   true,
	})
	require.NoError(t, err)

	assert.Nil(t, msg.Content)
	assert.True(t, msg.ViewOnce)
}

func TestSendMessageNonMember(t *testing.T) {
	manager, _, _, messages := newTestManager()

	_, err := manager.SendMessage(context.Background(), "mallory", &models.SendMessageRequest{
		MatchID:    "m-1",
		ReceiverID: "bob",
		Content:    strPtr("hi"),
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, httperror.GetStatusCode(err))
	assert.Empty(t, messages.messages)
}

func TestSendMessageWrongReceiver(t *testing.T) {
	manager, _, _, _ := newTestManager()

	_, err := manager.SendMessage(context.Background(), "alice", &models.SendMessageRequest{
		MatchID:    "m-1",
		ReceiverID: "alice",
		Content:    strPtr("hi"),
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
}

func TestSendMessageInactiveMatch(t *testing.T) {
	manager, _, matches, _ := newTestManager()
	matches.byID["m-1"].IsActive = false

	_, err := manager.SendMessage(context.Background(), "alice", &models.SendMessageRequest{
		MatchID:    "m-1",
		ReceiverID: "bob",
		Content:    strPtr("hi"),
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
}

func TestSendMessageEmptyBody(t *testing.T) {
	manager, _, _, messages := newTestManager()

	_, err := manager.SendMessage(context.Background(), "alice", &models.SendMessageRequest{
		MatchID:    "m-1",
		ReceiverID: "bob",
		Content:    strPtr("   "),
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	assert.Empty(t, messages.messages)
}

func TestSendMessageUnknownMatch(t *testing.T) {
	manager, _, _, _ := newTestManager()

	_, err := manager.SendMessage(context.Background(), "alice", &models.SendMessageRequest{
		MatchID:    "missing",
		ReceiverID: "bob",
		Content:    strPtr("hi"),
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
}

func TestListMessagesMarksReceived(t *testing.T) {
	manager, db, _, messages := newTestManager()

	messages.messages = []*models.Message{
		{ID: "msg-1", MatchID: "m-1", SenderID: "bob", ReceiverID: "alice", Content: strPtr("hi"), CreatedAt: time.Now().UTC().Add(-2 * time.Minute)},
		{ID: "msg-2", MatchID: "m-1", SenderID: "alice", ReceiverID: "bob", Content: strPtr("hello"), CreatedAt: time.Now().UTC().Add(-time.Minute)},
	}

	listed, err := manager.ListMessages(context.Background(), "alice", "m-1")
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.True(t, db.tx.committed)

	// alice's received message flips, her sent one does not
	assert.True(t, messages.messages[0].Viewed)
	assert.False(t, messages.messages[1].Viewed)

	// listing again returns the same messages with no further state change
	again, err := manager.ListMessages(context.Background(), "alice", "m-1")
	require.NoError(t, err)
	require.Len(t, again, 2)
	assert.True(t, again[0].Viewed)
	assert.False(t, again[1].Viewed)
	assert.True(t, messages.messages[0].Viewed)
	assert.False(t, messages.messages[1].Viewed)
}

func TestListMessagesNonMember(t *testing.T) {
	manager, _, _, _ := newTestManager()

	_, err := manager.ListMessages(context.Background(), "mallory", "m-1")
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, httperror.GetStatusCode(err))
}

func TestListMessagesEmpty(t *testing.T) {
	manager, _, _, _ := newTestManager()

	listed, err := manager.ListMessages(context.Background(), "alice", "m-1")
	require.NoError(t, err)
	assert.NotNil(t, listed)
	assert.Empty(t, listed)
}

func TestUnmatchDeactivates(t *testing.T) {
	manager, _, matches, _ := newTestManager()

	err := manager.Unmatch(context.Background(), "alice", "m-1")
	require.NoError(t, err)
	assert.False(t, matches.byID["m-1"].IsActive)

	// the deactivated match rejects new messages
	_, err = manager.SendMessage(context.Background(), "bob", &models.SendMessageRequest{
		MatchID:    "m-1",
		ReceiverID: "alice",
		Content:    strPtr("come back"),
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))

	// and drops out of listings
	summaries, err := manager.Summaries(context.Background(), "bob")
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestUnmatchIdempotent(t *testing.T) {
	manager, _, matches, _ := newTestManager()
	matches.byID["m-1"].IsActive = false

	err := manager.Unmatch(context.Background(), "alice", "m-1")
	require.NoError(t, err)
	assert.False(t, matches.byID["m-1"].IsActive)
}

func TestUnmatchNonMember(t *testing.T) {
	manager, _, matches, _ := newTestManager()

	err := manager.Unmatch(context.Background(), "mallory", "m-1")
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, httperror.GetStatusCode(err))
	assert.True(t, matches.byID["m-1"].IsActive)
}

func TestUnmatchUnknownMatch(t *testing.T) {
	manager, _, _, _ := newTestManager()

	err := manager.Unmatch(context.Background(), "alice", "missing")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
}

func TestSummaries(t *testing.T) {
	manager, _, _, messages := newTestManager()

	messages.messages = []*models.Message{
		{ID: "msg-1", MatchID: "m-1", SenderID: "bob", ReceiverID: "alice", Content: strPtr("latest"), CreatedAt: time.Now().UTC()},
	}

	summaries, err := manager.Summaries(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	summary := summaries[0]
	assert.Equal(t, "m-1", summary.ID)
	require.NotNil(t, summary.OtherUser)
	assert.Equal(t, "bob", summary.OtherUser.ID)
	assert.Equal(t, "Bob", summary.OtherUser.FirstName)
	require.NotNil(t, summary.LastMessage)
	assert.Equal(t, "msg-1", summary.LastMessage.ID)
}

func TestSummariesSkipsMissingCounterpart(t *testing.T) {
	manager, _, matches, _ := newTestManager()
	matches.byID["m-2"] = &models.Match{ID: "m-2", User1ID: "alice", User2ID: "ghost", IsActive: true}

	summaries, err := manager.Summaries(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "m-1", summaries[0].ID)
}
