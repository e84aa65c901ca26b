package message_test

import (
	"context"
	"os"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/PixieStack/indulge/internal/repositories/match"
	"github.com/PixieStack/indulge/internal/repositories/message"
	"github.com/PixieStack/indulge/internal/repositories/user"
	"github.com/PixieStack/indulge/pkg/database"
	"github.com/PixieStack/indulge/pkg/models"
)

func getTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func getTestDB(t *testing.T) database.DB {
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		dbHost = "localhost"
	}
	dbUser := os.Getenv("DB_USER_NAME")
	if dbUser == "" {
		dbUser = "user"
	}
	dbPass := os.Getenv("DB_PASSWORD")
	if dbPass == "" {
		dbPass = "password"
	}
	dbName := os.Getenv("DB_NAME")
	if dbName == "" {
		dbName = "indulge"
	}

	dsn := "host=" + dbHost + " user=" + dbUser + " password=" + dbPass + " dbname=" + dbName + " sslmode=disable"
	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err, "Failed to connect to test database")

	return database.NewDatabaseInstance(db, getTestLogger())
}

func strPtr(s string) *string { return &s }

// createTestMatch seeds two users and an active match between them.
func createTestMatch(t *testing.T, db database.DB) (*models.Match, *models.User, *models.User) {
	t.Helper()
	logger := getTestLogger()
	users := user.NewRepository(db, logger)
	matches := match.NewRepository(db, logger)
	ctx := context.Background()

	newUser := func(role models.Role) *models.User {
		id := uuid.New().String()
		created, err := users.Create(ctx, &models.User{
			ID:        id,
			Email:     id + "@test.local",
			Role:      role,
			FirstName: "Test",
		})
		require.NoError(t, err)
		return created
	}

	baby := newUser(models.RoleBaby)
	daddy := newUser(models.RoleDaddy)

	created, isNew, err := matches.Create(ctx, &models.Match{User1ID: baby.ID, User2ID: daddy.ID})
	require.NoError(t, err)
	require.True(t, isNew)

	return created, baby, daddy
}

func TestMessageRepository_CreateAndList(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := getTestDB(t)
	repo := message.NewRepository(db, getTestLogger())
	ctx := context.Background()

	m, baby, daddy := createTestMatch(t, db)

	first, err := repo.Create(ctx, &models.Message{
		MatchID:    m.ID,
		SenderID:   baby.ID,
		ReceiverID: daddy.ID,
		Content:    strPtr("hi"),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.Viewed)

	second, err := repo.Create(ctx, &models.Message{
		MatchID:    m.ID,
		SenderID:   daddy.ID,
		ReceiverID: baby.ID,
		MediaURL:   strPtr("https://cdn.test.local/pic.jpg"),
		MediaType:  strPtr("image"),
		ViewOnce:   true,
	})
	require.NoError(t, err)

	listed, err := repo.ListByMatch(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, first.ID, listed[0].ID)
	assert.Equal(t, second.ID, listed[1].ID)
	assert.True(t, listed[1].ViewOnce)

	latest, err := repo.LatestForMatch(ctx, m.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, second.ID, latest.ID)
}

func TestMessageRepository_MarkViewed(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := getTestDB(t)
	repo := message.NewRepository(db, getTestLogger())
	ctx := context.Background()

	m, baby, daddy := createTestMatch(t, db)

	toBaby, err := repo.Create(ctx, &models.Message{MatchID: m.ID, SenderID: daddy.ID, ReceiverID: baby.ID, Content: strPtr("for baby")})
	require.NoError(t, err)
	toDaddy, err := repo.Create(ctx, &models.Message{MatchID: m.ID, SenderID: baby.ID, ReceiverID: daddy.ID, Content: strPtr("for daddy")})
	require.NoError(t, err)

	require.NoError(t, repo.MarkViewed(ctx, m.ID, baby.ID))

	listed, err := repo.ListByMatch(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, listed, 2)

	byID := map[string]models.Message{}
	for _, msg := range listed {
		byID[msg.ID] = msg
	}
	assert.True(t, byID[toBaby.ID].Viewed)
	assert.False(t, byID[toDaddy.ID].Viewed)

	// a second pass changes nothing
	require.NoError(t, repo.MarkViewed(ctx, m.ID, baby.ID))
}

func TestMessageRepository_LatestForMatch_Empty(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := getTestDB(t)
	repo := message.NewRepository(db, getTestLogger())

	m, _, _ := createTestMatch(t, db)

	latest, err := repo.LatestForMatch(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Nil(t, latest)
}
