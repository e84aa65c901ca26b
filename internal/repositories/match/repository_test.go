package match_test

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/PixieStack/indulge/internal/repositories/match"
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

func createTestUser(t *testing.T, db database.DB, role models.Role) *models.User {
	t.Helper()
	repo := user.NewRepository(db, getTestLogger())

	id := uuid.New().String()
	created, err := repo.Create(context.Background(), &models.User{
		ID:        id,
		Email:     id + "@test.local",
		Role:      role,
		FirstName: "Test",
	})
	require.NoError(t, err)
	return created
}

func TestMatchRepository_Create(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := getTestDB(t)
	repo := match.NewRepository(db, getTestLogger())
	ctx := context.Background()

	baby := createTestUser(t, db, models.RoleBaby)
	daddy := createTestUser(t, db, models.RoleDaddy)

	context1 := "photo_0"
	created, isNew, err := repo.Create(ctx, &models.Match{
		User1ID:      baby.ID,
		User2ID:      daddy.ID,
		MatchContext: &context1,
	})
	require.NoError(t, err)
	require.True(t, isNew)
	require.NotNil(t, created)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, models.PairKey(baby.ID, daddy.ID), created.PairKey)
	assert.True(t, created.IsActive)

	// same pair in reversed order is a silent no-op
	dup, isNew, err := repo.Create(ctx, &models.Match{
		User1ID: daddy.ID,
		User2ID: baby.ID,
	})
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Nil(t, dup)

	// the original row is the one the pair key resolves to, both orders
	existing, err := repo.GetByPairKey(ctx, daddy.ID, baby.ID)
	require.NoError(t, err)
	require.NotNil(t, existing)
	assert.Equal(t, created.ID, existing.ID)

	existing, err = repo.GetByPairKey(ctx, baby.ID, daddy.ID)
	require.NoError(t, err)
	require.NotNil(t, existing)
	assert.Equal(t, created.ID, existing.ID)
}

func TestMatchRepository_GetByPairKey_Missing(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := getTestDB(t)
	repo := match.NewRepository(db, getTestLogger())

	missing, err := repo.GetByPairKey(context.Background(), uuid.New().String(), uuid.New().String())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMatchRepository_GetByID_NotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := getTestDB(t)
	repo := match.NewRepository(db, getTestLogger())

	_, err := repo.GetByID(context.Background(), uuid.New().String())
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
}

func TestMatchRepository_ListActiveForUser(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := getTestDB(t)
	repo := match.NewRepository(db, getTestLogger())
	ctx := context.Background()

	baby := createTestUser(t, db, models.RoleBaby)
	daddy := createTestUser(t, db, models.RoleDaddy)
	mommy := createTestUser(t, db, models.RoleMommy)

	first, _, err := repo.Create(ctx, &models.Match{User1ID: baby.ID, User2ID: daddy.ID})
	require.NoError(t, err)
	second, _, err := repo.Create(ctx, &models.Match{User1ID: baby.ID, User2ID: mommy.ID})
	require.NoError(t, err)

	// recent conversation activity sorts ahead of quiet matches
	require.NoError(t, repo.TouchLastMessage(ctx, first.ID, time.Now().UTC()))

	matches, err := repo.ListActiveForUser(ctx, baby.ID)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, first.ID, matches[0].ID)
	assert.Equal(t, second.ID, matches[1].ID)

	// deactivated matches drop out of the listing
	require.NoError(t, repo.SetActive(ctx, second.ID, false))
	matches, err = repo.ListActiveForUser(ctx, baby.ID)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, first.ID, matches[0].ID)
}

func TestMatchRepository_TouchLastMessage_NotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := getTestDB(t)
	repo := match.NewRepository(db, getTestLogger())

	err := repo.TouchLastMessage(context.Background(), uuid.New().String(), time.Now().UTC())
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
}
