package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/amoradev/amora/internal/db"
	"github.com/amoradev/amora/internal/repository"
)

// setup in-memory DB
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := database.AutoMigrate(db.Models()...); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return database
}

func TestUpsertOverwritesStatus(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewLikeRepository(dbase)

	// insert like
	_, err := repo.Upsert(ctx, 1, 2, db.StatusLike)
	assert.NoError(t, err)

	// overwrite with dislike
	_, err = repo.Upsert(ctx, 1, 2, db.StatusDislike)
	assert.NoError(t, err)

	var likes []db.UserLike
	require.NoError(t, dbase.Find(&likes).Error)
	require.Len(t, likes, 1)
	assert.Equal(t, db.StatusDislike, likes[0].Status)
}

func TestUpsertIdempotent(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewLikeRepository(dbase)

	_, err := repo.Upsert(ctx, 1, 2, db.StatusLike)
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, 1, 2, db.StatusLike)
	require.NoError(t, err)

	var count int64
	require.NoError(t, dbase.Model(&db.UserLike{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestHasLiked(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewLikeRepository(dbase)

	_, err := repo.Upsert(ctx, 1, 2, db.StatusLike)
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, 2, 3, db.StatusDislike)
	require.NoError(t, err)

	liked, err := repo.HasLiked(ctx, 1, 2)
	assert.NoError(t, err)
	assert.True(t, liked)

	// dislike does not count
	liked, err = repo.HasLiked(ctx, 2, 3)
	assert.NoError(t, err)
	assert.False(t, liked)

	liked, err = repo.HasLiked(ctx, 2, 1)
	assert.NoError(t, err)
	assert.False(t, liked)
}

func TestGetLikersExcludesDisliked(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewLikeRepository(dbase)

	// likers 1,2 liked user 99
	_, _ = repo.Upsert(ctx, 1, 99, db.StatusLike)
	_, _ = repo.Upsert(ctx, 2, 99, db.StatusLike)
	// user 99 disliked liker 2 → excluded
	_, _ = repo.Upsert(ctx, 99, 2, db.StatusDislike)

	likes, _, err := repo.GetLikers(ctx, 99, nil, 10)
	assert.NoError(t, err)
	require.Len(t, likes, 1)
	assert.Equal(t, uint64(1), likes[0].LikerID)
}

func TestGetNewLikersExcludesMutual(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewLikeRepository(dbase)

	// liker 1 liked 99, and 99 liked back → mutual
	_, _ = repo.Upsert(ctx, 1, 99, db.StatusLike)
	_, _ = repo.Upsert(ctx, 99, 1, db.StatusLike)

	// liker 2 liked 99, not mutual
	_, _ = repo.Upsert(ctx, 2, 99, db.StatusLike)

	likes, _, err := repo.GetNewLikers(ctx, 99, nil, 10)
	assert.NoError(t, err)
	require.Len(t, likes, 1)
	assert.Equal(t, uint64(2), likes[0].LikerID)
}

func TestGetLikersPagination(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewLikeRepository(dbase)

	for liker := uint64(1); liker <= 5; liker++ {
		_, err := repo.Upsert(ctx, liker, 99, db.StatusLike)
		require.NoError(t, err)
	}

	first, token, err := repo.GetLikers(ctx, 99, nil, 3)
	require.NoError(t, err)
	require.Len(t, first, 3)
	require.NotNil(t, token)

	second, token2, err := repo.GetLikers(ctx, 99, token, 3)
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Nil(t, token2)

	// no overlap between pages
	seen := map[uint64]bool{}
	for _, l := range append(first, second...) {
		assert.False(t, seen[l.LikerID])
		seen[l.LikerID] = true
	}
}

func TestListDecidedIDs(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewLikeRepository(dbase)

	_, _ = repo.Upsert(ctx, 1, 2, db.StatusLike)
	_, _ = repo.Upsert(ctx, 1, 3, db.StatusDislike)
	_, _ = repo.Upsert(ctx, 2, 1, db.StatusLike)

	ids, err := repo.ListDecidedIDs(ctx, 1)
	assert.NoError(t, err)
	assert.ElementsMatch(t, []uint64{2, 3}, ids)
}
