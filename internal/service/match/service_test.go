package match_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/amoradev/amora/internal/app"
	"github.com/amoradev/amora/internal/apperrors"
	"github.com/amoradev/amora/internal/cache"
	"github.com/amoradev/amora/internal/config"
	"github.com/amoradev/amora/internal/db"
	"github.com/amoradev/amora/internal/service/match"
)

// setupService spins up an in-memory SQLite DB, applies migrations,
// seeds three users, starts a miniredis, and wires everything into a
// matching engine. Each test gets its own isolated DB + Redis.
func setupService(t *testing.T) (*match.Service, *app.AppContext) {
	t.Helper()

	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	dbase, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := dbase.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, dbase.AutoMigrate(db.Models()...))

	users := []db.User{
		{ID: 1, Nickname: "alice", Email: "alice@test.com", PasswordHash: "x", Role: db.RoleUser, Active: true},
		{ID: 2, Nickname: "bob", Email: "bob@test.com", PasswordHash: "x", Role: db.RoleUser, Active: true},
		{ID: 3, Nickname: "carol", Email: "carol@test.com", PasswordHash: "x", Role: db.RoleUser, Active: true},
	}
	require.NoError(t, dbase.Create(&users).Error)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()

	redisCache := cache.NewRedisCache(cfg)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	appCtx := app.New(dbase, redisCache, logger, cfg)
	return match.NewService(appCtx), appCtx
}

// TestMutualLikeScenario walks the canonical flow: one-way like is no
// match, the reciprocal like creates exactly one active match, a
// dislike deactivates it and the match disappears from the listing.
func TestMutualLikeScenario(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)

	// A likes B → no match yet
	res, err := svc.RecordInteraction(ctx, 1, 2, db.StatusLike)
	require.NoError(t, err)
	assert.False(t, res.IsMatch)
	assert.Nil(t, res.Match)

	// B likes A → match for pair (1,2)
	res, err = svc.RecordInteraction(ctx, 2, 1, db.StatusLike)
	require.NoError(t, err)
	assert.True(t, res.IsMatch)
	require.NotNil(t, res.Match)
	assert.Equal(t, uint64(1), res.Match.User1ID)
	assert.Equal(t, uint64(2), res.Match.User2ID)
	assert.True(t, res.Match.IsActive)

	matches, err := svc.GetUserMatches(ctx, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, uint64(2), matches[0].UserID)
	assert.Equal(t, "bob", matches[0].Nickname)

	// A dislikes B → match deactivated, like history retained
	res, err = svc.RecordInteraction(ctx, 1, 2, db.StatusDislike)
	require.NoError(t, err)
	assert.False(t, res.IsMatch)

	matches, err = svc.GetUserMatches(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, matches)

	var likeCount int64
	require.NoError(t, appCtx.DB.Model(&db.UserLike{}).Count(&likeCount).Error)
	assert.Equal(t, int64(2), likeCount)
}

// TestMatchOrderIndependence: the same single match appears no matter
// which side likes first.
func TestMatchOrderIndependence(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)

	_, err := svc.RecordInteraction(ctx, 2, 1, db.StatusLike)
	require.NoError(t, err)
	res, err := svc.RecordInteraction(ctx, 1, 2, db.StatusLike)
	require.NoError(t, err)
	require.True(t, res.IsMatch)

	var count int64
	require.NoError(t, appCtx.DB.Model(&db.UserMatch{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, uint64(1), res.Match.User1ID)
	assert.Equal(t, uint64(2), res.Match.User2ID)
}

// TestReactivationReusesRow: reversing a dislike back to like while the
// other side still likes reactivates the existing match row with a
// refreshed timestamp instead of creating a duplicate.
func TestReactivationReusesRow(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)

	_, err := svc.RecordInteraction(ctx, 1, 2, db.StatusLike)
	require.NoError(t, err)
	res, err := svc.RecordInteraction(ctx, 2, 1, db.StatusLike)
	require.NoError(t, err)
	originalID := res.Match.ID
	originalAt := res.Match.MatchedAt

	_, err = svc.RecordInteraction(ctx, 1, 2, db.StatusDislike)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	res, err = svc.RecordInteraction(ctx, 1, 2, db.StatusLike)
	require.NoError(t, err)
	require.True(t, res.IsMatch)
	assert.Equal(t, originalID, res.Match.ID)
	assert.True(t, res.Match.IsActive)
	assert.True(t, res.Match.MatchedAt.After(originalAt) || res.Match.MatchedAt.Equal(originalAt))

	var count int64
	require.NoError(t, appCtx.DB.Model(&db.UserMatch{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

// TestRepeatInteractionIdempotent: recording the same decision twice
// leaves exactly one like row with that status.
func TestRepeatInteractionIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)

	_, err := svc.RecordInteraction(ctx, 1, 3, db.StatusDislike)
	require.NoError(t, err)
	_, err = svc.RecordInteraction(ctx, 1, 3, db.StatusDislike)
	require.NoError(t, err)

	var likes []db.UserLike
	require.NoError(t, appCtx.DB.Find(&likes).Error)
	require.Len(t, likes, 1)
	assert.Equal(t, db.StatusDislike, likes[0].Status)
}

func TestInteractionValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	_, err := svc.RecordInteraction(ctx, 1, 1, db.StatusLike)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.RecordInteraction(ctx, 1, 2, "MAYBE")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	// missing likee aborts before any write
	_, err = svc.RecordInteraction(ctx, 1, 404, db.StatusLike)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestParseStatus(t *testing.T) {
	status, err := match.ParseStatus("like")
	require.NoError(t, err)
	assert.Equal(t, db.StatusLike, status)

	status, err = match.ParseStatus(" DISLIKE ")
	require.NoError(t, err)
	assert.Equal(t, db.StatusDislike, status)

	_, err = match.ParseStatus("superlike")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

// TestCountLikersCacheFallback verifies the cache-first count: first
// call falls back to the DB and warms the cache, a stale cached value
// is then served as-is until it expires.
func TestCountLikersCacheFallback(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)

	_, err := svc.RecordInteraction(ctx, 2, 1, db.StatusLike)
	require.NoError(t, err)
	_, err = svc.RecordInteraction(ctx, 3, 1, db.StatusLike)
	require.NoError(t, err)

	// cache was bumped by the interactions themselves
	count, err := svc.CountLikers(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// wipe the key → next read falls back to the DB and rewarms
	require.NoError(t, appCtx.RedisCache.Client.Del(ctx, appCtx.RedisCache.KeyForLikeCount(1)).Err())
	count, err = svc.CountLikers(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	cached, ok, err := appCtx.RedisCache.GetLikeCount(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(2), cached)
}

func TestListLikersExcludesDisliked(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	_, err := svc.RecordInteraction(ctx, 2, 1, db.StatusLike)
	require.NoError(t, err)
	_, err = svc.RecordInteraction(ctx, 3, 1, db.StatusLike)
	require.NoError(t, err)
	// user 1 dislikes 3 → 3 drops out of the listing
	_, err = svc.RecordInteraction(ctx, 1, 3, db.StatusDislike)
	require.NoError(t, err)

	page, err := svc.ListLikers(ctx, 1, nil, 10)
	require.NoError(t, err)
	require.Len(t, page.Likers, 1)
	assert.Equal(t, uint64(2), page.Likers[0].UserID)
}

func TestListLikersBadToken(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	bad := "not-base64!"
	_, err := svc.ListLikers(ctx, 1, &bad, 10)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}
