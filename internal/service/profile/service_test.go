package profile_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/amoradev/amora/internal/app"
	"github.com/amoradev/amora/internal/apperrors"
	"github.com/amoradev/amora/internal/config"
	"github.com/amoradev/amora/internal/db"
	"github.com/amoradev/amora/internal/service/profile"
)

func setupService(t *testing.T) (*profile.Service, *app.AppContext) {
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
	require.NoError(t, db.SeedCatalog(dbase))

	user := db.User{ID: 1, Nickname: "alice", Email: "alice@test.com", PasswordHash: "x", Role: db.RoleUser, Active: true}
	require.NoError(t, dbase.Create(&user).Error)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	appCtx := app.New(dbase, nil, logger, config.New())
	return profile.NewService(appCtx), appCtx
}

func typeIDsByName(t *testing.T, appCtx *app.AppContext, names ...string) []uint64 {
	t.Helper()
	ids := make([]uint64, 0, len(names))
	for _, name := range names {
		var mt db.MatchType
		require.NoError(t, appCtx.DB.Where("name = ?", name).First(&mt).Error)
		ids = append(ids, mt.ID)
	}
	return ids
}

func TestReplacePreferencesSwapsWholeSet(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)

	require.NoError(t, svc.ReplacePreferences(ctx, 1, typeIDsByName(t, appCtx, "romantic", "friend")))

	prefs, err := svc.GetPreferences(ctx, 1)
	require.NoError(t, err)
	require.Len(t, prefs, 2)

	// second call fully replaces, nothing lingers from the first set
	require.NoError(t, svc.ReplacePreferences(ctx, 1, typeIDsByName(t, appCtx, "business")))

	prefs, err = svc.GetPreferences(ctx, 1)
	require.NoError(t, err)
	require.Len(t, prefs, 1)
	assert.Equal(t, "business", prefs[0].Name)

	// empty set clears everything
	require.NoError(t, svc.ReplacePreferences(ctx, 1, nil))
	prefs, err = svc.GetPreferences(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, prefs)
}

func TestReplacePreferencesValidation(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)

	ids := typeIDsByName(t, appCtx, "romantic")

	err := svc.ReplacePreferences(ctx, 1, []uint64{ids[0], ids[0]})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	err = svc.ReplacePreferences(ctx, 1, []uint64{9999})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	// a rejected update leaves the stored set untouched
	require.NoError(t, svc.ReplacePreferences(ctx, 1, ids))
	err = svc.ReplacePreferences(ctx, 1, []uint64{9999})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	prefs, err := svc.GetPreferences(ctx, 1)
	require.NoError(t, err)
	require.Len(t, prefs, 1)
	assert.Equal(t, "romantic", prefs[0].Name)
}

func TestListMatchTypes(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	types, err := svc.ListMatchTypes(ctx)
	require.NoError(t, err)
	names := make([]string, 0, len(types))
	for _, mt := range types {
		names = append(names, mt.Name)
	}
	assert.ElementsMatch(t, db.DefaultMatchTypes, names)
}

func TestUpsertLocationSingleRow(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)

	loc, err := svc.UpsertLocation(ctx, 1, 51.5, -0.12, "London")
	require.NoError(t, err)
	assert.Equal(t, "London", loc.Address)

	loc, err = svc.UpsertLocation(ctx, 1, 48.85, 2.35, "Paris")
	require.NoError(t, err)
	assert.Equal(t, "Paris", loc.Address)
	assert.InDelta(t, 48.85, loc.Latitude, 1e-9)

	var count int64
	require.NoError(t, appCtx.DB.Model(&db.UserLocation{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUpsertLocationRangeValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	_, err := svc.UpsertLocation(ctx, 1, 91, 0, "")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.UpsertLocation(ctx, 1, 0, -181, "")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}
