package sweeper_test

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
	"github.com/amoradev/amora/internal/config"
	"github.com/amoradev/amora/internal/db"
	"github.com/amoradev/amora/internal/sweeper"
)

func setupAppCtx(t *testing.T) *app.AppContext {
	t.Helper()

	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	dbase, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := dbase.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, dbase.AutoMigrate(db.Models()...))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return app.New(dbase, nil, logger, config.New())
}

func TestRunAllDeletesExpiredLinksAndSessions(t *testing.T) {
	ctx := context.Background()
	appCtx := setupAppCtx(t)

	user := db.User{Nickname: "alice", Email: "alice@test.com", PasswordHash: "x", Role: db.RoleUser, Active: true}
	require.NoError(t, appCtx.DB.Create(&user).Error)

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	require.NoError(t, appCtx.DB.Create(&db.Session{UserID: user.ID, TokenHash: "expired", ExpiresAt: past}).Error)
	require.NoError(t, appCtx.DB.Create(&db.Session{UserID: user.ID, TokenHash: "live", ExpiresAt: future}).Error)
	require.NoError(t, appCtx.DB.Create(&db.PasswordResetLink{UserID: user.ID, TokenHash: "stale", ExpiresAt: past}).Error)
	require.NoError(t, appCtx.DB.Create(&db.PasswordResetLink{UserID: user.ID, TokenHash: "fresh", ExpiresAt: future}).Error)

	sweeper.New(appCtx).RunAll(ctx)

	var sessions []db.Session
	require.NoError(t, appCtx.DB.Find(&sessions).Error)
	require.Len(t, sessions, 1)
	assert.Equal(t, "live", sessions[0].TokenHash)

	var links []db.PasswordResetLink
	require.NoError(t, appCtx.DB.Find(&links).Error)
	require.Len(t, links, 1)
	assert.Equal(t, "fresh", links[0].TokenHash)
}

func TestRunAllDeletesStaleAccounts(t *testing.T) {
	ctx := context.Background()
	appCtx := setupAppCtx(t)

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	// never activated, link expired → swept with everything it owns
	stale := db.User{Nickname: "ghost", Email: "ghost@test.com", PasswordHash: "x", Role: db.RoleUser, Active: false}
	require.NoError(t, appCtx.DB.Create(&stale).Error)
	require.NoError(t, appCtx.DB.Create(&db.ActivationLink{UserID: stale.ID, TokenHash: "a", ExpiresAt: past}).Error)
	require.NoError(t, appCtx.DB.Create(&db.Session{UserID: stale.ID, TokenHash: "s", ExpiresAt: future}).Error)

	// activated in time → untouched even though the link expired
	active := db.User{Nickname: "alice", Email: "alice@test.com", PasswordHash: "x", Role: db.RoleUser, Active: true}
	require.NoError(t, appCtx.DB.Create(&active).Error)
	require.NoError(t, appCtx.DB.Create(&db.ActivationLink{UserID: active.ID, TokenHash: "b", ExpiresAt: past}).Error)

	// inactive but still inside the activation window → untouched
	pending := db.User{Nickname: "bob", Email: "bob@test.com", PasswordHash: "x", Role: db.RoleUser, Active: false}
	require.NoError(t, appCtx.DB.Create(&pending).Error)
	require.NoError(t, appCtx.DB.Create(&db.ActivationLink{UserID: pending.ID, TokenHash: "c", ExpiresAt: future}).Error)

	sweeper.New(appCtx).RunAll(ctx)

	var users []db.User
	require.NoError(t, appCtx.DB.Order("id").Find(&users).Error)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Nickname)
	assert.Equal(t, "bob", users[1].Nickname)

	var sessionCount int64
	require.NoError(t, appCtx.DB.Model(&db.Session{}).Where("user_id = ?", stale.ID).Count(&sessionCount).Error)
	assert.Zero(t, sessionCount)
}

func TestStartStopsOnContextCancel(t *testing.T) {
	appCtx := setupAppCtx(t)
	appCtx.Config.Sweeper.LinkInterval = 5 * time.Millisecond
	appCtx.Config.Sweeper.AccountInterval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())

	sw := sweeper.New(appCtx)
	sw.Start(ctx)

	time.Sleep(20 * time.Millisecond)
	cancel()

	done := make(chan struct{})
	go func() {
		sw.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after context cancel")
	}
}
