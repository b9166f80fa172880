package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/amoradev/amora/internal/app"
	"github.com/amoradev/amora/internal/cache"
	"github.com/amoradev/amora/internal/config"
	"github.com/amoradev/amora/internal/db"
	"github.com/amoradev/amora/internal/logger"
	"github.com/amoradev/amora/internal/server"
	"github.com/amoradev/amora/internal/service/auth"
	"github.com/amoradev/amora/internal/service/match"
	"github.com/amoradev/amora/internal/service/profile"
	"github.com/amoradev/amora/internal/service/recommend"
	"github.com/amoradev/amora/internal/sweeper"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	// Match-type catalog is reference data; seeding is idempotent.
	if err := db.SeedCatalog(database); err != nil {
		log.Error("failed to seed catalog", "err", err)
		return
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", "err", err)
		return
	}

	appCtx := app.New(database, redisCache, log, cfg)

	if cfg.App.ENV == "development" {
		if err := db.SeedTestData(database); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Background expiry sweeps, with one pass up front
	sw := sweeper.New(appCtx)
	sw.RunAll(ctx)
	sw.Start(ctx)
	defer sw.Wait()

	authReg := auth.NewRegistrar(appCtx)
	authn := auth.Authenticated(authReg.Service().Tokens())

	registrars := []server.Registrar{
		authReg,
		match.NewRegistrar(appCtx, authn),
		recommend.NewRegistrar(appCtx, authn),
		profile.NewRegistrar(appCtx, authn),
	}

	addr := cfg.HTTP.Host + ":" + cfg.HTTP.Port
	log.Info("starting HTTP server", "addr", addr)

	if err := server.StartHTTPServer(ctx, cfg, registrars...); err != nil {
		log.Error("http server stopped", "err", err)
	}
}
