package main

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/ecopet/ecopet/config"
	"github.com/ecopet/ecopet/models"
	"github.com/ecopet/ecopet/routes"
	"github.com/ecopet/ecopet/tasks"
	"github.com/ecopet/ecopet/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	db, err := config.InitDatabase(cfg, models.All()...)
	if err != nil {
		utils.Sugar.Fatalf("init database: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis is optional; cache and token blacklist degrade to no-op and memory.
	var rc *redis.Client
	if client, err := utils.NewRedis(ctx, cfg); err != nil {
		utils.Sugar.Warnw("redis unavailable, running without cache", "host", cfg.RedisHost, "error", err)
		_ = client.Close()
	} else {
		rc = client
		defer func() { _ = rc.Close() }()
	}

	sched := tasks.NewScheduler(utils.Logger.Named("tasks"))
	if err := tasks.NewSweeper(db, cfg, utils.Logger.Named("sweep")).Register(sched); err != nil {
		utils.Sugar.Fatalf("register tasks: %v", err)
	}
	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()

	r := routes.SetupRouter(routes.Deps{
		DB:        db,
		Config:    cfg,
		Cache:     utils.NewCache(rc),
		Issuer:    utils.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL),
		Blacklist: utils.NewTokenBlacklist(rc),
	})

	srv := utils.NewGraceServer(":"+cfg.AppPort, r)
	srv.OnShutdown(cancel)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := srv.ListenAndServe(); err != nil {
		utils.Sugar.Errorf("server stopped with error: %v", err)
	}
	cancel()
	<-done
	utils.Sugar.Info("scheduler stopped")
}
