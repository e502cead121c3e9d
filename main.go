package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"fairdraw/internal/config"
	"fairdraw/internal/drawlock"
	"fairdraw/internal/repository"
	"fairdraw/internal/scheduler"
	"fairdraw/internal/server"
	"fairdraw/internal/service"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err) // Should not happen in development
	}
	defer func() {
		_ = logger.Sync() // Flushes buffer, if any
	}()

	// Load configuration
	cfgPath := "configs/config.yml"
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}
	service.SetJWTSecret(cfg.Auth.JWTSecret)

	// Database connection
	db, err := repository.NewPostgresDB(cfg.Database.URL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	repository.MigrateDB(db, logger)

	// Context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Redis-backed draw execution lease
	rdb, err := drawlock.NewRedisClient(ctx, cfg.Redis.URL)
	if err != nil {
		logger.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()
	locker := drawlock.NewLocker(rdb)

	// Initialize repositories and services
	drawRepo := repository.NewDrawRepository(db, logger)
	entryRepo := repository.NewEntryRepository(db, logger)
	authRepo := repository.NewAuthRepository(db, logger)

	drawService := service.NewDrawService(drawRepo, entryRepo, locker, logger)
	authService := service.NewAuthService(authRepo, logger)

	// Scheduler for auto-run draws
	if cfg.Scheduler.Enabled {
		sched := scheduler.New(drawService, cfg.Scheduler.PollInterval, logger)
		if err := sched.Start(ctx); err != nil {
			logger.Fatal("Failed to start scheduler", zap.Error(err))
		}
		defer sched.Stop()
	}

	// Initialize and run the server
	srv := server.NewServer(drawService, authService, logger)
	srv.Run(cfg.Server.Port)

	<-ctx.Done()
	logger.Info("Application stopped.")
}
