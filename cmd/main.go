package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dialog/internal/app/registry"
	"dialog/internal/app/server"
	"dialog/internal/app/worker"
	"dialog/internal/config"
	"dialog/internal/core/services"
	"dialog/internal/platform/logger"
	"dialog/internal/platform/telemetry"
	"dialog/internal/plugins/postgres"
	redisPlugin "dialog/internal/plugins/redis"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Config
	_ = godotenv.Load()
	cfg := config.Load()

	// Logger
	log := logger.NewLogger(*cfg)
	log.Info("starting application")

	otelShutdown, err := telemetry.InitTelemetry(ctx, *cfg)
	if err != nil {
		log.Error("failed to initialize telemetry", "err", err)
	}
	defer func() {
		if otelShutdown == nil {
			return
		}
		log.Info("flushing telemetry...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			log.Error("telemetry shutdown failed", "err", err)
		}
	}()

	// Infra
	var pdb *sql.DB
	if pdb, err = postgres.New(ctx, *cfg.Postgres); err != nil {
		log.Error("postgres connection failed", "DSN", cfg.Postgres.DSN)
		return
	}
	log.Info("postgres connected")
	var rdb *redis.Client
	if rdb, err = redisPlugin.NewRedisClient(ctx, *cfg.Redis); err != nil {
		log.Error("redis connection failed", "url", cfg.Redis.URL)
		return
	}
	log.Info("redis connected")

	// Adapters
	userRepo := postgres.NewUserRepository(pdb)
	convRepo := postgres.NewConversationRepo(pdb)
	partRepo := postgres.NewParticipantRepo(pdb)
	msgRepo := postgres.NewMessageRepo(pdb)
	outboxRepo := postgres.NewOutboxRepo(pdb)
	bus := redisPlugin.NewRedisEventBus(rdb)
	txManager := postgres.NewTxManager(pdb)

	// Core services
	tokenSvc := services.NewTokenService(cfg.SecretToken)
	userSvc := services.NewUserService(log, userRepo)
	broadcastSvc := services.NewBroadcastService(log, outboxRepo)
	membershipSvc := services.NewMembershipService(log, partRepo, convRepo, broadcastSvc, txManager)
	directorySvc := services.NewDirectoryService(log, convRepo, partRepo, msgRepo, userSvc, membershipSvc, txManager)
	messageSvc := services.NewMessageService(log, msgRepo, convRepo, partRepo, userSvc, membershipSvc, broadcastSvc, txManager)
	typingSvc := services.NewTypingService(log, bus)

	// Outbox dispatcher
	dispatcher := worker.NewOutboxWorker(log, outboxRepo, bus, cfg.Worker.PollInterval, cfg.Worker.BatchSize)
	go func() {
		if err := dispatcher.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("outbox dispatcher stopped", "err", err)
		}
	}()

	// Server
	hub := registry.NewRegistry(log, bus)
	srv := server.NewServer(log, cfg.Service.Addr, tokenSvc, userSvc, directorySvc, membershipSvc, messageSvc, typingSvc, hub)
	if err := srv.Start(); err != nil {
		log.Error("server stopped", "err", err)
	}
}
