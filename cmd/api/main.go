package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"gymdesk/core"
)

func main() {
	cfg, err := core.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	ctx := context.Background()
	startedAt := time.Now()

	logCloser, err := core.SetupLogging(cfg, "api.log")
	if err != nil {
		log.Fatalf("failed to setup logging: %v", err)
	}
	defer logCloser.Close()
	logger := slog.Default()

	db, err := core.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer db.Close()

	if cfg.AutoMigrate {
		if err := core.EnsureSchema(ctx, db); err != nil {
			log.Fatalf("failed to apply schema: %v", err)
		}
	}

	var sessionClient redis.UniversalClient
	if strings.EqualFold(cfg.SessionBackend, "redis") {
		redisClient, err := core.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		defer redisClient.Close()
		sessionClient = redisClient
	}

	store, err := core.NewSessionBackend(cfg, sessionClient)
	if err != nil {
		log.Fatalf("failed to create session store: %v", err)
	}
	var monitor core.SessionMonitor
	if rs, ok := store.(*core.RedisStore); ok {
		monitor = rs
	}

	userRepo := core.NewPgUserRepository(db)
	verifier := core.NewCredentialVerifier(cfg.LegacyPlaintextPasswords, cfg.BcryptCost)
	authService := core.NewAuthService(userRepo, verifier, cfg.LoginTimeout(), logger)

	routes, err := core.NewRoutePolicy()
	if err != nil {
		log.Fatalf("failed to build route policy: %v", err)
	}

	if err := core.BootstrapAdmin(ctx, userRepo, verifier, cfg, logger); err != nil {
		log.Fatalf("bootstrap admin failed: %v", err)
	}

	router := core.NewRouter(cfg, core.RouterDeps{
		Store:    store,
		Auth:     authService,
		Users:    userRepo,
		Verifier: verifier,
		Routes:   routes,
		Status:   core.NewStatusService(cfg.SessionBackend, monitor, userRepo, startedAt),
		Logger:   logger,
	})

	addr := fmt.Sprintf(":%s", cfg.Port)
	logger.Info("starting api server", "addr", addr, "session_backend", cfg.SessionBackend)
	if err := router.Run(addr); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
