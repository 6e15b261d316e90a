package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/Proton-105/arbor-bot/internal/arbor"
	"github.com/Proton-105/arbor-bot/internal/bot"
	"github.com/Proton-105/arbor-bot/internal/bot/handlers"
	"github.com/Proton-105/arbor-bot/internal/database"
	apperrors "github.com/Proton-105/arbor-bot/internal/errors"
	"github.com/Proton-105/arbor-bot/internal/health"
	"github.com/Proton-105/arbor-bot/internal/i18n"
	"github.com/Proton-105/arbor-bot/internal/idempotency"
	"github.com/Proton-105/arbor-bot/internal/lifecycle"
	"github.com/Proton-105/arbor-bot/internal/middleware"
	"github.com/Proton-105/arbor-bot/internal/ratelimit"
	"github.com/Proton-105/arbor-bot/internal/repository"
	"github.com/Proton-105/arbor-bot/internal/state"
	"github.com/Proton-105/arbor-bot/internal/wallet"
	"github.com/Proton-105/arbor-bot/migrations"
	"github.com/Proton-105/arbor-bot/pkg/config"
	"github.com/Proton-105/arbor-bot/pkg/graceful"
	"github.com/Proton-105/arbor-bot/pkg/logger"
	"github.com/Proton-105/arbor-bot/pkg/metrics"
	redisclient "github.com/Proton-105/arbor-bot/pkg/redis"
)

const (
	defaultShutdownTimeout = 15 * time.Second
	stateCleanInterval     = time.Minute
	rateLimitCleanInterval = 5 * time.Minute
	rateLimitMaxAge        = time.Hour
	idempotencyLockTTL     = 10 * time.Minute
)

// backends groups the storage that depends on whether Redis is configured.
type backends struct {
	storage     state.Storage
	locker      state.Locker
	limiter     ratelimit.Limiter
	memory      *ratelimit.MemoryLimiter
	idempotency idempotency.Store
	redis       *redisclient.Client
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}
	shutdown := lifecycle.NewShutdown(log)
	checker := health.NewChecker(log)

	db, err := openDatabase(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	shutdown.Register(lifecycle.PhaseStorage, "database", func(context.Context) error {
		return db.Close()
	})
	checker.AddCheck("database", health.NewDBChecker(db))

	store, err := openBackends(ctx, cfg, log)
	if err != nil {
		_ = db.Close()
		return err
	}
	if store.redis != nil {
		client := store.redis
		shutdown.Register(lifecycle.PhaseStorage, "redis", func(context.Context) error {
			return client.Close()
		})
		checker.AddCheck("redis", client)
	}

	translations, err := i18n.Load("en")
	if err != nil {
		_ = shutdown.Execute(context.Background())
		return fmt.Errorf("load translations: %w", err)
	}

	fsm := state.NewStateMachine(store.storage, store.locker, log)
	errHandler := apperrors.NewHandler(log)

	api := arbor.NewClient(cfg.Arbor, log, arbor.WithCircuitBreaker(apperrors.NewCircuitBreaker(arbor.BreakerSettings(), log)))
	service := wallet.NewService(
		api,
		repository.NewUserRepository(db, log),
		repository.NewWalletRepository(db, log),
		fsm,
		translations,
		log,
	)

	deps := bot.Dependencies{
		FSM:          fsm,
		Translations: translations,
		ErrHandler:   errHandler,
		Idempotency:  idempotency.NewManager(store.idempotency, idempotencyLockTTL, log),
	}
	if cfg.RateLimit.Enabled {
		rules, err := ratelimit.NewRules(cfg.RateLimit)
		if err != nil {
			_ = shutdown.Execute(context.Background())
			return fmt.Errorf("rate limit rules: %w", err)
		}
		deps.RateLimit = middleware.NewRateLimitMiddleware(ratelimit.NewGuard(store.limiter, rules, log), log)
	}
	router := bot.NewCommandRouter(handlers.WalletHandlers(service), deps, log)

	discord, err := bot.New(cfg, router, translations, log)
	if err != nil {
		_ = shutdown.Execute(context.Background())
		return err
	}
	checker.AddCheck("discord", discord)

	workersCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	go state.NewCleaner(store.storage, log, cfg.Conversation.StateTTL, stateCleanInterval).Run(workersCtx)
	go ratelimit.NewCleaner(store.rawRedis(), store.memory, log, rateLimitCleanInterval, rateLimitMaxAge).Run(workersCtx)
	go metrics.NewStateCollector(fsm).Run(workersCtx)
	shutdown.Register(lifecycle.PhaseWorkers, "background workers", func(context.Context) error {
		stopWorkers()
		return nil
	})

	if err := discord.Start(); err != nil {
		_ = shutdown.Execute(context.Background())
		return fmt.Errorf("start discord bot: %w", err)
	}
	shutdown.Register(lifecycle.PhaseIngress, "discord", discord.Stop)

	srv := graceful.NewServer(log, &http.Server{
		Addr:              listenAddr(cfg.Server.Port),
		Handler:           newHTTPHandler(checker, log),
		ReadHeaderTimeout: 5 * time.Second,
	}, shutdownTimeout)

	serveErr := srv.ListenAndServe(ctx)
	if serveErr != nil {
		log.Error("http server failed", slog.Any("error", serveErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.Join(serveErr, shutdown.Execute(shutdownCtx))
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (*sql.DB, error) {
	db, err := database.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	migrator := database.NewMigrator(db, log)
	if cfg.MigrationsDir != "" {
		err = migrator.ApplyDir(ctx, cfg.MigrationsDir)
	} else {
		err = migrator.Apply(ctx, migrations.FS, ".")
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	log.Info("database migrations applied")

	return db, nil
}

// openBackends uses Redis when an address is configured and in-memory stores otherwise.
func openBackends(ctx context.Context, cfg config.Config, log *slog.Logger) (*backends, error) {
	memory := ratelimit.NewMemoryLimiter()

	if cfg.Redis.Addr == "" {
		log.Info("redis not configured, keeping conversation state in memory")
		return &backends{
			storage:     state.NewMemoryStorage(),
			locker:      state.NewLocalLocker(),
			limiter:     memory,
			memory:      memory,
			idempotency: idempotency.NewMemoryStore(),
		}, nil
	}

	client, err := redisclient.New(ctx, redisclient.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		return nil, err
	}

	return &backends{
		storage:     state.NewRedisStorage(client.Client, cfg.Conversation.StateTTL, log),
		locker:      state.NewRedisLocker(client.Client, log),
		limiter:     ratelimit.NewAdaptiveLimiter(ratelimit.NewRedisLimiter(client.Client, log), memory, log),
		memory:      memory,
		idempotency: idempotency.NewRedisStore(client.Client, log),
		redis:       client,
	}, nil
}

func (b *backends) rawRedis() *redis.Client {
	if b.redis == nil {
		return nil
	}
	return b.redis.Client
}

// listenAddr accepts both "9090" and ":9090".
func listenAddr(port string) string {
	if strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}

func newHTTPHandler(checker *health.Checker, log *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	lifecycle.NewHealthEndpoints(checker, log).Register(mux)

	return logger.Middleware(middleware.HTTPLogging(log)(mux))
}
