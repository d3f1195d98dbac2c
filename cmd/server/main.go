package main

import (
	"context"
	"database/sql"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"invest-bot/internal/auth"
	"invest-bot/internal/bot"
	"invest-bot/internal/config"
	"invest-bot/internal/database"
	"invest-bot/internal/handler"
	"invest-bot/internal/logger"
	"invest-bot/internal/metrics"
	"invest-bot/internal/middleware"
	"invest-bot/internal/repository"
	"invest-bot/internal/server"
	"invest-bot/internal/storage"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Server.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.ConnectPostgres(cfg.Database)
	if err != nil {
		log.Fatal("Could not connect to database", zap.Error(err))
	}
	defer func() { _ = database.Close(db) }()

	if err := database.Migrate(db); err != nil {
		log.Fatal("Could not migrate database", zap.Error(err))
	}

	if cfg.Auth.AdminUsername != "" && cfg.Auth.AdminPassword != "" {
		hash, err := auth.HashPassword(cfg.Auth.AdminPassword)
		if err != nil {
			log.Fatal("Could not hash admin password", zap.Error(err))
		}
		admin, err := database.EnsureAdmin(ctx, db, cfg.Auth.AdminUsername, hash)
		if err != nil {
			log.Fatal("Could not bootstrap admin", zap.Error(err))
		}
		log.Info("Admin account ready", zap.Uint("id", admin.ID), zap.String("username", admin.Username))
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = database.ConnectRedis(cfg.Redis)
		if err != nil {
			log.Fatal("Could not connect to redis", zap.Error(err))
		}
		defer func() { _ = rdb.Close() }()
	}

	m := metrics.New()
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("Could not open database handle", zap.Error(err))
	}
	if err := m.RegisterDB(sqlDB, cfg.Database.Name); err != nil {
		log.Warn("Failed to register pool metrics", zap.Error(err))
	}

	store, err := storage.New(ctx, cfg.Upload)
	if err != nil {
		log.Fatal("Could not set up upload storage", zap.Error(err))
	}

	users := repository.NewUserRepository(db)
	packages := repository.NewPackageRepository(db)
	transactions := repository.NewTransactionRepository(db)
	tokens := auth.NewTokenManager(cfg.JWT)
	accounts := repository.NewAuthRepository(db)

	deps := handler.Deps{
		Users:         users,
		Packages:      packages,
		Transactions:  transactions,
		Admin:         repository.NewAdminRepository(db),
		Accounts:      accounts,
		Tokens:        tokens,
		Storage:       store,
		Log:           log,
		Server:        cfg.Server,
		Upload:        cfg.Upload,
		DatabaseCheck: func(ctx context.Context) error { return database.Ping(ctx, db) },
		DBStats:       func() sql.DBStats { return database.Stats(db) },
		BotEnabled:    cfg.Telegram.Enabled(),
	}
	opts := server.Options{Log: log, Metrics: m, Tokens: tokens, Accounts: accounts}
	if rdb != nil {
		deps.RedisCheck = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		opts.LimiterStorage = middleware.NewRedisStorage(rdb)
	}

	app := server.New(cfg, handler.New(deps), opts)

	var wg sync.WaitGroup
	if cfg.Telegram.Enabled() {
		b, err := bot.New(cfg.Telegram, bot.Deps{
			Users:        users,
			Packages:     packages,
			Transactions: transactions,
			Ledger:       transactions,
			Log:          log.Named("bot"),
			Metrics:      m,
		})
		if err != nil {
			log.Fatal("Could not create bot", zap.Error(err))
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := b.Run(ctx); err != nil {
				log.Error("Bot stopped", zap.Error(err))
			}
		}()
	} else {
		log.Info("Telegram bot disabled")
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server started", zap.String("addr", cfg.Server.Addr()), zap.String("env", cfg.Server.Env))
		errCh <- app.Listen(cfg.Server.Addr())
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down")
	case err := <-errCh:
		if err != nil {
			log.Error("Server failed", zap.Error(err))
		}
		stop()
	}

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
	wg.Wait()
	log.Info("Server stopped")
}
