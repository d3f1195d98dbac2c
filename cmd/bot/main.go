package main

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"invest-bot/internal/bot"
	"invest-bot/internal/config"
	"invest-bot/internal/database"
	"invest-bot/internal/logger"
	"invest-bot/internal/repository"
)

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

	if cfg.Telegram.Token == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN is not set")
	}

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

	transactions := repository.NewTransactionRepository(db)
	b, err := bot.New(cfg.Telegram, bot.Deps{
		Users:        repository.NewUserRepository(db),
		Packages:     repository.NewPackageRepository(db),
		Transactions: transactions,
		Ledger:       transactions,
		Log:          log.Named("bot"),
	})
	if err != nil {
		log.Fatal("Could not create bot", zap.Error(err))
	}

	if err := b.Run(ctx); err != nil {
		log.Error("Bot stopped", zap.Error(err))
		return
	}
	log.Info("Bot stopped")
}
