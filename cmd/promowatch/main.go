package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	_ "github.com/joho/godotenv/autoload"

	"github.com/romanzzaa/red-pencil-promo/internal/bot"
	"github.com/romanzzaa/red-pencil-promo/internal/config"
	"github.com/romanzzaa/red-pencil-promo/internal/domain"
	"github.com/romanzzaa/red-pencil-promo/internal/infrastructure/feed"
	"github.com/romanzzaa/red-pencil-promo/internal/infrastructure/telegram"
	"github.com/romanzzaa/red-pencil-promo/internal/scheduler"
	"github.com/romanzzaa/red-pencil-promo/internal/usecase"
	"github.com/romanzzaa/red-pencil-promo/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	path := os.Getenv("PROMO_CONFIG")
	if path == "" {
		path = config.DefaultPath
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	promoService := usecase.NewPromoService(logger)
	priceStream := feed.NewPriceStream(cfg.Feed.URL, logger)

	var (
		notifier domain.Notifier = telegram.NewNoopNotifier(logger)
		tgBot    *tgbotapi.BotAPI
	)
	if cfg.Telegram.BotToken != "" {
		tgBot, err = tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
		if err != nil {
			logger.Error("failed to init telegram bot", slog.String("error", err.Error()))
			os.Exit(1)
		}
		tgBot.Debug = false
		logger.Info("Telegram bot authorized", slog.String("username", tgBot.Self.UserName))

		if cfg.Telegram.ChatID != 0 {
			notifier = telegram.NewNotifier(tgBot, cfg.Telegram.ChatID, logger)
		}
	}

	manager := worker.NewManager(promoService, priceStream, notifier, worker.Options{
		Workers:   cfg.Worker.Count,
		QueueSize: cfg.Worker.QueueSize,
		SKUs:      cfg.Feed.SKUs,
	}, logger)

	sweeper := scheduler.NewScheduler(promoService, notifier, logger)
	if err := sweeper.Register(cfg.SweepCron); err != nil {
		logger.Error("failed to register expiry sweep", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("Starting promo watcher...",
		slog.String("env", cfg.Env),
		slog.String("feed", cfg.Feed.URL),
		slog.Int("workers", cfg.Worker.Count))

	sweeper.Start(ctx)

	if tgBot != nil {
		botHandler := bot.NewHandler(tgBot, promoService, manager, logger)
		go botHandler.Start(ctx)
	}

	runErr := manager.Run(ctx)
	cancel()
	sweeper.Stop()

	if runErr != nil {
		logger.Error("manager stopped with error", slog.String("error", runErr.Error()))
		os.Exit(1)
	}
	logger.Info("Promo watcher stopped gracefully")
}
