package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"homework_status_bot/internal/app"
	"homework_status_bot/internal/domain/homework"
	"homework_status_bot/internal/domain/pollstate"
	"homework_status_bot/internal/infra/config"
	idb "homework_status_bot/internal/infra/database"
	"homework_status_bot/internal/infra/logger"
	"homework_status_bot/internal/infra/memory"
	"homework_status_bot/internal/infra/practicum"
	"homework_status_bot/internal/infra/scheduler"
	"homework_status_bot/internal/infra/telegram"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func main() {
	logCfg, err := config.LoadLogging()
	if err != nil {
		logrus.Fatalf("Could not load logging configuration: %v", err)
	}
	log := logger.New(logCfg)
	mainLogger := log.WithField("component", "main")

	cfg, err := config.Load()
	if err != nil {
		var missing *homework.MissingCredentialError
		if errors.As(err, &missing) {
			mainLogger.WithField("variable", missing.Name).Fatal(missing.Error())
		}
		mainLogger.Fatalf("Could not load application configuration: %v", err)
	}
	mainLogger.Infof("Configuration loaded. LogLevel: %s, Environment: %s, Chat ID: %d", cfg.LogLevel, cfg.Environment, cfg.TelegramChatID)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Poll state: Postgres when configured, memory otherwise
	var stateRepo pollstate.Repository
	if cfg.DatabaseURL != "" {
		db, err := idb.NewPostgresConnection(ctx, cfg.DatabaseURL)
		if err != nil {
			mainLogger.Fatalf("Could not connect to database: %v", err)
		}
		defer db.Close()

		pgRepo := idb.NewPostgresStateRepository(db)
		if err := pgRepo.EnsureSchema(ctx); err != nil {
			mainLogger.Fatalf("Could not prepare poll state table: %v", err)
		}
		stateRepo = pgRepo
		mainLogger.Info("Postgres poll state repository initialized.")
	} else {
		stateRepo = memory.NewStateRepository()
		mainLogger.Info("In-memory poll state repository initialized.")
	}

	schedule, err := scheduler.ParseSchedule(cfg.PollSchedule, cfg.RetryPeriod)
	if err != nil {
		mainLogger.Fatalf("Invalid poll schedule: %v", err)
	}

	// Initialize Telegram Bot
	pref := botSettings(cfg, log)
	bot, err := telebot.NewBot(pref)
	if err != nil {
		mainLogger.Fatalf("Could not create Telegram bot: %v", err)
	}

	apiClient := practicum.NewClient(practicum.ClientConfig{
		Endpoint: cfg.Endpoint,
		Token:    cfg.PracticumToken,
		Timeout:  cfg.RequestTimeout,
	}, log.WithField("component", "practicum"))

	homeworkService := app.NewHomeworkService(
		apiClient,
		homework.NewFormatter(cfg.NameKeys),
		telegram.NewTelebotAdapter(bot),
		stateRepo,
		cfg.TelegramChatID,
		log.WithField("component", "homework"),
	)
	if err := homeworkService.Restore(ctx); err != nil {
		mainLogger.Fatalf("Could not restore poll state: %v", err)
	}

	if cfg.BotCommandsEnabled {
		telegram.RegisterBotCommands(ctx, bot, cfg.TelegramChatID, stateRepo, log.WithField("component", "telegram"))
		go bot.Start()
		mainLogger.Info("Bot command handlers registered.")
	}

	pollScheduler := scheduler.NewPollScheduler(homeworkService, schedule, log.WithField("component", "scheduler"))
	pollScheduler.Start(ctx)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit // Block until a signal is received

	mainLogger.Info("Shutting down application...")
	pollScheduler.Stop()
	if cfg.BotCommandsEnabled {
		bot.Stop()
	}
	mainLogger.Info("Application shut down gracefully.")
}

// botSettings skips the startup getMe call when only outgoing messages are needed,
// so a Telegram outage at boot does not stop the poller.
func botSettings(cfg *config.AppConfig, log *logrus.Logger) telebot.Settings {
	return telebot.Settings{
		Token:   cfg.TelegramToken,
		Offline: !cfg.BotCommandsEnabled,
		Poller:  &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) { // Global error handler
			entry := log.WithField("component", "telebot").WithError(err)
			if c != nil && c.Chat() != nil {
				entry = entry.WithField("chat_id", c.Chat().ID)
			}
			entry.Error("Telegram handler error")
		},
	}
}
