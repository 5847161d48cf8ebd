package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/spf13/cobra"

	"github.com/edgard/tgassist/internal/analysis"
	"github.com/edgard/tgassist/internal/bot"
	"github.com/edgard/tgassist/internal/bot/handlers"
	"github.com/edgard/tgassist/internal/bot/tasks"
	"github.com/edgard/tgassist/internal/config"
	"github.com/edgard/tgassist/internal/database"
	"github.com/edgard/tgassist/internal/importer"
	"github.com/edgard/tgassist/internal/llm"
	"github.com/edgard/tgassist/internal/logger"
	"github.com/edgard/tgassist/internal/session"
	"github.com/edgard/tgassist/internal/telegram"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if code := run(cmd.Context(), configPath(cmd)); code != 0 {
				return fmt.Errorf("bot exited with code %d", code)
			}
			return nil
		},
	}
}

// run initializes and starts all application components (config, logger, db, model
// client, bot, scheduler), handles graceful shutdown, and returns an exit code.
func run(ctx context.Context, configPath string) int {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Log.Level, cfg.Log.JSON)
	log.Info("Logger initialized", "level", cfg.Log.Level, "json", cfg.Log.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log, cfg.Bot.DefaultLanguage)

	client, err := llm.New(ctx, cfg.AI, log)
	if err != nil {
		log.Error("Failed to initialize model client", "provider", cfg.AI.Provider, "error", err)
		return 1
	}

	sessions := session.NewStore(cfg.Bot.WizardTTL)
	hDeps := handlers.HandlerDeps{
		Logger: log,
		Config: cfg,
		Store:  store,
		LLM:    client,
		Analysis: analysis.NewService(store, client, log, analysis.Options{
			Timeout:       cfg.AI.Timeout,
			HistoryLimit:  cfg.Bot.HistoryLimit,
			ActionsWindow: cfg.Bot.ActionsWindow,
			Location:      cfg.Bot.Location(),
		}),
		Importer: importer.New(store, log),
		Sessions: sessions,
		Backlog:  handlers.NewBacklog(cfg.Telegram.BacklogSize),
	}
	tDeps := tasks.TaskDeps{
		Logger:   log,
		Store:    store,
		Sessions: sessions,
	}

	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(logger.Recover(log), logger.Middleware(log)),
		tgbot.WithDefaultHandler(handlers.NewMessageHandler(hDeps)),
	}
	if secret := cfg.Telegram.Webhook.SecretToken; cfg.Telegram.Webhook.Enabled && secret != "" {
		botOpts = append(botOpts, tgbot.WithWebhookSecretToken(secret))
	}
	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return 1
	}

	if err := telegram.RegisterHandlers(tg, log, handlers.RegisterAllCommands(hDeps)); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return 1
	}
	if err := telegram.PublishCommands(ctx, tg, handlers.BotCommands()); err != nil {
		log.Warn("Failed to publish command menu", "error", err)
	}

	sched, err := bot.NewScheduler(log, &cfg.Scheduler, cfg.Bot.Location(), tasks.RegisterAllTasks(tDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}
	app := bot.NewBot(log, cfg, store, tg, sched)

	log.Info("Starting bot...")
	runErr := app.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	return 0
}
