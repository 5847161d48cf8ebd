// Package bot wires the Telegram transport, the scheduler and the archive store into
// one lifecycle.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tgbot "github.com/go-telegram/bot"
	"golang.org/x/sync/errgroup"

	"github.com/edgard/tgassist/internal/config"
	"github.com/edgard/tgassist/internal/database"
	"github.com/edgard/tgassist/internal/telegram"
)

const shutdownTimeout = 10 * time.Second

// Bot represents the main bot application and manages its components' lifecycle.
type Bot struct {
	logger    *slog.Logger
	cfg       *config.Config
	store     database.Store
	tgBot     *tgbot.Bot
	scheduler *Scheduler
}

// NewBot creates a new instance of the bot with all required dependencies.
func NewBot(
	logger *slog.Logger,
	cfg *config.Config,
	store database.Store,
	tgBot *tgbot.Bot,
	scheduler *Scheduler,
) *Bot {
	return &Bot{
		logger:    logger.With("component", "bot_orchestrator"),
		cfg:       cfg,
		store:     store,
		tgBot:     tgBot,
		scheduler: scheduler,
	}
}

// Run receives updates by long polling or through the webhook server, runs the
// scheduler, and blocks until ctx is cancelled or a component fails.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator...", "webhook", b.cfg.Telegram.Webhook.Enabled)

	g, gCtx := errgroup.WithContext(ctx)

	if b.cfg.Telegram.Webhook.Enabled {
		if err := b.runWebhook(gCtx, g); err != nil {
			return err
		}
	} else {
		b.runPolling(gCtx, g)
	}

	g.Go(func() error {
		b.logger.Info("Starting scheduler...")
		if err := b.scheduler.Start(); err != nil {
			b.logger.Error("Failed to start scheduler", "error", err)
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		b.logger.Info("Shutdown signal received, stopping scheduler...")

		if err := b.scheduler.Stop(); err != nil {
			b.logger.Error("Error stopping scheduler", "error", err)
		}
		return nil
	})

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully.")
	return nil
}

func (b *Bot) runPolling(ctx context.Context, g *errgroup.Group) {
	g.Go(func() error {
		// Polling is refused while a webhook is registered.
		if _, err := b.tgBot.DeleteWebhook(ctx, &tgbot.DeleteWebhookParams{}); err != nil {
			b.logger.Warn("Failed to remove webhook before polling", "error", err)
		}

		b.logger.Info("Starting Telegram long polling...")
		b.tgBot.Start(ctx)
		b.logger.Info("Telegram long polling stopped.")

		if ctx.Err() == nil {
			return fmt.Errorf("telegram listener stopped unexpectedly")
		}
		return nil
	})
}

func (b *Bot) runWebhook(ctx context.Context, g *errgroup.Group) error {
	wh := b.cfg.Telegram.Webhook
	url := strings.TrimSuffix(wh.URL, "/") + wh.Path

	if _, err := b.tgBot.SetWebhook(ctx, &tgbot.SetWebhookParams{URL: url, SecretToken: wh.SecretToken}); err != nil {
		return fmt.Errorf("failed to register webhook: %w", err)
	}
	b.logger.Info("Webhook registered", "path", wh.Path)

	srv := &http.Server{
		Addr:              wh.Listen,
		Handler:           telegram.NewWebhookRouter(wh.Path, b.tgBot.WebhookHandler(), b.store.Ping, b.logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		b.logger.Info("Starting webhook server...", "listen", wh.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("webhook server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		b.tgBot.StartWebhook(ctx)
		b.logger.Info("Webhook update processing stopped.")
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			b.logger.Error("Error stopping webhook server", "error", err)
		}
		return nil
	})
	return nil
}
