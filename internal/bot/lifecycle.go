package bot

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Start runs the bot in polling mode until ctx is cancelled
func (b *Bot) Start(ctx context.Context) error {
	poller, ok := b.api.(Poller)
	if !ok {
		return errors.New("bot API does not support polling")
	}

	b.logger.Info("Starting bot in polling mode")

	// Remove webhook (if any was set previously)
	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		b.logger.Warn("Failed to delete webhook", zap.Error(err))
	}
	b.registerCommands()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := poller.GetUpdatesChan(u)

	b.logger.Info("Bot started successfully. Waiting for updates...")

	go func() {
		<-ctx.Done()
		poller.StopReceivingUpdates()
	}()

	// Updates are handled one at a time, blocks until the channel closes
	b.handleUpdates(ctx, updates)
	return nil
}

// StartWebhook sets up the bot to receive updates via webhook
func (b *Bot) StartWebhook(webhookURL string) error {
	b.logger.Info("Setting up webhook", zap.String("webhook_url", webhookURL))

	webhookConfig, err := tgbotapi.NewWebhook(webhookURL + WebhookPath)
	if err != nil {
		return err
	}
	webhookConfig.MaxConnections = 40

	if _, err := b.api.Request(webhookConfig); err != nil {
		b.logger.Error("Failed to set webhook", zap.Error(err), zap.String("webhook_url", webhookURL))
		return err
	}
	b.registerCommands()

	// Get webhook info to verify
	if api, ok := b.api.(interface {
		GetWebhookInfo() (tgbotapi.WebhookInfo, error)
	}); ok {
		info, err := api.GetWebhookInfo()
		if err != nil {
			b.logger.Warn("Failed to get webhook info", zap.Error(err))
		} else {
			b.logger.Info("Webhook set successfully",
				zap.String("url", info.URL),
				zap.Int("pending_updates", info.PendingUpdateCount),
			)
		}
	}

	b.logger.Info("Bot configured for webhook mode")
	return nil
}

// handleUpdates processes incoming updates from polling mode
func (b *Bot) handleUpdates(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for update := range updates {
		b.HandleUpdate(ctx, update)
	}
}
