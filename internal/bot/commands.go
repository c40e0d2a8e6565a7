package bot

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	statsPeriodDays = 30
	lastQuotesLimit = 10
)

// commands is the menu registered with Telegram
var commands = []tgbotapi.BotCommand{
	{Command: "start", Description: "Начать"},
	{Command: "calc", Description: "Рассчитать стоимость заказа"},
	{Command: "ask", Description: "Задать вопрос менеджеру"},
	{Command: "help", Description: "Доставка и оплата"},
	{Command: "cancel", Description: "Отменить"},
}

// handleStart shows the welcome message, with a photo when one is configured
func (b *Bot) handleStart(chatID int64) {
	if b.opts.WelcomePhotoURL != "" {
		if err := b.sendPhoto(chatID, b.opts.WelcomePhotoURL, welcomeText, mainKeyboard()); err == nil {
			return
		}
		b.logger.Warn("Falling back to a text welcome", zap.String("photo_url", b.opts.WelcomePhotoURL))
	}
	b.sendText(chatID, welcomeText, mainKeyboard())
}

// handleStats shows journal totals for the admin
func (b *Bot) handleStats(ctx context.Context, chatID int64) {
	if b.journal == nil {
		b.sendText(chatID, noStatsText, nil)
		return
	}

	stats, err := b.journal.GetStats(ctx, statsSince(b.now()))
	if err != nil {
		b.logger.Error("Failed to get stats", zap.Error(err))
		b.sendText(chatID, errorText, nil)
		return
	}

	b.sendText(chatID, statsText(stats, statsPeriodDays, b.relay.Pending()), nil)
}

// handleLast shows the last quotes for the admin
func (b *Bot) handleLast(ctx context.Context, chatID int64) {
	if b.journal == nil {
		b.sendText(chatID, noStatsText, nil)
		return
	}

	quotes, err := b.journal.LastQuotes(ctx, lastQuotesLimit)
	if err != nil {
		b.logger.Error("Failed to get last quotes", zap.Error(err))
		b.sendText(chatID, errorText, nil)
		return
	}

	b.sendText(chatID, lastQuotesText(quotes), nil)
}

// registerCommands publishes the command menu
func (b *Bot) registerCommands() {
	if _, err := b.api.Request(tgbotapi.NewSetMyCommands(commands...)); err != nil {
		b.logger.Warn("Failed to register commands", zap.Error(err))
	}
}

// statsSince is the start of the /stats window
func statsSince(now time.Time) time.Time {
	return now.AddDate(0, 0, -statsPeriodDays)
}
