package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"pricebot/internal/conversation"
)

const (
	callbackCalc = "calc"
	callbackAsk  = "ask"
)

// actionsKeyboard is attached to the info message
func actionsKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(conversation.LabelCalc, callbackCalc),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(conversation.LabelAsk, callbackAsk),
		),
	)
}

// handleCallbackQuery processes inline keyboard button clicks
func (b *Bot) handleCallbackQuery(ctx context.Context, query *tgbotapi.CallbackQuery) {
	// Recover from panics
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in handleCallbackQuery", zap.Any("panic", r))
		}
	}()

	// Answer the callback query to remove loading state
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		b.logger.Warn("Failed to answer callback query", zap.Error(err))
	}

	if query.From == nil || query.Message == nil || query.Message.Chat == nil {
		return
	}

	// only the buttons of actionsKeyboard are accepted
	if query.Data != callbackCalc && query.Data != callbackAsk {
		b.logger.Warn("Unknown callback data",
			zap.Int64("user_id", query.From.ID),
			zap.String("callback_data", query.Data),
		)
		return
	}

	ev := conversation.Callback(query.Data)
	ev.Admin = query.Message.Chat.ID == b.opts.AdminChatID

	b.dispatch(ctx, query.From.ID, query.Message.Chat.ID, nil, ev)
}
