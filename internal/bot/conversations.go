package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"pricebot/internal/conversation"
	"pricebot/internal/models"
	"pricebot/internal/quote"
)

// handleQuote fetches the rate, computes the total and replies with the quote
func (b *Bot) handleQuote(ctx context.Context, userID, chatID int64, d conversation.Decision) bool {
	rate := b.rates.Rate(ctx)

	q, err := quote.Compute(d.Amount, rate)
	if err != nil {
		b.logger.Error("Failed to compute quote",
			zap.Error(err),
			zap.Int64("user_id", userID),
			zap.String("amount", d.Amount.String()),
			zap.String("rate", rate.String()),
		)
		b.sendText(chatID, errorText, mainKeyboard())
		return true
	}

	b.sendText(chatID, QuoteText(q, d.Count), mainKeyboard())

	b.logger.Info("Quote sent",
		zap.Int64("user_id", userID),
		zap.String("amount", q.Amount.String()),
		zap.String("rate", q.Rate.String()),
		zap.String("total", q.Total.String()),
		zap.Int("item_count", d.Count),
	)

	if b.journal != nil {
		rec := models.QuoteRecord{
			ID:        uuid.New(),
			CreatedAt: b.now(),
			UserID:    userID,
			Amount:    q.Amount,
			Rate:      q.Rate,
			Total:     q.Total,
			ItemCount: d.Count,
		}
		if err := b.journal.RecordQuote(ctx, rec); err != nil {
			b.logger.Error("Failed to record quote", zap.Error(err), zap.Int64("user_id", userID))
		}
	}
	return true
}

// handleQuestion forwards the user's message to the admin chat.
// On failure the user stays in question mode and can try again.
func (b *Bot) handleQuestion(ctx context.Context, userID int64, message *tgbotapi.Message) bool {
	relayMessageID, err := b.relay.Relay(ctx, userID, message.Chat.ID, message.MessageID)
	if err != nil {
		b.logger.Error("Failed to relay question", zap.Error(err), zap.Int64("user_id", userID))
		b.sendText(message.Chat.ID, questionFailedText, nil)
		return false
	}

	b.sendText(message.Chat.ID, questionSentText, mainKeyboard())

	if b.journal != nil {
		rec := models.QuestionRecord{
			ID:             uuid.New(),
			CreatedAt:      b.now(),
			UserID:         userID,
			RelayMessageID: relayMessageID,
		}
		if err := b.journal.RecordQuestion(ctx, rec); err != nil {
			b.logger.Error("Failed to record question", zap.Error(err), zap.Int64("user_id", userID))
		}
	}
	return true
}
