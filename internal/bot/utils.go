package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// sendMessage sends a chattable and logs failures
func (b *Bot) sendMessage(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg, err := b.api.Send(c)
	if err != nil {
		b.logger.Error("Failed to send message", zap.Error(err))
	}
	return msg, err
}

// sendText sends text with an optional keyboard
func (b *Bot) sendText(chatID int64, text string, markup interface{}) {
	msg := tgbotapi.NewMessage(chatID, text)
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	b.sendMessage(msg)
}

// sendPhoto sends a photo by URL with a caption and an optional keyboard
func (b *Bot) sendPhoto(chatID int64, url, caption string, markup interface{}) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(url))
	photo.Caption = caption
	if markup != nil {
		photo.ReplyMarkup = markup
	}
	_, err := b.sendMessage(photo)
	return err
}

// Forward copies a user's message into another chat. It implements relay.Transport.
func (b *Bot) Forward(ctx context.Context, toChatID, fromChatID int64, messageID int) (int, error) {
	msg, err := b.api.Send(tgbotapi.NewForward(toChatID, fromChatID, messageID))
	if err != nil {
		return 0, fmt.Errorf("forward message %d: %w", messageID, err)
	}
	return msg.MessageID, nil
}

// SendText delivers plain text. It implements relay.Transport.
func (b *Bot) SendText(ctx context.Context, chatID int64, text string) error {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("send message to %d: %w", chatID, err)
	}
	return nil
}
