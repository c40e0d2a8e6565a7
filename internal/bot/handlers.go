package bot

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"pricebot/internal/conversation"
	"pricebot/internal/relay"
)

// HandleUpdate processes a single update from polling or webhook
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	if b.state != nil && update.UpdateID != 0 {
		fresh, err := b.state.MarkUpdate(ctx, update.UpdateID)
		if err != nil {
			b.logger.Warn("Failed to mark update", zap.Error(err), zap.Int("update_id", update.UpdateID))
		} else if !fresh {
			b.logger.Debug("Duplicate update skipped", zap.Int("update_id", update.UpdateID))
			return
		}
	}

	if update.Message != nil {
		b.handleMessage(ctx, update.Message)
	}

	// Handle callback queries (inline keyboard button clicks)
	if update.CallbackQuery != nil {
		b.handleCallbackQuery(ctx, update.CallbackQuery)
	}
}

// handleMessage processes a single message
func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	// Recover from panics to prevent bot crashes
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in handleMessage", zap.Any("panic", r))
			if message.Chat != nil {
				b.sendText(message.Chat.ID, errorText, nil)
			}
		}
	}()

	if message.From == nil || message.Chat == nil {
		return
	}

	ev := b.classify(message)
	if ev.Kind == conversation.KindAdminReply {
		if b.resolveAnswer(ctx, message, ev) {
			return
		}
		// not a reply to a tracked question, handle it like any other message
		message.ReplyToMessage = nil
		ev = b.classify(message)
	}

	b.dispatch(ctx, message.From.ID, message.Chat.ID, message, ev)
}

// classify turns a message into a conversation event
func (b *Bot) classify(message *tgbotapi.Message) conversation.Event {
	admin := message.Chat.ID == b.opts.AdminChatID

	var ev conversation.Event
	switch {
	case admin && message.ReplyToMessage != nil:
		return conversation.AdminReply(message.ReplyToMessage.MessageID, messageText(message))
	case message.IsCommand():
		ev = conversation.Command(message.Command(), message.CommandArguments())
	case conversation.ButtonIntent(message.Text) != conversation.IntentNone:
		ev = conversation.Button(message.Text)
	default:
		ev = conversation.Text(message.Text)
	}
	ev.Admin = admin
	return ev
}

// dispatch runs one event through the state machine and applies the decision.
// message is nil for events that come from inline buttons.
func (b *Bot) dispatch(ctx context.Context, userID, chatID int64, message *tgbotapi.Message, ev conversation.Event) {
	sess := b.sessions.Touch(userID)
	d := conversation.Decide(b.opts.Flow, sess, ev)

	b.logger.Debug("Event dispatched",
		zap.Int64("user_id", userID),
		zap.String("mode", string(sess.Mode)),
		zap.String("action", d.Action.String()),
		zap.String("next", string(d.Next)),
	)

	if !b.execute(ctx, userID, chatID, message, d) {
		return
	}

	switch {
	case d.Action == conversation.ActionPromptItemCount:
		b.sessions.SetPendingAmount(userID, d.Amount)
	case d.Next != sess.Mode:
		b.sessions.SetMode(userID, d.Next)
	}
}

// execute performs the side effect of a decision.
// It returns false when the session must stay as it is.
func (b *Bot) execute(ctx context.Context, userID, chatID int64, message *tgbotapi.Message, d conversation.Decision) bool {
	switch d.Action {
	case conversation.ActionWelcome:
		b.handleStart(chatID)
	case conversation.ActionPromptChoose:
		b.sendText(chatID, chooseActionText, mainKeyboard())
	case conversation.ActionInfo:
		b.sendText(chatID, infoText, actionsKeyboard())
	case conversation.ActionCancel:
		b.sendText(chatID, cancelText, mainKeyboard())
	case conversation.ActionStats:
		b.handleStats(ctx, chatID)
	case conversation.ActionLast:
		b.handleLast(ctx, chatID)
	case conversation.ActionPromptAmount:
		b.sendText(chatID, amountPromptText, cancelKeyboard())
	case conversation.ActionPromptItemCount:
		b.sendText(chatID, itemCountPromptText, cancelKeyboard())
	case conversation.ActionPromptQuestion:
		b.sendText(chatID, questionPromptText, cancelKeyboard())
	case conversation.ActionInvalidAmount:
		b.sendText(chatID, invalidAmountText, nil)
	case conversation.ActionInvalidItemCount:
		b.sendText(chatID, invalidItemsText, nil)
	case conversation.ActionQuote:
		return b.handleQuote(ctx, userID, chatID, d)
	case conversation.ActionRelayQuestion:
		if message == nil {
			return false
		}
		return b.handleQuestion(ctx, userID, message)
	default:
		b.logger.Warn("Unhandled action", zap.String("action", d.Action.String()))
		return false
	}
	return true
}

// resolveAnswer routes an admin reply back to the user who asked.
// It returns false when the reply does not reference a tracked question.
func (b *Bot) resolveAnswer(ctx context.Context, message *tgbotapi.Message, ev conversation.Event) bool {
	if ev.Text == "" {
		return false
	}

	userID, err := b.relay.Resolve(ctx, ev.Ref, answerPrefixText+ev.Text)
	switch {
	case errors.Is(err, relay.ErrNotFound):
		return false
	case err != nil:
		b.logger.Error("Failed to deliver answer", zap.Error(err), zap.Int("relay_message_id", ev.Ref))
		b.sendText(message.Chat.ID, fmt.Sprintf(answerFailedText, err), nil)
		return true
	}

	b.logger.Info("Admin answer routed", zap.Int64("user_id", userID), zap.Int("relay_message_id", ev.Ref))
	reply := tgbotapi.NewMessage(message.Chat.ID, answerSentText)
	reply.ReplyToMessageID = message.MessageID
	b.sendMessage(reply)
	return true
}

// messageText returns the text or the caption of a message
func messageText(message *tgbotapi.Message) string {
	if message.Text != "" {
		return message.Text
	}
	return message.Caption
}
