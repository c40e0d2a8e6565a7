package bot

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pricebot/internal/conversation"
	"pricebot/internal/relay"
	"pricebot/internal/session"
	"pricebot/internal/storage"
)

// Sender is the part of the Telegram Bot API the bot talks to.
// *tgbotapi.BotAPI satisfies it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Poller receives updates by long polling. *tgbotapi.BotAPI satisfies it.
type Poller interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// RateSource returns the current exchange rate. It never fails.
type RateSource interface {
	Rate(ctx context.Context) decimal.Decimal
}

// Options holds the bot settings that come from configuration
type Options struct {
	AdminChatID     int64
	Flow            conversation.Flow
	WelcomePhotoURL string
	SessionTimeout  time.Duration
	RelayTTL        time.Duration

	// Now replaces time.Now, used by tests
	Now func() time.Time
}

// Bot represents the Telegram bot wrapper
type Bot struct {
	api      Sender
	sessions *session.Store
	relay    *relay.Relay
	rates    RateSource
	state    storage.StateStore
	journal  storage.Journal
	opts     Options
	now      func() time.Time
	logger   *zap.Logger
}
