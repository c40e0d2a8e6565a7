package bot

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"pricebot/internal/relay"
	"pricebot/internal/session"
	"pricebot/internal/storage"
)

// NewAPI creates the Telegram Bot API client
func NewAPI(token string, logger *zap.Logger) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		logger.Error("Failed to create bot API", zap.Error(err))
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	logger.Info("Bot created", zap.String("bot_username", api.Self.UserName))
	return api, nil
}

// NewBot wires the conversation components around api.
// state and journal may be nil, which disables persistence and history.
func NewBot(api Sender, rates RateSource, state storage.StateStore, journal storage.Journal, opts Options, logger *zap.Logger) *Bot {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	b := &Bot{
		api:     api,
		rates:   rates,
		state:   state,
		journal: journal,
		opts:    opts,
		now:     now,
		logger:  logger,
	}

	sessionOpts := []session.Option{session.WithClock(now)}
	if opts.SessionTimeout > 0 {
		sessionOpts = append(sessionOpts, session.WithTimeout(opts.SessionTimeout))
	}
	relayOpts := []relay.Option{relay.WithClock(now)}
	if opts.RelayTTL > 0 {
		relayOpts = append(relayOpts, relay.WithTTL(opts.RelayTTL))
	}
	if state != nil {
		sessionOpts = append(sessionOpts, session.WithPersister(state))
		relayOpts = append(relayOpts, relay.WithPersister(state))
	}

	b.sessions = session.NewStore(logger, sessionOpts...)
	b.relay = relay.New(opts.AdminChatID, b, logger, relayOpts...)

	return b
}

// Load restores sessions and pending questions from the state store
func (b *Bot) Load(ctx context.Context) error {
	if err := b.sessions.Load(ctx); err != nil {
		return err
	}
	return b.relay.Load(ctx)
}

// Pending returns the number of questions waiting for the admin
func (b *Bot) Pending() int {
	return b.relay.Pending()
}
