package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"pricebot/internal/bot"
	"pricebot/internal/config"
	"pricebot/internal/rate"
	"pricebot/internal/storage"
	"pricebot/internal/storage/boltdb"
	"pricebot/internal/storage/ch"
	"pricebot/internal/storage/stubs"
)

// App represents the application
type App struct {
	config  *config.Config
	logger  *zap.Logger
	state   storage.StateStore
	journal storage.Journal
	bot     *bot.Bot
	http    *bot.HTTPServer
	server  *http.Server
}

// NewLogger builds a JSON production logger at the given level
func NewLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// New creates and initializes a new application instance
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	app := &App{config: cfg, logger: logger}

	logger.Info("Starting price bot",
		zap.String("quote_flow", string(cfg.Flow())),
		zap.Bool("webhook_mode", cfg.WebhookMode),
	)

	if err := app.initStorage(ctx); err != nil {
		app.closeStorage()
		return nil, err
	}

	if err := app.initBot(ctx); err != nil {
		app.closeStorage()
		return nil, err
	}

	return app, nil
}

// initStorage opens the state store and the quote journal
func (a *App) initStorage(ctx context.Context) error {
	if a.config.UseMockDB {
		a.logger.Info("Using mock database")
		db := stubs.NewMockDB()
		a.state = db
		a.journal = db
		return nil
	}

	state, err := boltdb.Open(a.config.StatePath)
	if err != nil {
		return fmt.Errorf("failed to open state store: %w", err)
	}
	a.state = state
	a.logger.Info("State store opened", zap.String("path", a.config.StatePath))

	if !a.config.JournalEnabled() {
		a.logger.Info("ClickHouse not configured, keeping the journal in memory")
		a.journal = stubs.NewMockDB()
		return nil
	}

	opts := a.config.ClickHouse()
	a.logger.Info("Connecting to ClickHouse",
		zap.String("addr", opts.Addr()),
		zap.String("database", opts.Database),
		zap.String("user", opts.User),
		zap.Bool("tls", opts.UseTLS),
	)
	journal, err := ch.NewClickHouseDB(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}
	if err := journal.Initialize(ctx); err != nil {
		journal.Close()
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	a.journal = journal
	a.logger.Info("Database initialized successfully")
	return nil
}

// initBot creates the Telegram client and restores persisted state
func (a *App) initBot(ctx context.Context) error {
	api, err := bot.NewAPI(a.config.TelegramToken, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	rates := rate.NewProvider(a.logger,
		rate.WithURL(a.config.RateURL),
		rate.WithHTTPClient(rate.NewHTTPClient(a.config.RateTimeout)),
		rate.WithFallback(decimal.NewFromFloat(a.config.FallbackRate)),
	)

	a.bot = bot.NewBot(api, rates, a.state, a.journal, bot.Options{
		AdminChatID:     a.config.AdminChatID,
		Flow:            a.config.Flow(),
		WelcomePhotoURL: a.config.WelcomePhotoURL,
		SessionTimeout:  a.config.SessionTimeout,
		RelayTTL:        a.config.RelayTTL,
	}, a.logger)

	if err := a.bot.Load(ctx); err != nil {
		return fmt.Errorf("failed to restore bot state: %w", err)
	}
	a.logger.Info("Bot state restored", zap.Int("pending_questions", a.bot.Pending()))
	return nil
}

// startHTTPServer starts the health check and webhook listener in the background
func (a *App) startHTTPServer(ctx context.Context) {
	a.http = bot.NewHTTPServer(ctx, a.bot, a.config.WebhookMode)

	mux := http.NewServeMux()
	a.http.RegisterRoutes(mux)

	a.server = &http.Server{
		Addr:         ":" + strconv.Itoa(a.config.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		a.logger.Info("Starting HTTP server", zap.Int("port", a.config.Port))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
}

// Run starts the bot and blocks until ctx is cancelled
func (a *App) Run(ctx context.Context) error {
	a.startHTTPServer(ctx)

	if a.config.WebhookMode {
		a.logger.Info("Starting bot in WEBHOOK mode", zap.String("webhook_url", a.config.WebhookURL))
		if err := a.bot.StartWebhook(a.config.WebhookURL); err != nil {
			a.Shutdown()
			return fmt.Errorf("failed to setup webhook: %w", err)
		}
		a.logger.Info("Webhook configured", zap.String("path", bot.WebhookPath))
		<-ctx.Done()
	} else {
		a.logger.Info("Starting bot in POLLING mode")
		if err := a.bot.Start(ctx); err != nil {
			a.Shutdown()
			return fmt.Errorf("failed to start bot: %w", err)
		}
	}

	a.logger.Info("Shutting down...")
	return a.Shutdown()
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown() error {
	if a.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
		a.http.Wait()
	}

	err := a.closeStorage()
	a.logger.Info("Shutdown complete")
	return err
}

func (a *App) closeStorage() error {
	var errs []error
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.logger.Error("Error closing journal", zap.Error(err))
			errs = append(errs, err)
		}
	}
	// the mock serves both roles and is closed once
	if a.state != nil && any(a.state) != any(a.journal) {
		if err := a.state.Close(); err != nil {
			a.logger.Error("Error closing state store", zap.Error(err))
			errs = append(errs, err)
		}
	}
	a.state, a.journal = nil, nil
	return errors.Join(errs...)
}
