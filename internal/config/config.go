package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"pricebot/internal/conversation"
	"pricebot/internal/rate"
	"pricebot/internal/relay"
	"pricebot/internal/session"
	"pricebot/internal/storage/ch"
)

const (
	DefaultPort           = 8080
	DefaultStatePath      = "pricebot.db"
	DefaultLogLevel       = "info"
	DefaultClickHousePort = 9000
)

// Config holds the application configuration.
// Values come from an optional YAML file and are overridden by environment variables.
type Config struct {
	TelegramToken string `yaml:"telegram_token" envconfig:"TELEGRAM_BOT_TOKEN"`
	AdminChatID   int64  `yaml:"admin_chat_id" envconfig:"ADMIN_CHAT_ID"`

	// Bot mode configuration
	WebhookMode bool   `yaml:"webhook_mode" envconfig:"WEBHOOK_MODE"` // If false, use polling mode
	WebhookURL  string `yaml:"webhook_url" envconfig:"WEBHOOK_URL"`   // Required if WebhookMode is true
	Port        int    `yaml:"port" envconfig:"PORT"`

	// Conversation
	QuoteFlow       string        `yaml:"quote_flow" envconfig:"QUOTE_FLOW"`
	SessionTimeout  time.Duration `yaml:"session_timeout" envconfig:"SESSION_TIMEOUT"`
	RelayTTL        time.Duration `yaml:"relay_ttl" envconfig:"RELAY_TTL"`
	WelcomePhotoURL string        `yaml:"welcome_photo_url" envconfig:"WELCOME_PHOTO_URL"`

	// Exchange rate feed
	RateURL      string        `yaml:"rate_url" envconfig:"RATE_URL"`
	RateTimeout  time.Duration `yaml:"rate_timeout" envconfig:"RATE_TIMEOUT"`
	FallbackRate float64       `yaml:"fallback_rate" envconfig:"FALLBACK_RATE"`

	// Storage
	StatePath string `yaml:"state_path" envconfig:"STATE_PATH"`
	UseMockDB bool   `yaml:"use_mock_db" envconfig:"USE_MOCK_DB"`

	// ClickHouse journal, disabled when the host is empty
	ClickHouseHost     string `yaml:"clickhouse_host" envconfig:"CLICKHOUSE_HOST"`
	ClickHousePort     int    `yaml:"clickhouse_port" envconfig:"CLICKHOUSE_PORT"`
	ClickHouseDatabase string `yaml:"clickhouse_database" envconfig:"CLICKHOUSE_DATABASE"`
	ClickHouseUser     string `yaml:"clickhouse_user" envconfig:"CLICKHOUSE_USER"`
	ClickHousePassword string `yaml:"clickhouse_password" envconfig:"CLICKHOUSE_PASSWORD"`
	ClickHouseUseTLS   bool   `yaml:"clickhouse_use_tls" envconfig:"CLICKHOUSE_USE_TLS"`

	LogLevel string `yaml:"log_level" envconfig:"LOG_LEVEL"`
}

// Load reads the YAML file at path (skipped when path is empty) and applies environment overrides
func Load(path string) (*Config, error) {
	cfg, err := read(path)
	if err != nil {
		return nil, err
	}

	if err := Normalize(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadClickHouse reads only the journal settings, for tools that do not run the bot
func LoadClickHouse(path string) (ch.Options, error) {
	cfg, err := read(path)
	if err != nil {
		return ch.Options{}, err
	}

	cfg.clickHouseDefaults()
	return cfg.ClickHouse(), nil
}

func read(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}
	return &cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() (*Config, error) {
	return Load("")
}

// Normalize validates required fields and fills defaults
func Normalize(cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}

	if strings.TrimSpace(cfg.TelegramToken) == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	if cfg.AdminChatID == 0 {
		return errors.New("ADMIN_CHAT_ID is required")
	}

	if cfg.WebhookMode {
		cfg.WebhookURL = strings.TrimRight(strings.TrimSpace(cfg.WebhookURL), "/")
		if cfg.WebhookURL == "" {
			return errors.New("WEBHOOK_URL is required when WEBHOOK_MODE is true")
		}
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", cfg.Port)
	}

	flow, err := conversation.ParseFlow(cfg.QuoteFlow)
	if err != nil {
		return fmt.Errorf("invalid QUOTE_FLOW: %w", err)
	}
	cfg.QuoteFlow = string(flow)

	if cfg.SessionTimeout == 0 {
		cfg.SessionTimeout = session.DefaultTimeout
	}
	if cfg.SessionTimeout < 0 {
		return errors.New("SESSION_TIMEOUT must be positive")
	}
	if cfg.RelayTTL == 0 {
		cfg.RelayTTL = relay.DefaultTTL
	}
	if cfg.RelayTTL < 0 {
		return errors.New("RELAY_TTL must be positive")
	}

	if cfg.RateURL == "" {
		cfg.RateURL = rate.DefaultURL
	}
	if cfg.RateTimeout == 0 {
		cfg.RateTimeout = rate.DefaultTimeout
	}
	if cfg.RateTimeout < 0 {
		return errors.New("RATE_TIMEOUT must be positive")
	}
	if cfg.FallbackRate == 0 {
		cfg.FallbackRate = rate.FallbackRate.InexactFloat64()
	}
	if cfg.FallbackRate < 0 {
		return errors.New("FALLBACK_RATE must be positive")
	}

	if cfg.StatePath == "" {
		cfg.StatePath = DefaultStatePath
	}

	cfg.clickHouseDefaults()

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	return nil
}

func (c *Config) clickHouseDefaults() {
	if c.ClickHouseHost == "" {
		return
	}
	if c.ClickHousePort == 0 {
		c.ClickHousePort = DefaultClickHousePort
	}
	if c.ClickHouseDatabase == "" {
		c.ClickHouseDatabase = "default"
	}
	if c.ClickHouseUser == "" {
		c.ClickHouseUser = "default"
	}
}

// Flow returns the configured quote flow
func (c *Config) Flow() conversation.Flow {
	return conversation.Flow(c.QuoteFlow)
}

// JournalEnabled reports whether the ClickHouse journal is configured
func (c *Config) JournalEnabled() bool {
	return !c.UseMockDB && c.ClickHouseHost != ""
}

// ClickHouse returns the journal connection settings
func (c *Config) ClickHouse() ch.Options {
	return ch.Options{
		Host:     c.ClickHouseHost,
		Port:     c.ClickHousePort,
		Database: c.ClickHouseDatabase,
		User:     c.ClickHouseUser,
		Password: c.ClickHousePassword,
		UseTLS:   c.ClickHouseUseTLS,
	}
}
