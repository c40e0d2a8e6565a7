package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricebot/internal/conversation"
)

var envKeys = []string{
	"TELEGRAM_BOT_TOKEN", "ADMIN_CHAT_ID", "WEBHOOK_MODE", "WEBHOOK_URL", "PORT",
	"QUOTE_FLOW", "SESSION_TIMEOUT", "RELAY_TTL", "WELCOME_PHOTO_URL",
	"RATE_URL", "RATE_TIMEOUT", "FALLBACK_RATE", "STATE_PATH", "USE_MOCK_DB",
	"CLICKHOUSE_HOST", "CLICKHOUSE_PORT", "CLICKHOUSE_DATABASE", "CLICKHOUSE_USER",
	"CLICKHOUSE_PASSWORD", "CLICKHOUSE_USE_TLS", "LOG_LEVEL",
}

// clearEnv unsets every key the config reads, restoring them after the test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_CHAT_ID", "777")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.TelegramToken)
	assert.Equal(t, int64(777), cfg.AdminChatID)
	assert.False(t, cfg.WebhookMode)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, conversation.FlowSimple, cfg.Flow())
	assert.Equal(t, 10*time.Minute, cfg.SessionTimeout)
	assert.Equal(t, 7*24*time.Hour, cfg.RelayTTL)
	assert.Equal(t, "https://www.cbr-xml-daily.ru/daily_json.js", cfg.RateURL)
	assert.Equal(t, 10*time.Second, cfg.RateTimeout)
	assert.Equal(t, 100.0, cfg.FallbackRate)
	assert.Equal(t, DefaultStatePath, cfg.StatePath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.JournalEnabled())
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_CHAT_ID", "-100500")
	t.Setenv("WEBHOOK_MODE", "true")
	t.Setenv("WEBHOOK_URL", "https://bot.example.com/")
	t.Setenv("PORT", "9090")
	t.Setenv("QUOTE_FLOW", "two_step")
	t.Setenv("SESSION_TIMEOUT", "5m")
	t.Setenv("FALLBACK_RATE", "105.5")
	t.Setenv("CLICKHOUSE_HOST", "ch.local")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, int64(-100500), cfg.AdminChatID)
	assert.True(t, cfg.WebhookMode)
	assert.Equal(t, "https://bot.example.com", cfg.WebhookURL)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, conversation.FlowTwoStep, cfg.Flow())
	assert.Equal(t, 5*time.Minute, cfg.SessionTimeout)
	assert.Equal(t, 105.5, cfg.FallbackRate)
	assert.Equal(t, "debug", cfg.LogLevel)

	assert.True(t, cfg.JournalEnabled())
	opts := cfg.ClickHouse()
	assert.Equal(t, "ch.local", opts.Host)
	assert.Equal(t, DefaultClickHousePort, opts.Port)
	assert.Equal(t, "default", opts.Database)
	assert.Equal(t, "default", opts.User)
}

func TestLoad_YAMLWithEnvOverride(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlContent := `
telegram_token: "from-file"
admin_chat_id: 42
quote_flow: two_step
relay_ttl: 48h
state_path: /var/lib/pricebot/state.db
welcome_photo_url: https://example.com/welcome.jpg
`
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o600))
	t.Setenv("TELEGRAM_BOT_TOKEN", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.TelegramToken)
	assert.Equal(t, int64(42), cfg.AdminChatID)
	assert.Equal(t, conversation.FlowTwoStep, cfg.Flow())
	assert.Equal(t, 48*time.Hour, cfg.RelayTTL)
	assert.Equal(t, "/var/lib/pricebot/state.db", cfg.StatePath)
	assert.Equal(t, "https://example.com/welcome.jpg", cfg.WelcomePhotoURL)
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNormalize_Errors(t *testing.T) {
	valid := func() Config {
		return Config{TelegramToken: "t", AdminChatID: 1}
	}

	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing token", func(c *Config) { c.TelegramToken = "" }},
		{"missing admin", func(c *Config) { c.AdminChatID = 0 }},
		{"webhook without url", func(c *Config) { c.WebhookMode = true }},
		{"bad port", func(c *Config) { c.Port = 70000 }},
		{"bad flow", func(c *Config) { c.QuoteFlow = "express" }},
		{"negative session timeout", func(c *Config) { c.SessionTimeout = -time.Second }},
		{"negative relay ttl", func(c *Config) { c.RelayTTL = -time.Hour }},
		{"negative rate timeout", func(c *Config) { c.RateTimeout = -time.Second }},
		{"negative fallback", func(c *Config) { c.FallbackRate = -1 }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			assert.Error(t, Normalize(&cfg))
		})
	}

	assert.Error(t, Normalize(nil))

	cfg := valid()
	assert.NoError(t, Normalize(&cfg))
}

func TestLoadClickHouse_WithoutBotSettings(t *testing.T) {
	clearEnv(t)
	t.Setenv("CLICKHOUSE_HOST", "ch.internal")
	t.Setenv("CLICKHOUSE_PASSWORD", "secret")

	opts, err := LoadClickHouse("")
	require.NoError(t, err)
	assert.Equal(t, "ch.internal", opts.Host)
	assert.Equal(t, DefaultClickHousePort, opts.Port)
	assert.Equal(t, "default", opts.Database)
	assert.Equal(t, "default", opts.User)
	assert.Equal(t, "secret", opts.Password)
	assert.False(t, opts.UseTLS)
}
