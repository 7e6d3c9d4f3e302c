package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config aggregates the process environment the bot needs to run.
type Config struct {
	BotToken    string `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`
	AdminChatID int64  `envconfig:"ADMIN_CHAT_ID"`
	// ChannelID receives a copy of every finalized submission; 0 disables broadcasting.
	ChannelID   int64  `envconfig:"CHANNEL_ID"`
	DatabaseDSN string `envconfig:"DATABASE_DSN" required:"true"`
	ListenAddr  string `envconfig:"LISTEN_ADDR" default:":8080"`
	WebhookPath string `envconfig:"WEBHOOK_PATH" default:"/webhook"`
}

// Load reads .env (when present) and processes environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}
	if c.BotToken == "" {
		return fmt.Errorf("config validation failed: TELEGRAM_BOT_TOKEN is empty")
	}
	if c.DatabaseDSN == "" {
		return fmt.Errorf("config validation failed: DATABASE_DSN is empty")
	}
	if c.WebhookPath == "" || c.WebhookPath[0] != '/' {
		return fmt.Errorf("config validation failed: WEBHOOK_PATH %q must start with '/'", c.WebhookPath)
	}
	return nil
}
