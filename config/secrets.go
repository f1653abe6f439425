package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Secrets are credentials read from the environment, optionally seeded from a
// .env file. All fields are optional: without exchange keys the engine runs
// paper-only, without a bot token notifications are disabled.
type Secrets struct {
	BybitAPIKey    string `envconfig:"BYBIT_API_KEY"`
	BybitAPISecret string `envconfig:"BYBIT_API_SECRET"`
	TelegramToken  string `envconfig:"TG_BOT_TOKEN"`
	TelegramChatID string `envconfig:"TG_CHAT_ID"`
}

// LoadSecrets reads secrets from the environment. A missing .env file is
// fine; a malformed one is not.
func LoadSecrets() (*Secrets, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	var s Secrets
	if err := envconfig.Process("", &s); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	return &s, nil
}

// HasExchange reports whether exchange API credentials are configured.
func (s *Secrets) HasExchange() bool {
	return s.BybitAPIKey != "" && s.BybitAPISecret != ""
}

// HasTelegram reports whether Telegram credentials are configured.
func (s *Secrets) HasTelegram() bool {
	return s.TelegramToken != "" && s.TelegramChatID != ""
}
