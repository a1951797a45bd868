// Package config loads the bot configuration. Values come from an optional
// YAML file, overridden by environment variables; a .env file is honoured
// when present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	NodeURL        string `yaml:"node_url"`
	TendermintURL  string `yaml:"tendermint_url"`
	WSURL          string `yaml:"ws_url"`
	WalletURL      string `yaml:"wallet_url"`
	WalletUsername string `yaml:"wallet_username"`
	WalletPassword string `yaml:"wallet_password"`
	MarketID       string `yaml:"market_id"`
	PartyID        string `yaml:"party_id"`
	BinanceMarket  string `yaml:"binance_market"`
	BinanceWSURL   string `yaml:"binance_ws_url"`

	StatusPort int    `yaml:"status_port"`
	LogLevel   string `yaml:"log_level"`

	TelegramToken  string `yaml:"telegram_token"`
	TelegramChatID string `yaml:"telegram_chat_id"`

	SnapshotInterval  time.Duration `yaml:"snapshot_interval"`
	KeepaliveInterval time.Duration `yaml:"keepalive_interval"`
	QuoteInterval     time.Duration `yaml:"quote_interval"`
}

// Load reads the YAML file at path (when non-empty) and applies environment
// overrides on top. Defaults are filled in before validation.
func Load(path string) (Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file: %w", err)
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	overrideString(&c.NodeURL, "NODE_URL")
	overrideString(&c.TendermintURL, "TENDERMINT_URL")
	overrideString(&c.WSURL, "WS_URL")
	overrideString(&c.WalletURL, "WALLET_URL")
	overrideString(&c.WalletUsername, "WALLET_USERNAME")
	overrideString(&c.WalletPassword, "WALLET_PASSWORD")
	overrideString(&c.MarketID, "MARKET_ID")
	overrideString(&c.PartyID, "PARTY_ID")
	overrideString(&c.BinanceMarket, "BINANCE_MARKET")
	overrideString(&c.BinanceWSURL, "BINANCE_WS_URL")
	overrideString(&c.LogLevel, "LOG_LEVEL")
	overrideString(&c.TelegramToken, "TELEGRAM_TOKEN")
	overrideString(&c.TelegramChatID, "TELEGRAM_CHAT_ID")
	overrideInt(&c.StatusPort, "STATUS_PORT")
	overrideDuration(&c.SnapshotInterval, "SNAPSHOT_INTERVAL")
	overrideDuration(&c.KeepaliveInterval, "KEEPALIVE_INTERVAL")
	overrideDuration(&c.QuoteInterval, "QUOTE_INTERVAL")
}

func (c *Config) applyDefaults() {
	if c.StatusPort == 0 {
		c.StatusPort = 7070
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.SnapshotInterval == 0 {
		c.SnapshotInterval = 30 * time.Second
	}
	if c.KeepaliveInterval == 0 {
		c.KeepaliveInterval = time.Second
	}
	if c.QuoteInterval == 0 {
		c.QuoteInterval = 5 * time.Second
	}
}

// Validate reports every missing required field at once.
func (c Config) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"NODE_URL", c.NodeURL},
		{"TENDERMINT_URL", c.TendermintURL},
		{"WS_URL", c.WSURL},
		{"WALLET_URL", c.WalletURL},
		{"WALLET_USERNAME", c.WalletUsername},
		{"WALLET_PASSWORD", c.WalletPassword},
		{"MARKET_ID", c.MarketID},
		{"PARTY_ID", c.PartyID},
		{"BINANCE_MARKET", c.BinanceMarket},
		{"BINANCE_WS_URL", c.BinanceWSURL},
	}
	var missing []string
	for _, r := range required {
		if r.value == "" {
			missing = append(missing, r.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func overrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func overrideDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
