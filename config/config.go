package config

import (
	"encoding/json"
	"fmt"
	"os"
)

type Config struct {
	// BIP39 mnemonic for wallet derivation
	Mnemonic string `json:"mnemonic"`

	// Path to SQLite database
	DatabasePath string `json:"database_path"`

	// RPC endpoints for supported chains, keyed by blockchain id
	RPCEndpoints map[string]string `json:"rpc_endpoints"`

	// Receive and refund addresses per blockchain id, for chains the
	// wallet does not derive itself
	Addresses map[string]string `json:"addresses"`

	// Settlement tracking endpoint
	Tracking TrackingConfig `json:"tracking"`

	// Per-provider API keys, keyed by provider id
	ProviderKeys map[string]string `json:"provider_keys"`

	// CoinGecko demo API key for fiat rates
	CoingeckoAPIKey string `json:"coingecko_api_key"`

	// Fiat currency for display amounts (default "usd")
	Currency string `json:"currency"`

	// Optional Telegram notifications for settled swaps
	Telegram TelegramConfig `json:"telegram"`

	// HTTP server port (default 8080)
	Port int `json:"port"`
}

type TrackingConfig struct {
	BaseURL string `json:"base_url"`
	APIKey  string `json:"api_key"`
}

type TelegramConfig struct {
	Token  string `json:"token"`
	ChatID int64  `json:"chat_id"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Mnemonic == "" {
		return fmt.Errorf("mnemonic is required")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path is required")
	}
	if len(c.RPCEndpoints) == 0 {
		return fmt.Errorf("at least one rpc endpoint is required")
	}
	if c.Tracking.BaseURL == "" {
		return fmt.Errorf("tracking.base_url is required")
	}
	if c.Telegram.Token != "" && c.Telegram.ChatID == 0 {
		return fmt.Errorf("telegram.chat_id is required when telegram.token is set")
	}
	if c.Currency == "" {
		c.Currency = "usd"
	}
	if c.Port == 0 {
		c.Port = 8080
	}
	return nil
}

// ProviderKey returns the configured API key for a provider id, empty
// when none is set.
func (c *Config) ProviderKey(id string) string {
	return c.ProviderKeys[id]
}
