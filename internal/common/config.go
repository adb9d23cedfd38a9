// Package common provides shared utilities for Wealthtower
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for Wealthtower
type Config struct {
	Environment string          `toml:"environment"`
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Clients     ClientsConfig   `toml:"clients"`
	Valuation   ValuationConfig `toml:"valuation"`
	Logging     LoggingConfig   `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig holds the local store path.
type StorageConfig struct {
	Path string `toml:"path"` // BadgerHold directory for pending snapshots + system KV
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	Sheets SheetsConfig `toml:"sheets"`
	Yahoo  YahooConfig  `toml:"yahoo"`
}

// SheetsConfig holds Google Sheets access configuration.
// Reads go through the gviz CSV export; writes go through an Apps Script webhook.
type SheetsConfig struct {
	SheetID       string `toml:"sheet_id"`
	WebhookURL    string `toml:"webhook_url"`
	HoldingsSheet string `toml:"holdings_sheet"`
	HistorySheet  string `toml:"history_sheet"`
	RateLimit     int    `toml:"rate_limit"`
	Timeout       string `toml:"timeout"`
	CacheTTL      string `toml:"cache_ttl"`
}

// GetTimeout parses and returns the timeout duration
func (c *SheetsConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 15 * time.Second
	}
	return d
}

// GetCacheTTL parses and returns the table cache TTL
func (c *SheetsConfig) GetCacheTTL() time.Duration {
	d, err := time.ParseDuration(c.CacheTTL)
	if err != nil {
		return FreshnessTable
	}
	return d
}

// YahooConfig holds Yahoo Finance chart API configuration
type YahooConfig struct {
	BaseURL   string `toml:"base_url"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
	CacheTTL  string `toml:"cache_ttl"`
}

// GetTimeout parses and returns the timeout duration
func (c *YahooConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// GetCacheTTL parses and returns the quote cache TTL
func (c *YahooConfig) GetCacheTTL() time.Duration {
	d, err := time.ParseDuration(c.CacheTTL)
	if err != nil {
		return FreshnessQuote
	}
	return d
}

// ValuationConfig holds exchange-rate policy configuration.
type ValuationConfig struct {
	RateTicker   string  `toml:"rate_ticker"`   // FX ticker resolved through the price oracle
	RateFloor    float64 `toml:"rate_floor"`    // rates at or below this are rejected
	RateFallback float64 `toml:"rate_fallback"` // used when the live rate is invalid
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Path: "data/ledger",
		},
		Clients: ClientsConfig{
			Sheets: SheetsConfig{
				HoldingsSheet: "assets",
				HistorySheet:  "history",
				RateLimit:     2,
				Timeout:       "15s",
				CacheTTL:      "60s",
			},
			Yahoo: YahooConfig{
				BaseURL:   "https://query1.finance.yahoo.com",
				RateLimit: 5,
				Timeout:   "10s",
				CacheTTL:  "60s",
			},
		},
		Valuation: ValuationConfig{
			RateTicker:   "USDKRW=X",
			RateFloor:    100,
			RateFallback: 1450,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("WEALTHTOWER_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("WEALTHTOWER_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("WEALTHTOWER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("WEALTHTOWER_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if path := os.Getenv("WEALTHTOWER_DATA_PATH"); path != "" {
		config.Storage.Path = path
	}

	if id := os.Getenv("WEALTHTOWER_SHEET_ID"); id != "" {
		config.Clients.Sheets.SheetID = id
	}

	if url := os.Getenv("WEALTHTOWER_WEBHOOK_URL"); url != "" {
		config.Clients.Sheets.WebhookURL = url
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
