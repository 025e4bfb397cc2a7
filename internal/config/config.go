package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries everything the server needs. Values come from the
// environment with sensible defaults; main loads a .env file first.
type Config struct {
	ListenAddr       string
	CoinGeckoBaseURL string
	RequestTimeout   time.Duration
	RefreshInterval  time.Duration
	PerPage          int
	Sparkline        bool
	SnapshotPath     string
	SettingsDBPath   string
	LogLevel         string
}

func Default() Config {
	return Config{
		ListenAddr:       ":8080",
		CoinGeckoBaseURL: "https://api.coingecko.com/api/v3",
		RequestTimeout:   15 * time.Second,
		RefreshInterval:  15 * time.Second,
		PerPage:          100,
		Sparkline:        false,
		SnapshotPath:     "data/market_coins.json",
		SettingsDBPath:   "data/settings.db",
		LogLevel:         "info",
	}
}

func FromEnv() Config {
	cfg := Default()

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("COINGECKO_BASE_URL")); v != "" {
		cfg.CoinGeckoBaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("REQUEST_TIMEOUT")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.RequestTimeout = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("REFRESH_INTERVAL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.RefreshInterval = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("MARKET_PER_PAGE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PerPage = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("MARKET_SPARKLINE")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Sparkline = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("SNAPSHOT_PATH")); v != "" {
		cfg.SnapshotPath = v
	}
	if v := strings.TrimSpace(os.Getenv("SETTINGS_DB_PATH")); v != "" {
		cfg.SettingsDBPath = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}

	return cfg
}
