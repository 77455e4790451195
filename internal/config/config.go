// Package config loads and validates the galileo YAML configuration,
// applying environment variable overrides for credentials and paths.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"galileo/internal/backtest"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the galileo engine.
type Config struct {
	Storage  Storage         `yaml:"storage"`
	Alpaca   Alpaca          `yaml:"alpaca"`
	Logging  Logging         `yaml:"logging"`
	Fetch    Fetch           `yaml:"fetch"`
	Market   Market          `yaml:"market"`
	Universe Universe        `yaml:"universe"`
	Telegram Telegram        `yaml:"telegram"`
	Schedule Schedule        `yaml:"schedule"`
	Backtest backtest.Params `yaml:"backtest"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Alpaca holds credentials and endpoints for the Alpaca market-data API.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	DataURL   string `yaml:"data_url"`
}

// Logging configures the application logger.
type Logging struct {
	Level string `yaml:"level"`
}

// Fetch controls the concurrent price prefetcher.
type Fetch struct {
	MaxWorkers      int `yaml:"max_workers"`
	MaxRetries      int `yaml:"max_retries"`
	RetryDelayMS    int `yaml:"retry_delay_ms"`
	RateLimitPerMin int `yaml:"rate_limit_per_min"`
}

// Market configures the regime gate inputs.
type Market struct {
	BenchmarkTicker  string  `yaml:"benchmark_ticker"`
	VolatilityTicker string  `yaml:"volatility_ticker"`
	VolThreshold     float64 `yaml:"vol_threshold"`
	MALong           int     `yaml:"ma_long"`
	MAShort          int     `yaml:"ma_short"`
}

// Universe points at the screener snapshot CSV files.
type Universe struct {
	Dir      string `yaml:"dir"`
	Screener string `yaml:"screener"` // "large" or "mega"
}

// Telegram holds the notification channel credentials.
type Telegram struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

// Schedule holds the daily pipeline cron expression.
type Schedule struct {
	DailyCron string `yaml:"daily_cron"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, and then applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)

	return cfg, nil
}

// Validate checks the non-backtest sections; the backtest parameter set has
// its own Validate called by the simulator.
func (c *Config) Validate() error {
	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir is required")
	}
	if c.Market.BenchmarkTicker == "" {
		return fmt.Errorf("market.benchmark_ticker is required")
	}
	if c.Universe.Dir == "" {
		return fmt.Errorf("universe.dir is required")
	}
	if c.Telegram.Enabled && (c.Telegram.BotToken == "" || c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram enabled but bot_token/chat_id missing")
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Fetch.MaxWorkers == 0 {
		cfg.Fetch.MaxWorkers = 8
	}
	if cfg.Fetch.MaxRetries == 0 {
		cfg.Fetch.MaxRetries = 3
	}
	if cfg.Fetch.RetryDelayMS == 0 {
		cfg.Fetch.RetryDelayMS = 500
	}
	if cfg.Fetch.RateLimitPerMin == 0 {
		cfg.Fetch.RateLimitPerMin = 200
	}
	if cfg.Market.BenchmarkTicker == "" {
		cfg.Market.BenchmarkTicker = "SPY"
	}
	if cfg.Market.VolatilityTicker == "" {
		cfg.Market.VolatilityTicker = "VIXY"
	}
	if cfg.Market.VolThreshold == 0 {
		cfg.Market.VolThreshold = 20
	}
	if cfg.Market.MALong == 0 {
		cfg.Market.MALong = 200
	}
	if cfg.Market.MAShort == 0 {
		cfg.Market.MAShort = 120
	}
	if cfg.Universe.Screener == "" {
		cfg.Universe.Screener = "large"
	}
	if cfg.Schedule.DailyCron == "" {
		cfg.Schedule.DailyCron = "0 9 * * MON-FRI"
	}
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}

	// Standard Alpaca env vars (canonical names used by the SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("APCA_API_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}
}
