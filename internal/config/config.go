// Package config defines the top-level configuration for the scalping bot
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by SCALPBOT_* environment variables.
type Config struct {
	Broker   BrokerConfig   `toml:"broker"`
	Trading  TradingConfig  `toml:"trading"`
	Risk     RiskConfig     `toml:"risk"`
	Engine   EngineConfig   `toml:"engine"`
	Redis    RedisConfig    `toml:"redis"`
	Postgres PostgresConfig `toml:"postgres"`
	Server   ServerConfig   `toml:"server"`
	Journal  JournalConfig  `toml:"journal"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// BrokerConfig holds terminal connection parameters and order tagging.
// Password may be supplied directly or via PasswordFile, an encrypted
// credential blob unlocked with KeystorePassphrase.
type BrokerConfig struct {
	Login              int64  `toml:"login"`
	Password           string `toml:"password"`
	PasswordFile       string `toml:"password_file"`
	KeystorePassphrase string `toml:"keystore_passphrase"`
	Server             string `toml:"server"`
	Endpoint           string `toml:"endpoint"`
	BridgeKey          string `toml:"bridge_key"`
	BridgeSecret       string `toml:"bridge_secret"`
	Magic              int    `toml:"magic"`
	Deviation          int    `toml:"deviation"`
}

// TradingConfig holds the traded universe and execution switches.
type TradingConfig struct {
	Symbols     []string `toml:"symbols"`
	AutoExecute bool     `toml:"auto_execute"`
	MaxLotSize  float64  `toml:"max_lot_size"`
}

// RiskConfig holds position sizing and portfolio protection limits.
type RiskConfig struct {
	MaxRiskPerTradePct float64             `toml:"max_risk_per_trade_pct"`
	MaxDailyLossPct    float64             `toml:"max_daily_loss_pct"`
	MaxOpenPositions   int                 `toml:"max_open_positions"`
	FreeMarginMinPct   float64             `toml:"free_margin_min_pct"`
	MinLotOverrides    map[string]float64 `toml:"min_lot_overrides"`
	CorrelatedPairs    map[string]string  `toml:"correlated_pairs"`
}

// EngineConfig holds signal generation parameters and loop cadence.
type EngineConfig struct {
	MinConfluence     float64  `toml:"min_confluence"`
	SkipExtremeRegime bool     `toml:"skip_extreme_regime"`
	HistoryLimit      int      `toml:"history_limit"`
	SignalInterval    duration `toml:"signal_interval"`
	AccountInterval   duration `toml:"account_interval"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	APIKey      string   `toml:"api_key"`
	CORSOrigins []string `toml:"cors_origins"`
}

// JournalConfig holds the stream-to-object-store journal settings. When
// disabled, signal and order history lives only in the bounded Redis
// streams.
type JournalConfig struct {
	Enabled        bool     `toml:"enabled"`
	Interval       duration `toml:"interval"`
	RetentionDays  int      `toml:"retention_days"`
	Prefix         string   `toml:"prefix"`
	Endpoint       string   `toml:"endpoint"`
	Region         string   `toml:"region"`
	Bucket         string   `toml:"bucket"`
	AccessKey      string   `toml:"access_key"`
	SecretKey      string   `toml:"secret_key"`
	ForcePathStyle bool     `toml:"force_path_style"`
}

// NotifyConfig holds operator alert channels. A channel is active when its
// credentials are set; events filters which event types are forwarded
// (empty allows all).
type NotifyConfig struct {
	TelegramToken  string   `toml:"telegram_token"`
	TelegramChatID string   `toml:"telegram_chat_id"`
	DiscordWebhook string   `toml:"discord_webhook"`
	Events         []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5s", "1m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5s" or "10s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Broker: BrokerConfig{
			Endpoint:  "localhost:18812",
			Magic:     234000,
			Deviation: 15,
		},
		Trading: TradingConfig{
			Symbols:     []string{"EURUSD", "GBPUSD"},
			AutoExecute: false,
			MaxLotSize:  1.0,
		},
		Risk: RiskConfig{
			MaxRiskPerTradePct: 1.0,
			MaxDailyLossPct:    5.0,
			MaxOpenPositions:   3,
			FreeMarginMinPct:   200.0,
			MinLotOverrides:    map[string]float64{},
			CorrelatedPairs: map[string]string{
				"EURUSD": "GBPUSD",
				"GBPUSD": "EURUSD",
				"XAUUSD": "XAGUSD",
			},
		},
		Engine: EngineConfig{
			MinConfluence:     0.7,
			SkipExtremeRegime: true,
			HistoryLimit:      500,
			SignalInterval:    duration{5 * time.Second},
			AccountInterval:   duration{10 * time.Second},
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "scalpbot",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Journal: JournalConfig{
			Enabled:       false,
			Interval:      duration{time.Hour},
			RetentionDays: 30,
			Prefix:        "journal",
			Region:        "us-east-1",
		},
		Notify: NotifyConfig{
			Events: []string{"order_filled", "order_failed", "risk_paused"},
		},
		Mode:     "monitor",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"trade":   true,
	"monitor": true,
	"server":  true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: trade, monitor, server)", c.Mode))
	}

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if len(c.Trading.Symbols) == 0 {
		errs = append(errs, "trading: symbols must list at least one instrument")
	}
	if c.Trading.MaxLotSize <= 0 {
		errs = append(errs, fmt.Sprintf("trading: max_lot_size must be positive, got %v", c.Trading.MaxLotSize))
	}

	if c.Mode == "trade" {
		if c.Broker.Login == 0 {
			errs = append(errs, "broker: login is required for mode trade")
		}
		if c.Broker.Server == "" {
			errs = append(errs, "broker: server is required for mode trade")
		}
	}
	if c.Broker.Deviation < 0 {
		errs = append(errs, fmt.Sprintf("broker: deviation must be non-negative, got %d", c.Broker.Deviation))
	}

	if c.Risk.MaxRiskPerTradePct <= 0 || c.Risk.MaxRiskPerTradePct > 100 {
		errs = append(errs, fmt.Sprintf("risk: max_risk_per_trade_pct must be in (0, 100], got %v", c.Risk.MaxRiskPerTradePct))
	}
	if c.Risk.MaxDailyLossPct <= 0 || c.Risk.MaxDailyLossPct > 100 {
		errs = append(errs, fmt.Sprintf("risk: max_daily_loss_pct must be in (0, 100], got %v", c.Risk.MaxDailyLossPct))
	}
	if c.Risk.MaxOpenPositions <= 0 {
		errs = append(errs, fmt.Sprintf("risk: max_open_positions must be positive, got %d", c.Risk.MaxOpenPositions))
	}
	for sym, lot := range c.Risk.MinLotOverrides {
		if lot <= 0 {
			errs = append(errs, fmt.Sprintf("risk: min_lot_overrides[%s] must be positive, got %v", sym, lot))
		}
	}

	if c.Engine.MinConfluence < 0 || c.Engine.MinConfluence > 1 {
		errs = append(errs, fmt.Sprintf("engine: min_confluence must be in [0, 1], got %v", c.Engine.MinConfluence))
	}
	if c.Engine.HistoryLimit <= 0 {
		errs = append(errs, fmt.Sprintf("engine: history_limit must be positive, got %d", c.Engine.HistoryLimit))
	}
	if c.Engine.SignalInterval.Duration <= 0 {
		errs = append(errs, "engine: signal_interval must be positive")
	}
	if c.Engine.AccountInterval.Duration <= 0 {
		errs = append(errs, "engine: account_interval must be positive")
	}

	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be in [1, 65535], got %d", c.Server.Port))
		}
	}

	if c.Journal.Enabled {
		if c.Journal.Bucket == "" {
			errs = append(errs, "journal: bucket is required when the journal is enabled")
		}
		if c.Journal.Region == "" {
			errs = append(errs, "journal: region is required when the journal is enabled")
		}
		if c.Journal.Interval.Duration <= 0 {
			errs = append(errs, "journal: interval must be positive")
		}
		if c.Journal.RetentionDays < 0 {
			errs = append(errs, fmt.Sprintf("journal: retention_days must be non-negative, got %d", c.Journal.RetentionDays))
		}
	}

	if c.Notify.TelegramToken != "" && c.Notify.TelegramChatID == "" {
		errs = append(errs, "notify: telegram_chat_id is required when telegram_token is set")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}
