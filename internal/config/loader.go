package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies SCALPBOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SCALPBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Broker ──
	setInt64(&cfg.Broker.Login, "SCALPBOT_BROKER_LOGIN")
	setStr(&cfg.Broker.Password, "SCALPBOT_BROKER_PASSWORD")
	setStr(&cfg.Broker.PasswordFile, "SCALPBOT_BROKER_PASSWORD_FILE")
	setStr(&cfg.Broker.KeystorePassphrase, "SCALPBOT_BROKER_KEYSTORE_PASSPHRASE")
	setStr(&cfg.Broker.Server, "SCALPBOT_BROKER_SERVER")
	setStr(&cfg.Broker.Endpoint, "SCALPBOT_BROKER_ENDPOINT")
	setStr(&cfg.Broker.BridgeKey, "SCALPBOT_BROKER_BRIDGE_KEY")
	setStr(&cfg.Broker.BridgeSecret, "SCALPBOT_BROKER_BRIDGE_SECRET")
	setInt(&cfg.Broker.Magic, "SCALPBOT_BROKER_MAGIC")
	setInt(&cfg.Broker.Deviation, "SCALPBOT_BROKER_DEVIATION")

	// ── Trading ──
	setStringSlice(&cfg.Trading.Symbols, "SCALPBOT_TRADING_SYMBOLS")
	setBool(&cfg.Trading.AutoExecute, "SCALPBOT_TRADING_AUTO_EXECUTE")
	setFloat64(&cfg.Trading.MaxLotSize, "SCALPBOT_TRADING_MAX_LOT_SIZE")

	// ── Risk ──
	setFloat64(&cfg.Risk.MaxRiskPerTradePct, "SCALPBOT_RISK_MAX_RISK_PER_TRADE_PCT")
	setFloat64(&cfg.Risk.MaxDailyLossPct, "SCALPBOT_RISK_MAX_DAILY_LOSS_PCT")
	setInt(&cfg.Risk.MaxOpenPositions, "SCALPBOT_RISK_MAX_OPEN_POSITIONS")
	setFloat64(&cfg.Risk.FreeMarginMinPct, "SCALPBOT_RISK_FREE_MARGIN_MIN_PCT")

	// ── Engine ──
	setFloat64(&cfg.Engine.MinConfluence, "SCALPBOT_ENGINE_MIN_CONFLUENCE")
	setBool(&cfg.Engine.SkipExtremeRegime, "SCALPBOT_ENGINE_SKIP_EXTREME_REGIME")
	setInt(&cfg.Engine.HistoryLimit, "SCALPBOT_ENGINE_HISTORY_LIMIT")
	setDuration(&cfg.Engine.SignalInterval, "SCALPBOT_ENGINE_SIGNAL_INTERVAL")
	setDuration(&cfg.Engine.AccountInterval, "SCALPBOT_ENGINE_ACCOUNT_INTERVAL")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "SCALPBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SCALPBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SCALPBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SCALPBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SCALPBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SCALPBOT_REDIS_TLS_ENABLED")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "SCALPBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "SCALPBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "SCALPBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "SCALPBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "SCALPBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "SCALPBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "SCALPBOT_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "SCALPBOT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "SCALPBOT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "SCALPBOT_POSTGRES_RUN_MIGRATIONS")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "SCALPBOT_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "SCALPBOT_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "SCALPBOT_SERVER_API_KEY")
	setStringSlice(&cfg.Server.CORSOrigins, "SCALPBOT_SERVER_CORS_ORIGINS")

	// ── Journal ──
	setBool(&cfg.Journal.Enabled, "SCALPBOT_JOURNAL_ENABLED")
	setDuration(&cfg.Journal.Interval, "SCALPBOT_JOURNAL_INTERVAL")
	setInt(&cfg.Journal.RetentionDays, "SCALPBOT_JOURNAL_RETENTION_DAYS")
	setStr(&cfg.Journal.Prefix, "SCALPBOT_JOURNAL_PREFIX")
	setStr(&cfg.Journal.Endpoint, "SCALPBOT_JOURNAL_ENDPOINT")
	setStr(&cfg.Journal.Region, "SCALPBOT_JOURNAL_REGION")
	setStr(&cfg.Journal.Bucket, "SCALPBOT_JOURNAL_BUCKET")
	setStr(&cfg.Journal.AccessKey, "SCALPBOT_JOURNAL_ACCESS_KEY")
	setStr(&cfg.Journal.SecretKey, "SCALPBOT_JOURNAL_SECRET_KEY")
	setBool(&cfg.Journal.ForcePathStyle, "SCALPBOT_JOURNAL_FORCE_PATH_STYLE")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "SCALPBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SCALPBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhook, "SCALPBOT_NOTIFY_DISCORD_WEBHOOK")
	setStringSlice(&cfg.Notify.Events, "SCALPBOT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "SCALPBOT_MODE")
	setStr(&cfg.LogLevel, "SCALPBOT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
