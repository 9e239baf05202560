package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/mzahran/scalpbot/internal/blob/s3"
	"github.com/mzahran/scalpbot/internal/cache/redis"
	"github.com/mzahran/scalpbot/internal/config"
	"github.com/mzahran/scalpbot/internal/crypto"
	"github.com/mzahran/scalpbot/internal/domain"
	"github.com/mzahran/scalpbot/internal/notify"
	"github.com/mzahran/scalpbot/internal/platform/mt5"
	"github.com/mzahran/scalpbot/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Broker is the MT5 bridge session; it serves both market data and
	// trading. Nil in server-only mode.
	Broker *mt5.Client

	// Redis-backed messaging and caching.
	SignalBus domain.SignalBus
	TickCache domain.TickCache

	// SettingsStore persists strategy enable flags and overrides. Nil when
	// Postgres is not wired for the mode.
	SettingsStore domain.StrategySettingsStore

	// Journal storage. Both are nil unless the journal is enabled.
	JournalWriter domain.BlobWriter
	JournalReader domain.BlobReader

	// Notifier delivers operator alerts. Nil when no channel is configured.
	Notifier *notify.Notifier
}

// needsBroker returns true for modes that talk to the trading terminal.
func needsBroker(mode string) bool {
	switch mode {
	case "trade", "monitor":
		return true
	default:
		return false
	}
}

// needsPostgres returns true for modes that persist strategy settings.
func needsPostgres(mode string) bool {
	switch mode {
	case "trade", "monitor", "server":
		return true
	default:
		return false
	}
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- MT5 bridge (only for modes that touch the terminal) ---
	if needsBroker(cfg.Mode) {
		password, err := brokerPassword(cfg)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: broker credential: %w", err)
		}
		broker := mt5.NewClient(mt5.ClientConfig{
			Endpoint:     cfg.Broker.Endpoint,
			Login:        cfg.Broker.Login,
			Password:     password,
			Server:       cfg.Broker.Server,
			BridgeKey:    cfg.Broker.BridgeKey,
			BridgeSecret: cfg.Broker.BridgeSecret,
		})
		if err := broker.Connect(ctx); err != nil {
			// A dead bridge is not fatal at startup: the loops retry and
			// the risk manager blocks execution while disconnected.
			logger.WarnContext(ctx, "wire: mt5 bridge unreachable at startup",
				slog.String("endpoint", cfg.Broker.Endpoint),
				slog.String("error", err.Error()),
			)
		}
		deps.Broker = broker
	}

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.SignalBus = redis.NewSignalBus(redisClient)
	deps.TickCache = redis.NewTickCache(redisClient)

	// --- PostgreSQL (only for modes that need persistence) ---
	if needsPostgres(cfg.Mode) {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			// Strategy settings are a convenience, not a requirement; run
			// with runtime-only settings when the database is down.
			logger.WarnContext(ctx, "wire: postgres unavailable, settings will not persist",
				slog.String("error", err.Error()),
			)
		} else {
			closers = append(closers, pgClient.Close)

			if cfg.Postgres.RunMigrations {
				if err := pgClient.RunMigrations(ctx); err != nil {
					cleanup()
					return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
				}
			}

			deps.SettingsStore = postgres.NewStrategySettingsStore(pgClient.Pool())
		}
	}

	// --- Journal object storage ---
	if cfg.Journal.Enabled {
		blobClient, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.Journal.Endpoint,
			Region:         cfg.Journal.Region,
			Bucket:         cfg.Journal.Bucket,
			AccessKey:      cfg.Journal.AccessKey,
			SecretKey:      cfg.Journal.SecretKey,
			ForcePathStyle: cfg.Journal.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: journal storage: %w", err)
		}
		deps.JournalWriter = s3blob.NewWriter(blobClient)
		deps.JournalReader = s3blob.NewReader(blobClient)
	}

	// --- Operator notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhook != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhook))
	}
	if len(senders) > 0 {
		deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)
	}

	return deps, cleanup, nil
}

// brokerPassword resolves the terminal password, preferring the inline
// value and falling back to the encrypted credential file.
func brokerPassword(cfg *config.Config) (string, error) {
	if cfg.Broker.Password == "" && cfg.Broker.PasswordFile == "" {
		return "", nil
	}
	return crypto.LoadCredential(crypto.CredentialConfig{
		Raw:           cfg.Broker.Password,
		EncryptedPath: cfg.Broker.PasswordFile,
		Passphrase:    cfg.Broker.KeystorePassphrase,
	})
}
