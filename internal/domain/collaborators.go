package domain

import (
	"context"
	"io"
	"time"
)

// MarketData supplies price history and live quotes. Implementations wrap
// the broker terminal; on transient unavailability they return (nil, nil),
// never an error — absence of data is a soft "no decision this cycle".
type MarketData interface {
	GetBars(ctx context.Context, symbol string, tf Timeframe, count int) ([]Bar, error)
	GetTick(ctx context.Context, symbol string) (*Tick, error)
}

// BrokerGateway is the session handle to the trading terminal. The core
// never reaches for global connectivity state; it calls this interface
// and treats nil results as degraded data.
type BrokerGateway interface {
	Connected() bool
	AccountSnapshot(ctx context.Context) (*AccountSnapshot, error)
	OpenPositions(ctx context.Context, symbol string) ([]Position, error)
	InstrumentConstraints(ctx context.Context, symbol string) (*InstrumentConstraints, error)
	ValidateOrder(ctx context.Context, req OrderRequest) (Retcode, error)
	SubmitOrder(ctx context.Context, req OrderRequest) (*OrderResult, error)
}

// TickCache stores the most recent quote per symbol so the HTTP surface can
// serve market data without a round trip to the terminal. Implementations
// return ErrNotFound when no quote has been cached for the symbol.
type TickCache interface {
	SetTick(ctx context.Context, symbol string, tick Tick) error
	GetTick(ctx context.Context, symbol string) (Tick, error)
}

// StreamMessage represents a single entry from a Redis stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// Channel and stream names carried by a SignalBus. They are part of the
// contract so publishers and subscribers cannot drift apart: the signals
// channel carries accepted signals, the orders channel carries execution
// outcomes, and the account channel carries reconciliation snapshots. The
// streams keep a bounded replayable history of the same events.
const (
	ChannelSignals = "scalpbot:signals"
	ChannelOrders  = "scalpbot:orders"
	ChannelAccount = "scalpbot:account"
	StreamSignals  = "scalpbot:stream:signals"
	StreamOrders   = "scalpbot:stream:orders"
)

// SignalBus provides pub/sub fan-out and a bounded durable stream for
// accepted signals, risk decisions, and order outcomes.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}

// BlobInfo describes a stored journal object.
type BlobInfo struct {
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// BlobWriter uploads journal batches to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// BlobReader retrieves and enumerates stored journal objects. Get returns
// ErrNotFound when no object exists at the path.
type BlobReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
	Delete(ctx context.Context, path string) error
}

// StrategySettings is the persisted runtime state of one strategy: its
// enable flag and parameter overrides.
type StrategySettings struct {
	Kind      StrategyKind
	Enabled   bool
	Overrides map[string]float64
	UpdatedAt time.Time
}

// StrategySettingsStore persists strategy enable flags and parameter
// overrides so runtime tuning survives a restart.
type StrategySettingsStore interface {
	Get(ctx context.Context, kind StrategyKind) (StrategySettings, error)
	Upsert(ctx context.Context, s StrategySettings) error
	List(ctx context.Context) ([]StrategySettings, error)
}
