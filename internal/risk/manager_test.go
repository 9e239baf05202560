package risk

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mzahran/scalpbot/internal/domain"
)

type fakeBroker struct {
	connected    bool
	positions    map[string][]domain.Position
	positionsErr error
	snapshot     *domain.AccountSnapshot
	snapshotErr  error
	constraints  *domain.InstrumentConstraints
}

func (f *fakeBroker) Connected() bool { return f.connected }

func (f *fakeBroker) AccountSnapshot(context.Context) (*domain.AccountSnapshot, error) {
	return f.snapshot, f.snapshotErr
}

func (f *fakeBroker) OpenPositions(_ context.Context, symbol string) ([]domain.Position, error) {
	if f.positionsErr != nil {
		return nil, f.positionsErr
	}
	if symbol == "" {
		var all []domain.Position
		for _, ps := range f.positions {
			all = append(all, ps...)
		}
		return all, nil
	}
	return f.positions[symbol], nil
}

func (f *fakeBroker) InstrumentConstraints(context.Context, string) (*domain.InstrumentConstraints, error) {
	if f.constraints == nil {
		return nil, domain.ErrUnknownSymbol
	}
	return f.constraints, nil
}

func (f *fakeBroker) ValidateOrder(context.Context, domain.OrderRequest) (domain.Retcode, error) {
	return domain.RetcodeDone, nil
}

func (f *fakeBroker) SubmitOrder(context.Context, domain.OrderRequest) (*domain.OrderResult, error) {
	return nil, nil
}

func healthyBroker() *fakeBroker {
	return &fakeBroker{
		connected: true,
		positions: map[string][]domain.Position{},
		snapshot:  &domain.AccountSnapshot{Equity: 10000, Balance: 10000, Margin: 1000, FreeMargin: 9000},
		constraints: &domain.InstrumentConstraints{
			Symbol:    "EURUSD",
			MinLot:    0.01,
			MaxLot:    100,
			LotStep:   0.01,
			TickValue: 1,
			TickSize:  0.0001,
		},
	}
}

func testConfig() Config {
	return Config{
		MaxRiskPerTradePct: 1,
		MaxDailyLossPct:    5,
		MaxOpenPositions:   5,
		FreeMarginMinPct:   20,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestApproveTradeAllows(t *testing.T) {
	m := NewManager(healthyBroker(), testConfig(), testLogger())

	decision := m.ApproveTrade(context.Background(), "EURUSD", domain.DirectionBuy, 10000)
	assert.True(t, decision.Approved)
	assert.Equal(t, "Approved", decision.Reason)
}

func TestApproveTradeRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("paused", func(t *testing.T) {
		m := NewManager(healthyBroker(), testConfig(), testLogger())
		m.Pause("manual")
		d := m.ApproveTrade(ctx, "EURUSD", domain.DirectionBuy, 10000)
		assert.False(t, d.Approved)
		assert.Equal(t, "Trading paused by risk manager", d.Reason)
	})

	t.Run("broker disconnected", func(t *testing.T) {
		b := healthyBroker()
		b.connected = false
		m := NewManager(b, testConfig(), testLogger())
		d := m.ApproveTrade(ctx, "EURUSD", domain.DirectionBuy, 10000)
		assert.False(t, d.Approved)
		assert.Equal(t, "Broker not connected", d.Reason)
	})

	t.Run("positions unavailable", func(t *testing.T) {
		b := healthyBroker()
		b.positionsErr = domain.ErrNotConnected
		m := NewManager(b, testConfig(), testLogger())
		d := m.ApproveTrade(ctx, "EURUSD", domain.DirectionBuy, 10000)
		assert.False(t, d.Approved)
		assert.Equal(t, "Cannot read open positions", d.Reason)
	})

	t.Run("max open positions", func(t *testing.T) {
		b := healthyBroker()
		for i := 0; i < 5; i++ {
			b.positions["EURUSD"] = append(b.positions["EURUSD"], domain.Position{ID: int64(i)})
		}
		m := NewManager(b, testConfig(), testLogger())
		d := m.ApproveTrade(ctx, "EURUSD", domain.DirectionBuy, 10000)
		assert.False(t, d.Approved)
		assert.Equal(t, "Max open positions reached", d.Reason)
	})

	t.Run("correlated exposure", func(t *testing.T) {
		b := healthyBroker()
		b.positions["GBPUSD"] = []domain.Position{{ID: 1}, {ID: 2}}
		cfg := testConfig()
		cfg.CorrelatedPairs = map[string]string{"EURUSD": "GBPUSD", "GBPUSD": "EURUSD"}
		m := NewManager(b, cfg, testLogger())
		d := m.ApproveTrade(ctx, "EURUSD", domain.DirectionBuy, 10000)
		assert.False(t, d.Approved)
		assert.Equal(t, "Correlated exposure limit", d.Reason)

		// One open position in the paired symbol is still fine.
		b.positions["GBPUSD"] = b.positions["GBPUSD"][:1]
		assert.True(t, m.ApproveTrade(ctx, "EURUSD", domain.DirectionBuy, 10000).Approved)
	})

	t.Run("free margin below threshold", func(t *testing.T) {
		b := healthyBroker()
		b.snapshot = &domain.AccountSnapshot{Equity: 10000, Margin: 1000, FreeMargin: 100}
		m := NewManager(b, testConfig(), testLogger())
		d := m.ApproveTrade(ctx, "EURUSD", domain.DirectionBuy, 10000)
		assert.False(t, d.Approved)
		assert.Equal(t, "Free margin below threshold", d.Reason)
	})

	t.Run("zero used margin passes", func(t *testing.T) {
		b := healthyBroker()
		b.snapshot = &domain.AccountSnapshot{Equity: 10000, Margin: 0, FreeMargin: 0}
		m := NewManager(b, testConfig(), testLogger())
		assert.True(t, m.ApproveTrade(ctx, "EURUSD", domain.DirectionBuy, 10000).Approved)
	})
}

func TestDailyLossLatchesPause(t *testing.T) {
	m := NewManager(healthyBroker(), testConfig(), testLogger())

	m.SyncFromAccount(10000)
	m.SyncFromAccount(9400) // -600 against a -500 limit at 5% of 10k

	d := m.ApproveTrade(context.Background(), "EURUSD", domain.DirectionBuy, 10000)
	assert.False(t, d.Approved)
	assert.Equal(t, "Daily loss limit hit", d.Reason)
	assert.True(t, m.IsPaused(), "breach latches the pause flag")

	// The latch now short-circuits before any other check.
	d = m.ApproveTrade(context.Background(), "EURUSD", domain.DirectionBuy, 10000)
	assert.Equal(t, "Trading paused by risk manager", d.Reason)

	m.Resume()
	assert.False(t, m.IsPaused())
}

func TestDailyLossWithinLimit(t *testing.T) {
	m := NewManager(healthyBroker(), testConfig(), testLogger())

	m.SyncFromAccount(10000)
	m.SyncFromAccount(9600) // -400, inside the -500 limit

	assert.True(t, m.ApproveTrade(context.Background(), "EURUSD", domain.DirectionBuy, 10000).Approved)
	assert.False(t, m.IsPaused())
}

func TestSyncFromAccountReconciles(t *testing.T) {
	m := NewManager(healthyBroker(), testConfig(), testLogger())

	m.SyncFromAccount(10000)
	assert.True(t, m.DailyPnL().IsZero())

	m.SyncFromAccount(10250.50)
	assert.Equal(t, "250.5", m.DailyPnL().String())

	// Recomputed from the baseline, not incremented.
	m.SyncFromAccount(9900)
	assert.Equal(t, "-100", m.DailyPnL().String())
}

func TestCalculateLotSize(t *testing.T) {
	ctx := context.Background()

	t.Run("risk budget over stop distance", func(t *testing.T) {
		m := NewManager(healthyBroker(), testConfig(), testLogger())
		// 1% of 10k = 100 risked; 50 pips at 10000/lot value = 2.0 lots.
		lot := m.CalculateLotSize(ctx, "EURUSD", 10000, 0.0050, domain.RegimeNormal)
		assert.InDelta(t, 2.0, lot, 1e-9)
	})

	t.Run("floored to lot step", func(t *testing.T) {
		m := NewManager(healthyBroker(), testConfig(), testLogger())
		// 100 / (0.0030 * 10000) = 3.333..., floored to 3.33.
		lot := m.CalculateLotSize(ctx, "EURUSD", 10000, 0.0030, domain.RegimeNormal)
		assert.InDelta(t, 3.33, lot, 1e-9)
	})

	t.Run("regime scales the size down", func(t *testing.T) {
		m := NewManager(healthyBroker(), testConfig(), testLogger())
		lot := m.CalculateLotSize(ctx, "EURUSD", 10000, 0.0050, domain.RegimeHighVol)
		assert.InDelta(t, 1.5, lot, 1e-9)
		lot = m.CalculateLotSize(ctx, "EURUSD", 10000, 0.0050, domain.RegimeExtreme)
		assert.InDelta(t, 1.0, lot, 1e-9)
	})

	t.Run("global cap clamps", func(t *testing.T) {
		cfg := testConfig()
		cfg.MaxLotSize = 1.5
		m := NewManager(healthyBroker(), cfg, testLogger())
		lot := m.CalculateLotSize(ctx, "EURUSD", 10000, 0.0050, domain.RegimeNormal)
		assert.InDelta(t, 1.5, lot, 1e-9)
	})

	t.Run("raised to instrument minimum", func(t *testing.T) {
		m := NewManager(healthyBroker(), testConfig(), testLogger())
		// 1 / (1.0 * 10000) = 0.0001, floored to 0, raised to min lot.
		lot := m.CalculateLotSize(ctx, "EURUSD", 100, 1.0, domain.RegimeNormal)
		assert.InDelta(t, 0.01, lot, 1e-9)
	})

	t.Run("per-symbol minimum override", func(t *testing.T) {
		cfg := testConfig()
		cfg.MinLotOverrides = map[string]float64{"EURUSD": 0.1}
		m := NewManager(healthyBroker(), cfg, testLogger())
		lot := m.CalculateLotSize(ctx, "EURUSD", 100, 1.0, domain.RegimeNormal)
		assert.InDelta(t, 0.1, lot, 1e-9)
	})

	t.Run("non-positive stop distance", func(t *testing.T) {
		m := NewManager(healthyBroker(), testConfig(), testLogger())
		assert.Zero(t, m.CalculateLotSize(ctx, "EURUSD", 10000, 0, domain.RegimeNormal))
		assert.Zero(t, m.CalculateLotSize(ctx, "EURUSD", 10000, -1, domain.RegimeNormal))
	})

	t.Run("missing constraints", func(t *testing.T) {
		b := healthyBroker()
		b.constraints = nil
		m := NewManager(b, testConfig(), testLogger())
		assert.Zero(t, m.CalculateLotSize(ctx, "EURUSD", 10000, 0.0050, domain.RegimeNormal))
	})

	t.Run("degenerate tick data falls back to minimum", func(t *testing.T) {
		b := healthyBroker()
		b.constraints.TickValue = 0
		m := NewManager(b, testConfig(), testLogger())
		assert.Equal(t, 0.01, m.CalculateLotSize(ctx, "EURUSD", 10000, 0.0050, domain.RegimeNormal))
	})
}
