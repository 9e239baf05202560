package executor

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzahran/scalpbot/internal/domain"
)

type fakeBroker struct {
	connected    bool
	constraints  *domain.InstrumentConstraints
	positions    []domain.Position
	validateCode domain.Retcode
	validateErr  error
	result       *domain.OrderResult
	submitErr    error

	submitted []domain.OrderRequest
}

func (f *fakeBroker) Connected() bool { return f.connected }

func (f *fakeBroker) AccountSnapshot(context.Context) (*domain.AccountSnapshot, error) {
	return &domain.AccountSnapshot{}, nil
}

func (f *fakeBroker) OpenPositions(_ context.Context, symbol string) ([]domain.Position, error) {
	if symbol == "" {
		return f.positions, nil
	}
	var out []domain.Position
	for _, p := range f.positions {
		if p.Symbol == symbol {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeBroker) InstrumentConstraints(context.Context, string) (*domain.InstrumentConstraints, error) {
	if f.constraints == nil {
		return nil, domain.ErrUnknownSymbol
	}
	return f.constraints, nil
}

func (f *fakeBroker) ValidateOrder(context.Context, domain.OrderRequest) (domain.Retcode, error) {
	return f.validateCode, f.validateErr
}

func (f *fakeBroker) SubmitOrder(_ context.Context, req domain.OrderRequest) (*domain.OrderResult, error) {
	f.submitted = append(f.submitted, req)
	return f.result, f.submitErr
}

type fakeTicks struct {
	tick *domain.Tick
}

func (f *fakeTicks) GetBars(context.Context, string, domain.Timeframe, int) ([]domain.Bar, error) {
	return nil, nil
}

func (f *fakeTicks) GetTick(context.Context, string) (*domain.Tick, error) {
	if f.tick == nil {
		return nil, domain.ErrNotFound
	}
	return f.tick, nil
}

func readyBroker() *fakeBroker {
	return &fakeBroker{
		connected: true,
		constraints: &domain.InstrumentConstraints{
			Symbol:  "EURUSD",
			MinLot:  0.01,
			MaxLot:  50,
			LotStep: 0.01,
		},
		validateCode: domain.RetcodeDone,
		result: &domain.OrderResult{
			Retcode:    domain.RetcodeDone,
			OrderID:    42,
			DealID:     7,
			FillPrice:  1.1001,
			FillVolume: 0.5,
		},
	}
}

func newExecutor(b *fakeBroker, t *fakeTicks, cfg Config) *Executor {
	return New(b, t, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func intent() domain.TradeIntent {
	return domain.TradeIntent{
		ID:         "sig-1",
		Symbol:     "EURUSD",
		Direction:  domain.DirectionBuy,
		Lot:        0.5,
		StopLoss:   1.0950,
		TakeProfit: 1.1100,
		Comment:    "scalp",
	}
}

func TestExecuteMarketOrderFills(t *testing.T) {
	broker := readyBroker()
	ticks := &fakeTicks{tick: &domain.Tick{Symbol: "EURUSD", Bid: 1.1000, Ask: 1.1002}}
	exec := newExecutor(broker, ticks, Config{Magic: 777})

	out := exec.ExecuteMarketOrder(context.Background(), intent())

	assert.True(t, out.Success)
	assert.Equal(t, domain.RetcodeDone, out.Retcode)
	assert.Equal(t, "Order executed successfully", out.Message)
	assert.Equal(t, int64(42), out.OrderID)
	assert.Equal(t, int64(7), out.DealID)

	require.Len(t, broker.submitted, 1)
	req := broker.submitted[0]
	assert.Equal(t, 1.1002, req.Price, "buys fill at the ask")
	assert.Equal(t, 0.5, req.Volume)
	assert.Equal(t, 777, req.Magic)
	assert.Equal(t, defaultDeviation, req.Deviation)
}

func TestExecuteMarketOrderSellUsesBid(t *testing.T) {
	broker := readyBroker()
	ticks := &fakeTicks{tick: &domain.Tick{Symbol: "EURUSD", Bid: 1.1000, Ask: 1.1002}}
	exec := newExecutor(broker, ticks, Config{})

	in := intent()
	in.Direction = domain.DirectionSell
	exec.ExecuteMarketOrder(context.Background(), in)

	require.Len(t, broker.submitted, 1)
	assert.Equal(t, 1.1000, broker.submitted[0].Price)
}

func TestExecuteMarketOrderFailures(t *testing.T) {
	ctx := context.Background()
	ticks := &fakeTicks{tick: &domain.Tick{Symbol: "EURUSD", Bid: 1.1000, Ask: 1.1002}}

	t.Run("disconnected", func(t *testing.T) {
		broker := readyBroker()
		broker.connected = false
		out := newExecutor(broker, ticks, Config{}).ExecuteMarketOrder(ctx, intent())
		assert.False(t, out.Success)
		assert.Equal(t, "Broker not connected", out.Message)
	})

	t.Run("unknown instrument", func(t *testing.T) {
		broker := readyBroker()
		broker.constraints = nil
		out := newExecutor(broker, ticks, Config{}).ExecuteMarketOrder(ctx, intent())
		assert.False(t, out.Success)
		assert.Equal(t, "Unknown instrument EURUSD", out.Message)
	})

	t.Run("no tick", func(t *testing.T) {
		out := newExecutor(readyBroker(), &fakeTicks{}, Config{}).ExecuteMarketOrder(ctx, intent())
		assert.False(t, out.Success)
		assert.Equal(t, "No tick data", out.Message)
	})

	t.Run("pre-check rejection never submits", func(t *testing.T) {
		broker := readyBroker()
		broker.validateCode = domain.RetcodeInvalidStops
		out := newExecutor(broker, ticks, Config{}).ExecuteMarketOrder(ctx, intent())
		assert.False(t, out.Success)
		assert.Equal(t, "Invalid SL/TP", out.Message)
		assert.Equal(t, domain.RetcodeInvalidStops, out.Retcode)
		assert.Empty(t, broker.submitted)
	})

	t.Run("broker rejection", func(t *testing.T) {
		broker := readyBroker()
		broker.result = &domain.OrderResult{Retcode: domain.RetcodeNoMoney}
		out := newExecutor(broker, ticks, Config{}).ExecuteMarketOrder(ctx, intent())
		assert.False(t, out.Success)
		assert.Equal(t, "Insufficient margin", out.Message)
		assert.Equal(t, domain.RetcodeNoMoney, out.Retcode)
	})

	t.Run("nil result", func(t *testing.T) {
		broker := readyBroker()
		broker.result = nil
		out := newExecutor(broker, ticks, Config{}).ExecuteMarketOrder(ctx, intent())
		assert.False(t, out.Success)
		assert.Equal(t, "No result from broker", out.Message)
	})

	t.Run("partial fill is not success", func(t *testing.T) {
		broker := readyBroker()
		broker.result = &domain.OrderResult{Retcode: domain.RetcodeDonePartial}
		out := newExecutor(broker, ticks, Config{}).ExecuteMarketOrder(ctx, intent())
		assert.False(t, out.Success)
	})
}

func TestNormalizeVolume(t *testing.T) {
	constraints := &domain.InstrumentConstraints{MinLot: 0.01, MaxLot: 50, LotStep: 0.01}
	exec := newExecutor(readyBroker(), &fakeTicks{}, Config{})

	assert.Equal(t, 0.5, exec.NormalizeVolume(constraints, 0.5))
	assert.Equal(t, 0.33, exec.NormalizeVolume(constraints, 0.337), "floored to step")
	assert.Equal(t, 0.01, exec.NormalizeVolume(constraints, 0.001), "raised to minimum")
	assert.Equal(t, 50.0, exec.NormalizeVolume(constraints, 120), "clamped to maximum")

	capped := newExecutor(readyBroker(), &fakeTicks{}, Config{MaxLotSize: 2})
	assert.Equal(t, 2.0, capped.NormalizeVolume(constraints, 120), "global cap wins")

	// A cap below the instrument minimum falls back to the minimum.
	tight := newExecutor(readyBroker(), &fakeTicks{}, Config{MaxLotSize: 0.005})
	assert.Equal(t, 0.01, tight.NormalizeVolume(constraints, 1))
}

func TestClosePosition(t *testing.T) {
	ctx := context.Background()
	ticks := &fakeTicks{tick: &domain.Tick{Symbol: "EURUSD", Bid: 1.1000, Ask: 1.1002}}

	t.Run("inverts direction and uses position volume", func(t *testing.T) {
		broker := readyBroker()
		broker.positions = []domain.Position{
			{ID: 11, Symbol: "EURUSD", Direction: domain.DirectionBuy, Volume: 0.7},
		}
		out := newExecutor(broker, ticks, Config{}).ClosePosition(ctx, 11, 0)
		assert.True(t, out.Success)

		require.Len(t, broker.submitted, 1)
		req := broker.submitted[0]
		assert.Equal(t, domain.DirectionSell, req.Direction)
		assert.Equal(t, 0.7, req.Volume)
		assert.Equal(t, 1.1000, req.Price, "closing a buy sells at the bid")
		assert.Equal(t, int64(11), req.PositionID)
		assert.True(t, req.CloseRequest)
	})

	t.Run("override lot", func(t *testing.T) {
		broker := readyBroker()
		broker.positions = []domain.Position{
			{ID: 11, Symbol: "EURUSD", Direction: domain.DirectionSell, Volume: 0.7},
		}
		newExecutor(broker, ticks, Config{}).ClosePosition(ctx, 11, 0.3)

		require.Len(t, broker.submitted, 1)
		req := broker.submitted[0]
		assert.Equal(t, domain.DirectionBuy, req.Direction)
		assert.Equal(t, 0.3, req.Volume)
		assert.Equal(t, 1.1002, req.Price)
	})

	t.Run("unknown position", func(t *testing.T) {
		out := newExecutor(readyBroker(), ticks, Config{}).ClosePosition(ctx, 99, 0)
		assert.False(t, out.Success)
		assert.Equal(t, "Position not found", out.Message)
	})
}

func TestCloseAllPositions(t *testing.T) {
	ctx := context.Background()
	ticks := &fakeTicks{tick: &domain.Tick{Symbol: "EURUSD", Bid: 1.1000, Ask: 1.1002}}

	broker := readyBroker()
	broker.positions = []domain.Position{
		{ID: 1, Symbol: "EURUSD", Direction: domain.DirectionBuy, Volume: 0.1},
		{ID: 2, Symbol: "EURUSD", Direction: domain.DirectionSell, Volume: 0.2},
	}
	outcomes := newExecutor(broker, ticks, Config{}).CloseAllPositions(ctx, "EURUSD")
	require.Len(t, outcomes, 2)
	for _, out := range outcomes {
		assert.True(t, out.Success)
	}
	assert.Len(t, broker.submitted, 2)

	empty := newExecutor(readyBroker(), ticks, Config{}).CloseAllPositions(ctx, "")
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestModifyPosition(t *testing.T) {
	broker := readyBroker()
	broker.positions = []domain.Position{
		{ID: 5, Symbol: "EURUSD", Direction: domain.DirectionBuy, Volume: 0.4},
	}
	out := newExecutor(broker, &fakeTicks{}, Config{}).ModifyPosition(context.Background(), 5, 1.09, 1.12)
	assert.True(t, out.Success)

	require.Len(t, broker.submitted, 1)
	req := broker.submitted[0]
	assert.Equal(t, 1.09, req.StopLoss)
	assert.Equal(t, 1.12, req.TakeProfit)
	assert.Equal(t, int64(5), req.PositionID)
}

func TestRetcodeMessageUnknown(t *testing.T) {
	assert.Equal(t, "Unknown retcode 99999", retcodeMessage(domain.Retcode(99999)))
}
