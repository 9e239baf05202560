package engine

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzahran/scalpbot/internal/domain"
	"github.com/mzahran/scalpbot/internal/volatility"
)

type fakeMarket struct {
	bars map[domain.Timeframe][]domain.Bar
	tick *domain.Tick
	err  error
}

func (f *fakeMarket) GetBars(_ context.Context, _ string, tf domain.Timeframe, _ int) ([]domain.Bar, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.bars[tf], nil
}

func (f *fakeMarket) GetTick(context.Context, string) (*domain.Tick, error) {
	if f.tick == nil {
		return nil, domain.ErrNotFound
	}
	return f.tick, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func barsFromCloses(closes []float64, span float64) []domain.Bar {
	start := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)
	bars := make([]domain.Bar, len(closes))
	for i, c := range closes {
		bars[i] = domain.Bar{
			Time:   start.Add(time.Duration(i) * time.Minute),
			Open:   c,
			High:   c + span,
			Low:    c - span,
			Close:  c,
			Volume: 100,
		}
	}
	return bars
}

func trendingCloses(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

// decisionMarket serves a steady slide on M1 so that both the
// mean-reversion and VWAP strategies agree on a buy, with a rising M5
// series keeping the higher-timeframe filter aligned.
func decisionMarket() *fakeMarket {
	return &fakeMarket{
		bars: map[domain.Timeframe][]domain.Bar{
			domain.TimeframeM1:  barsFromCloses(trendingCloses(40, 120, -1), 0.5),
			domain.TimeframeM5:  barsFromCloses(trendingCloses(30, 100, 0.5), 0.5),
			domain.TimeframeM15: barsFromCloses(trendingCloses(30, 100, 0.1), 0.5),
		},
		tick: &domain.Tick{Symbol: "EURUSD", Bid: 100.0, Ask: 100.2},
	}
}

func TestEvaluateGeneratesSignal(t *testing.T) {
	market := decisionMarket()
	eng := New(market, Config{MinConfluence: 0.6}, testLogger())

	sig, regime, err := eng.Evaluate(context.Background(), "EURUSD")
	require.NoError(t, err)
	require.NotNil(t, sig)

	assert.Equal(t, domain.DirectionBuy, sig.Direction)
	assert.Equal(t, domain.RegimeLowVol, regime)
	// Weighted over the low-volatility table: mean reversion 0.68 at
	// weight 0.25, VWAP scalper 0.66 at weight 0.35.
	assert.InDelta(t, (0.68*0.25+0.66*0.35)/0.6, sig.Confidence, 1e-9)
	assert.NotEmpty(t, sig.ID)
	assert.False(t, sig.CreatedAt.IsZero())
	assert.Equal(t, 81.0, sig.EntryPrice)

	recent := eng.RecentSignals(10)
	require.Len(t, recent, 1)
	assert.Equal(t, sig.ID, recent[0].Signal.ID)
	assert.Equal(t, regime, recent[0].Regime)
}

func TestEvaluateMissingBars(t *testing.T) {
	eng := New(&fakeMarket{bars: map[domain.Timeframe][]domain.Bar{}}, Config{}, testLogger())

	sig, regime, err := eng.Evaluate(context.Background(), "EURUSD")
	require.NoError(t, err)
	assert.Nil(t, sig)
	assert.Equal(t, domain.RegimeNormal, regime)
}

func TestEvaluateMarketDataError(t *testing.T) {
	eng := New(&fakeMarket{err: domain.ErrNotConnected}, Config{}, testLogger())

	sig, _, err := eng.Evaluate(context.Background(), "EURUSD")
	require.NoError(t, err, "data errors degrade to a skipped cycle")
	assert.Nil(t, sig)
}

func TestEvaluateSkipsExtremeRegime(t *testing.T) {
	// A late volatility spike ranks the current ATR above the 95th
	// percentile of its own history.
	spans := make([]float64, 60)
	for i := range spans {
		spans[i] = 1.0
	}
	for i := 45; i < 60; i++ {
		spans[i] = 10.0
	}
	bars := make([]domain.Bar, len(spans))
	start := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)
	for i, s := range spans {
		bars[i] = domain.Bar{
			Time: start.Add(time.Duration(i) * time.Minute),
			Open: 100, High: 100 + s, Low: 100, Close: 100, Volume: 100,
		}
	}
	market := decisionMarket()
	market.bars[domain.TimeframeM1] = bars

	eng := New(market, Config{SkipExtremeRegime: true}, testLogger())
	sig, regime, err := eng.Evaluate(context.Background(), "EURUSD")
	require.NoError(t, err)
	assert.Nil(t, sig)
	assert.Equal(t, domain.RegimeExtreme, regime)
}

func TestEvaluateRejectsMisalignedTrend(t *testing.T) {
	market := decisionMarket()
	// A falling M5 series disagrees with the buy decision.
	market.bars[domain.TimeframeM5] = barsFromCloses(trendingCloses(30, 115, -0.5), 0.5)

	eng := New(market, Config{MinConfluence: 0.6}, testLogger())
	sig, _, err := eng.Evaluate(context.Background(), "EURUSD")
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestEvaluateRejectsBadSpread(t *testing.T) {
	market := decisionMarket()
	market.tick = &domain.Tick{Symbol: "EURUSD", Bid: 100.2, Ask: 100.0}

	eng := New(market, Config{MinConfluence: 0.6}, testLogger())
	sig, _, err := eng.Evaluate(context.Background(), "EURUSD")
	require.NoError(t, err)
	assert.Nil(t, sig)

	market.tick = nil
	sig, _, err = eng.Evaluate(context.Background(), "EURUSD")
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestEvaluateRespectsDisabledStrategies(t *testing.T) {
	eng := New(decisionMarket(), Config{MinConfluence: 0.6}, testLogger())
	eng.SetStrategyEnabled(domain.StrategyMeanReversion, false)
	eng.SetStrategyEnabled(domain.StrategyVWAPScalper, false)

	sig, _, err := eng.Evaluate(context.Background(), "EURUSD")
	require.NoError(t, err)
	assert.Nil(t, sig, "a single supporter is not confluence")
}

func TestEvaluateMinConfluenceThreshold(t *testing.T) {
	// With the default 0.7 floor the 0.668 weighted confidence of the
	// two supporters is rejected.
	eng := New(decisionMarket(), Config{}, testLogger())

	sig, _, err := eng.Evaluate(context.Background(), "EURUSD")
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestConfluence(t *testing.T) {
	weights := volatility.StrategyWeights(domain.RegimeNormal)
	buy := func(kind domain.StrategyKind, conf float64) domain.SignalResult {
		return domain.SignalResult{Direction: domain.DirectionBuy, Strategy: kind, Confidence: conf}
	}
	sell := func(kind domain.StrategyKind, conf float64) domain.SignalResult {
		return domain.SignalResult{Direction: domain.DirectionSell, Strategy: kind, Confidence: conf}
	}

	t.Run("two buyers win", func(t *testing.T) {
		decided, conf, ok := confluence([]domain.SignalResult{
			buy(domain.StrategyTrendCrossover, 0.7),
			buy(domain.StrategySqueezeBreakout, 0.8),
			sell(domain.StrategyMeanReversion, 0.9),
		}, weights)
		require.True(t, ok)
		assert.Equal(t, domain.DirectionBuy, decided.Direction)
		assert.Equal(t, domain.StrategySqueezeBreakout, decided.Strategy, "price fields follow the best supporter")
		assert.InDelta(t, (0.7*0.3+0.8*0.25)/0.55, conf, 1e-9)
	})

	t.Run("single supporter fails", func(t *testing.T) {
		_, _, ok := confluence([]domain.SignalResult{buy(domain.StrategyTrendCrossover, 0.9)}, weights)
		assert.False(t, ok)
	})

	t.Run("exact tie fails", func(t *testing.T) {
		_, _, ok := confluence([]domain.SignalResult{
			buy(domain.StrategyTrendCrossover, 0.9),
			buy(domain.StrategySqueezeBreakout, 0.9),
			sell(domain.StrategyMeanReversion, 0.9),
			sell(domain.StrategyVWAPScalper, 0.9),
		}, weights)
		assert.False(t, ok)
	})

	t.Run("unknown strategy gets the default weight", func(t *testing.T) {
		_, conf, ok := confluence([]domain.SignalResult{
			buy(domain.StrategyKind("custom-a"), 0.8),
			buy(domain.StrategyKind("custom-b"), 0.6),
		}, weights)
		require.True(t, ok)
		assert.InDelta(t, 0.7, conf, 1e-9)
	})
}

func TestTrendAligned(t *testing.T) {
	rising := barsFromCloses(trendingCloses(30, 100, 0.5), 0.5)
	falling := barsFromCloses(trendingCloses(30, 115, -0.5), 0.5)

	assert.True(t, trendAligned(domain.DirectionBuy, rising))
	assert.False(t, trendAligned(domain.DirectionBuy, falling))
	assert.True(t, trendAligned(domain.DirectionSell, falling))
	assert.False(t, trendAligned(domain.DirectionSell, rising))
	assert.False(t, trendAligned(domain.DirectionBuy, rising[:10]), "too few bars")
	assert.False(t, trendAligned(domain.DirectionNeutral, rising))
}

func TestRecentSignalsOrderAndEviction(t *testing.T) {
	eng := New(&fakeMarket{}, Config{HistoryLimit: 3}, testLogger())
	for i := 0; i < 5; i++ {
		eng.record(Record{Signal: domain.SignalResult{ID: string(rune('a' + i))}})
	}

	recent := eng.RecentSignals(10)
	require.Len(t, recent, 3)
	assert.Equal(t, "e", recent[0].Signal.ID, "newest first")
	assert.Equal(t, "c", recent[2].Signal.ID, "oldest surviving entry")

	one := eng.RecentSignals(1)
	require.Len(t, one, 1)
	assert.Equal(t, "e", one[0].Signal.ID)
}

func TestAutoExecuteFlag(t *testing.T) {
	eng := New(&fakeMarket{}, Config{}, testLogger())
	assert.False(t, eng.AutoExecute("EURUSD"))

	eng.SetAutoExecute("EURUSD", true)
	assert.True(t, eng.AutoExecute("EURUSD"))
	assert.False(t, eng.AutoExecute("GBPUSD"))

	eng.SetAutoExecute("EURUSD", false)
	assert.False(t, eng.AutoExecute("EURUSD"))
}

func TestStrategyStatusAndOverrides(t *testing.T) {
	eng := New(&fakeMarket{}, Config{}, testLogger())

	eng.SetStrategyEnabled(domain.StrategySqueezeBreakout, false)
	eng.SetStrategyOverrides(domain.StrategyTrendCrossover, map[string]float64{"ema_fast": 5})

	status := eng.StrategyStatus()
	require.Len(t, status, len(domain.AllStrategyKinds))
	byKind := make(map[domain.StrategyKind]StrategyStatus, len(status))
	for _, st := range status {
		byKind[st.Kind] = st
	}
	assert.False(t, byKind[domain.StrategySqueezeBreakout].Enabled)
	assert.True(t, byKind[domain.StrategyTrendCrossover].Enabled)
	assert.Equal(t, map[string]float64{"ema_fast": 5}, byKind[domain.StrategyTrendCrossover].Overrides)

	// Clearing overrides removes the entry entirely.
	eng.SetStrategyOverrides(domain.StrategyTrendCrossover, nil)
	for _, st := range eng.StrategyStatus() {
		if st.Kind == domain.StrategyTrendCrossover {
			assert.Empty(t, st.Overrides)
		}
	}
}

func TestApplySettings(t *testing.T) {
	eng := New(&fakeMarket{}, Config{}, testLogger())
	eng.ApplySettings([]domain.StrategySettings{
		{Kind: domain.StrategyMeanReversion, Enabled: false},
		{Kind: domain.StrategyVWAPScalper, Enabled: true, Overrides: map[string]float64{"rsi_period": 5}},
	})

	byKind := make(map[domain.StrategyKind]StrategyStatus)
	for _, st := range eng.StrategyStatus() {
		byKind[st.Kind] = st
	}
	assert.False(t, byKind[domain.StrategyMeanReversion].Enabled)
	assert.Equal(t, map[string]float64{"rsi_period": 5}, byKind[domain.StrategyVWAPScalper].Overrides)
}
