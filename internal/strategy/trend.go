package strategy

import (
	"fmt"

	"github.com/mzahran/scalpbot/internal/domain"
	"github.com/mzahran/scalpbot/internal/indicator"
)

// TrendCrossover signals on a fast/slow EMA cross on the fastest
// timeframe: a cross-over opens a buy, a cross-under a sell.
type TrendCrossover struct {
	symbol string
}

// NewTrendCrossover creates a TrendCrossover strategy for one symbol.
func NewTrendCrossover(symbol string) *TrendCrossover {
	return &TrendCrossover{symbol: symbol}
}

// Kind returns the strategy identifier.
func (s *TrendCrossover) Kind() domain.StrategyKind { return domain.StrategyTrendCrossover }

// DefaultParams returns the base parameter record.
func (s *TrendCrossover) DefaultParams() Params {
	return Params{
		"ema_fast":    8,
		"ema_slow":    21,
		"atr_period":  14,
		"atr_sl_mult": 1.5,
		"atr_tp_mult": 2.5,
	}
}

// GenerateSignal looks for an EMA crossover on the previous-to-current
// bar transition of the fast series.
func (s *TrendCrossover) GenerateSignal(fast, _, _ []domain.Bar, params Params) domain.SignalResult {
	atrPeriod := params.Int("atr_period", 14)
	if len(fast) < atrPeriod+1 {
		return neutral(s.Kind(), s.symbol, "not enough bars")
	}

	closes := domain.Closes(fast)
	emaFast := indicator.EMA(closes, params.Int("ema_fast", 8))
	emaSlow := indicator.EMA(closes, params.Int("ema_slow", 21))
	if len(emaFast) < 2 || len(emaSlow) < 2 {
		return neutral(s.Kind(), s.symbol, "not enough bars")
	}

	n := len(closes)
	prevFast, currFast := emaFast[n-2], emaFast[n-1]
	prevSlow, currSlow := emaSlow[n-2], emaSlow[n-1]

	direction := domain.DirectionNeutral
	switch {
	case prevFast <= prevSlow && currFast > currSlow:
		direction = domain.DirectionBuy
	case prevFast >= prevSlow && currFast < currSlow:
		direction = domain.DirectionSell
	}
	if direction == domain.DirectionNeutral {
		return neutral(s.Kind(), s.symbol, "no crossover")
	}

	atr := indicator.ATR(fast, atrPeriod)
	atrValue := atr[len(atr)-1]
	entry := closes[n-1]
	stopLoss, takeProfit := s.CalculateSLTP(direction, entry, atrValue, params)

	return domain.SignalResult{
		Direction:  direction,
		Confidence: 0.7,
		EntryPrice: entry,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
		Strategy:   s.Kind(),
		Symbol:     s.symbol,
		Timeframe:  domain.TimeframeM1,
		Reasoning:  "EMA crossover on M1",
		Metadata: map[string]string{
			"ema_fast": fmt.Sprintf("%.5f", currFast),
			"ema_slow": fmt.Sprintf("%.5f", currSlow),
			"atr":      fmt.Sprintf("%.5f", atrValue),
		},
	}
}

// CalculateSLTP places the stop and target as ATR multiples.
func (s *TrendCrossover) CalculateSLTP(direction domain.Direction, entry, atr float64, params Params) (float64, float64) {
	return slTP(direction, entry, atr, params.Get("atr_sl_mult", 1.5), params.Get("atr_tp_mult", 2.5))
}
