package strategy

import (
	"fmt"

	"github.com/mzahran/scalpbot/internal/domain"
	"github.com/mzahran/scalpbot/internal/indicator"
)

// squeezeRatio is the band-width contraction threshold: the current
// width must be within this multiple of the lookback minimum.
const squeezeRatio = 1.2

// SqueezeBreakout detects a Bollinger-band-width contraction followed by
// a close breaking outside the prior band edge.
type SqueezeBreakout struct {
	symbol string
}

// NewSqueezeBreakout creates a SqueezeBreakout strategy for one symbol.
func NewSqueezeBreakout(symbol string) *SqueezeBreakout {
	return &SqueezeBreakout{symbol: symbol}
}

// Kind returns the strategy identifier.
func (s *SqueezeBreakout) Kind() domain.StrategyKind { return domain.StrategySqueezeBreakout }

// DefaultParams returns the base parameter record.
func (s *SqueezeBreakout) DefaultParams() Params {
	return Params{
		"bb_period":        20,
		"bb_std":           2.0,
		"squeeze_lookback": 50,
		"atr_period":       14,
		"atr_sl_mult":      1.4,
		"atr_tp_mult":      2.0,
	}
}

// GenerateSignal fires when the band width is squeezed and the latest
// close breaks the prior upper (buy) or lower (sell) band.
func (s *SqueezeBreakout) GenerateSignal(fast, _, _ []domain.Bar, params Params) domain.SignalResult {
	lookback := params.Int("squeeze_lookback", 50)
	bbPeriod := params.Int("bb_period", 20)
	if len(fast) < lookback+2 {
		return neutral(s.Kind(), s.symbol, "not enough bars")
	}

	closes := domain.Closes(fast)
	bands := indicator.Bollinger(closes, bbPeriod, params.Get("bb_std", 2.0))
	if bands.Len() < 2 {
		return neutral(s.Kind(), s.symbol, "not enough bars")
	}

	last := bands.Len() - 1
	currWidth := bands.Width(last)
	start := bands.Len() - lookback
	if start < 0 {
		start = 0
	}
	minWidth := bands.Width(start)
	for i := start + 1; i <= last; i++ {
		if w := bands.Width(i); w < minWidth {
			minWidth = w
		}
	}
	if currWidth > minWidth*squeezeRatio {
		return neutral(s.Kind(), s.symbol, "no squeeze")
	}

	price := closes[len(closes)-1]
	prevPrice := closes[len(closes)-2]

	direction := domain.DirectionNeutral
	switch {
	case prevPrice <= bands.Upper[last-1] && price > bands.Upper[last]:
		direction = domain.DirectionBuy
	case prevPrice >= bands.Lower[last-1] && price < bands.Lower[last]:
		direction = domain.DirectionSell
	}
	if direction == domain.DirectionNeutral {
		return neutral(s.Kind(), s.symbol, "no breakout")
	}

	atr := indicator.ATR(fast, params.Int("atr_period", 14))
	atrValue := atr[len(atr)-1]
	stopLoss, takeProfit := s.CalculateSLTP(direction, price, atrValue, params)

	return domain.SignalResult{
		Direction:  direction,
		Confidence: 0.7,
		EntryPrice: price,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
		Strategy:   s.Kind(),
		Symbol:     s.symbol,
		Timeframe:  domain.TimeframeM1,
		Reasoning:  "Bollinger squeeze breakout",
		Metadata: map[string]string{
			"bb_width": fmt.Sprintf("%.5f", currWidth),
			"atr":      fmt.Sprintf("%.5f", atrValue),
		},
	}
}

// CalculateSLTP places the stop and target as ATR multiples.
func (s *SqueezeBreakout) CalculateSLTP(direction domain.Direction, entry, atr float64, params Params) (float64, float64) {
	return slTP(direction, entry, atr, params.Get("atr_sl_mult", 1.4), params.Get("atr_tp_mult", 2.0))
}
