package strategy

import (
	"fmt"

	"github.com/mzahran/scalpbot/internal/domain"
	"github.com/mzahran/scalpbot/internal/indicator"
)

// vwapMinBars is the minimum fast-series length for a meaningful session
// VWAP deviation.
const vwapMinBars = 30

// VWAPScalper fades ATR-normalized deviations from the session VWAP,
// filtered by an RSI extreme in the same direction.
type VWAPScalper struct {
	symbol string
}

// NewVWAPScalper creates a VWAPScalper strategy for one symbol.
func NewVWAPScalper(symbol string) *VWAPScalper {
	return &VWAPScalper{symbol: symbol}
}

// Kind returns the strategy identifier.
func (s *VWAPScalper) Kind() domain.StrategyKind { return domain.StrategyVWAPScalper }

// DefaultParams returns the base parameter record.
func (s *VWAPScalper) DefaultParams() Params {
	return Params{
		"rsi_period":     7,
		"rsi_overbought": 70,
		"rsi_oversold":   30,
		"atr_period":     14,
		"atr_sl_mult":    1.2,
		"atr_tp_mult":    1.5,
		"vwap_dev_mult":  1.5,
	}
}

// GenerateSignal fires when price deviates from VWAP by more than
// vwap_dev_mult ATRs with RSI confirming the extreme.
func (s *VWAPScalper) GenerateSignal(fast, _, _ []domain.Bar, params Params) domain.SignalResult {
	if len(fast) < vwapMinBars {
		return neutral(s.Kind(), s.symbol, "not enough bars")
	}

	vwap, ok := indicator.VWAP(fast)
	if !ok {
		return neutral(s.Kind(), s.symbol, "VWAP undefined")
	}

	closes := domain.Closes(fast)
	rsi := indicator.RSI(closes, params.Int("rsi_period", 7))
	atr := indicator.ATR(fast, params.Int("atr_period", 14))
	if len(rsi) == 0 || len(atr) == 0 {
		return neutral(s.Kind(), s.symbol, "not enough bars")
	}

	price := closes[len(closes)-1]
	vwapValue := vwap[len(vwap)-1]
	atrValue := atr[len(atr)-1]
	rsiValue := rsi[len(rsi)-1]

	if atrValue <= 0 || vwapValue == 0 {
		return neutral(s.Kind(), s.symbol, "invalid ATR/VWAP")
	}

	deviation := (price - vwapValue) / atrValue
	devMult := params.Get("vwap_dev_mult", 1.5)

	direction := domain.DirectionNeutral
	switch {
	case deviation < -devMult && rsiValue < params.Get("rsi_oversold", 30):
		direction = domain.DirectionBuy
	case deviation > devMult && rsiValue > params.Get("rsi_overbought", 70):
		direction = domain.DirectionSell
	}
	if direction == domain.DirectionNeutral {
		return neutral(s.Kind(), s.symbol, "no VWAP deviation")
	}

	stopLoss, takeProfit := s.CalculateSLTP(direction, price, atrValue, params)

	return domain.SignalResult{
		Direction:  direction,
		Confidence: 0.66,
		EntryPrice: price,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
		Strategy:   s.Kind(),
		Symbol:     s.symbol,
		Timeframe:  domain.TimeframeM1,
		Reasoning:  "VWAP deviation with RSI filter",
		Metadata: map[string]string{
			"vwap":      fmt.Sprintf("%.5f", vwapValue),
			"rsi":       fmt.Sprintf("%.2f", rsiValue),
			"atr":       fmt.Sprintf("%.5f", atrValue),
			"deviation": fmt.Sprintf("%.2f", deviation),
		},
	}
}

// CalculateSLTP places the stop and target as ATR multiples.
func (s *VWAPScalper) CalculateSLTP(direction domain.Direction, entry, atr float64, params Params) (float64, float64) {
	return slTP(direction, entry, atr, params.Get("atr_sl_mult", 1.2), params.Get("atr_tp_mult", 1.5))
}
