package strategy

import (
	"fmt"

	"github.com/mzahran/scalpbot/internal/domain"
	"github.com/mzahran/scalpbot/internal/indicator"
)

// MeanReversion signals on an RSI extreme coinciding with price at the
// recent-window low (buy) or high (sell).
type MeanReversion struct {
	symbol string
}

// NewMeanReversion creates a MeanReversion strategy for one symbol.
func NewMeanReversion(symbol string) *MeanReversion {
	return &MeanReversion{symbol: symbol}
}

// Kind returns the strategy identifier.
func (s *MeanReversion) Kind() domain.StrategyKind { return domain.StrategyMeanReversion }

// DefaultParams returns the base parameter record.
func (s *MeanReversion) DefaultParams() Params {
	return Params{
		"rsi_period":     14,
		"rsi_overbought": 70,
		"rsi_oversold":   30,
		"atr_period":     14,
		"atr_sl_mult":    1.2,
		"atr_tp_mult":    1.8,
		"lookback":       10,
	}
}

// GenerateSignal fires when RSI is past a threshold and price sits at
// the extreme of its recent window.
func (s *MeanReversion) GenerateSignal(fast, _, _ []domain.Bar, params Params) domain.SignalResult {
	lookback := params.Int("lookback", 10)
	rsiPeriod := params.Int("rsi_period", 14)
	atrPeriod := params.Int("atr_period", 14)
	if len(fast) < lookback+2 || len(fast) <= rsiPeriod || len(fast) < atrPeriod {
		return neutral(s.Kind(), s.symbol, "not enough bars")
	}

	closes := domain.Closes(fast)
	rsi := indicator.RSI(closes, rsiPeriod)
	rsiValue := rsi[len(rsi)-1]
	price := closes[len(closes)-1]

	window := closes[len(closes)-lookback:]
	lowRecent, highRecent := window[0], window[0]
	for _, v := range window {
		if v < lowRecent {
			lowRecent = v
		}
		if v > highRecent {
			highRecent = v
		}
	}

	direction := domain.DirectionNeutral
	switch {
	case rsiValue < params.Get("rsi_oversold", 30) && price <= lowRecent:
		direction = domain.DirectionBuy
	case rsiValue > params.Get("rsi_overbought", 70) && price >= highRecent:
		direction = domain.DirectionSell
	}
	if direction == domain.DirectionNeutral {
		return neutral(s.Kind(), s.symbol, "RSI not extreme")
	}

	atr := indicator.ATR(fast, atrPeriod)
	atrValue := atr[len(atr)-1]
	if atrValue <= 0 {
		return neutral(s.Kind(), s.symbol, "invalid ATR")
	}
	stopLoss, takeProfit := s.CalculateSLTP(direction, price, atrValue, params)

	return domain.SignalResult{
		Direction:  direction,
		Confidence: 0.68,
		EntryPrice: price,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
		Strategy:   s.Kind(),
		Symbol:     s.symbol,
		Timeframe:  domain.TimeframeM1,
		Reasoning:  "RSI extreme at recent high/low",
		Metadata: map[string]string{
			"rsi": fmt.Sprintf("%.2f", rsiValue),
			"atr": fmt.Sprintf("%.5f", atrValue),
		},
	}
}

// CalculateSLTP places the stop and target as ATR multiples.
func (s *MeanReversion) CalculateSLTP(direction domain.Direction, entry, atr float64, params Params) (float64, float64) {
	return slTP(direction, entry, atr, params.Get("atr_sl_mult", 1.2), params.Get("atr_tp_mult", 1.8))
}
