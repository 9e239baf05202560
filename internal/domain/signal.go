package domain

import "time"

// Direction is the trade side a signal argues for. Neutral is a normal
// "no opinion" outcome, not an error.
type Direction string

const (
	DirectionBuy     Direction = "BUY"
	DirectionSell    Direction = "SELL"
	DirectionNeutral Direction = "NEUTRAL"
)

// StrategyKind is the closed enumeration of signal-generating strategies.
// Keeping this a fixed set (rather than open string keys) lets weight
// tables and parameter overrides be checked exhaustively.
type StrategyKind string

const (
	StrategyTrendCrossover  StrategyKind = "trend_crossover"
	StrategyMeanReversion   StrategyKind = "mean_reversion"
	StrategySqueezeBreakout StrategyKind = "squeeze_breakout"
	StrategyVWAPScalper     StrategyKind = "vwap_scalper"
)

// AllStrategyKinds lists every strategy kind in evaluation order.
var AllStrategyKinds = []StrategyKind{
	StrategyTrendCrossover,
	StrategyMeanReversion,
	StrategySqueezeBreakout,
	StrategyVWAPScalper,
}

// VolatilityRegime is a discrete volatility classification derived per
// evaluation. It reweights strategies and scales position size.
type VolatilityRegime string

const (
	RegimeLowVol  VolatilityRegime = "low_volatility"
	RegimeNormal  VolatilityRegime = "normal"
	RegimeHighVol VolatilityRegime = "high_volatility"
	RegimeExtreme VolatilityRegime = "extreme"
)

// SignalResult is the output of a single strategy evaluation, or of the
// engine's confluence step. A Neutral result carries zeroed price fields
// and confidence 0.
type SignalResult struct {
	ID         string            `json:"id"`
	Direction  Direction         `json:"direction"`
	Confidence float64           `json:"confidence"` // always in [0, 1]
	EntryPrice float64           `json:"entry_price"`
	StopLoss   float64           `json:"stop_loss"`
	TakeProfit float64           `json:"take_profit"`
	Strategy   StrategyKind      `json:"strategy"`
	Symbol     string            `json:"symbol"`
	Timeframe  Timeframe         `json:"timeframe"`
	Reasoning  string            `json:"reasoning"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// IsNeutral reports whether the signal carries no opinion.
func (s SignalResult) IsNeutral() bool {
	return s.Direction == DirectionNeutral
}

// StopDistance returns the absolute distance between entry and stop.
func (s SignalResult) StopDistance() float64 {
	d := s.EntryPrice - s.StopLoss
	if d < 0 {
		return -d
	}
	return d
}

// RiskDecision is the Risk Manager's verdict on a trade intent. It is
// always produced; rejection is data, not an exception.
type RiskDecision struct {
	Approved bool   `json:"approved"`
	Reason   string `json:"reason"`
}
