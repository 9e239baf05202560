// Package strategy implements the four signal-generating strategies and
// the per-symbol instance registry that caches them.
package strategy

import (
	"github.com/mzahran/scalpbot/internal/domain"
)

// Strategy is the contract every signal generator implements. Bars come
// in three aligned series, fastest first; the effective parameters are
// supplied per evaluation and must not be retained or mutated.
//
// A strategy never fails: when bars are insufficient or no condition
// fires it returns a Neutral sentinel with confidence 0 and zeroed
// prices.
type Strategy interface {
	Kind() domain.StrategyKind
	GenerateSignal(fast, medium, slow []domain.Bar, params Params) domain.SignalResult
	CalculateSLTP(direction domain.Direction, entry, atr float64, params Params) (stopLoss, takeProfit float64)
	DefaultParams() Params
}

// neutral builds the "no opinion" sentinel shared by all strategies.
func neutral(kind domain.StrategyKind, symbol, reason string) domain.SignalResult {
	return domain.SignalResult{
		Direction: domain.DirectionNeutral,
		Strategy:  kind,
		Symbol:    symbol,
		Timeframe: domain.TimeframeM1,
		Reasoning: reason,
	}
}

// slTP applies the standard ATR-multiple stop/target placement used by
// every strategy: stop at slMult·atr against the position, target at
// tpMult·atr in favor.
func slTP(direction domain.Direction, entry, atr, slMult, tpMult float64) (float64, float64) {
	slDist := atr * slMult
	tpDist := atr * tpMult
	if direction == domain.DirectionBuy {
		return entry - slDist, entry + tpDist
	}
	return entry + slDist, entry - tpDist
}
