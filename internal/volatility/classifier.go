// Package volatility classifies bar series into discrete volatility
// regimes and derives per-regime strategy weightings and position-size
// multipliers.
package volatility

import (
	"github.com/mzahran/scalpbot/internal/domain"
	"github.com/mzahran/scalpbot/internal/indicator"
)

const (
	atrPeriod       = 14
	defaultLookback = 200
)

// Classifier derives volatility regimes from ATR percentile ranks. The
// zero value is ready to use.
type Classifier struct {
	// Lookback bounds the trailing ATR window used for the percentile
	// rank. Zero means the default of 200.
	Lookback int
}

// DetectRegime computes ATR(14) across bars and ranks the latest value
// against the trailing lookback window: the fraction of historical
// values strictly below the current one. Boundary ranks belong to the
// lower bucket. Insufficient ATR history is fail-safe Normal.
func (c Classifier) DetectRegime(bars []domain.Bar) domain.VolatilityRegime {
	atr := indicator.ATR(bars, atrPeriod)
	if len(atr) == 0 {
		return domain.RegimeNormal
	}

	lookback := c.Lookback
	if lookback <= 0 {
		lookback = defaultLookback
	}
	window := atr
	if len(window) > lookback {
		window = window[len(window)-lookback:]
	}

	current := atr[len(atr)-1]
	below := 0
	for _, v := range window {
		if v < current {
			below++
		}
	}
	rank := float64(below) / float64(len(window))

	switch {
	case rank < 0.25:
		return domain.RegimeLowVol
	case rank < 0.75:
		return domain.RegimeNormal
	case rank < 0.95:
		return domain.RegimeHighVol
	default:
		return domain.RegimeExtreme
	}
}

// StrategyWeights returns the relative strategy weighting for a regime.
// Weights are relative, not probabilities; they need not sum to 1.
func StrategyWeights(regime domain.VolatilityRegime) map[domain.StrategyKind]float64 {
	switch regime {
	case domain.RegimeLowVol:
		return map[domain.StrategyKind]float64{
			domain.StrategyVWAPScalper:     0.35,
			domain.StrategyMeanReversion:   0.25,
			domain.StrategySqueezeBreakout: 0.2,
			domain.StrategyTrendCrossover:  0.2,
		}
	case domain.RegimeHighVol:
		return map[domain.StrategyKind]float64{
			domain.StrategyTrendCrossover:  0.3,
			domain.StrategySqueezeBreakout: 0.3,
			domain.StrategyMeanReversion:   0.2,
			domain.StrategyVWAPScalper:     0.2,
		}
	case domain.RegimeExtreme:
		return map[domain.StrategyKind]float64{
			domain.StrategyTrendCrossover:  0.2,
			domain.StrategySqueezeBreakout: 0.2,
			domain.StrategyMeanReversion:   0.1,
			domain.StrategyVWAPScalper:     0.1,
		}
	default:
		return map[domain.StrategyKind]float64{
			domain.StrategyTrendCrossover:  0.3,
			domain.StrategySqueezeBreakout: 0.25,
			domain.StrategyMeanReversion:   0.2,
			domain.StrategyVWAPScalper:     0.25,
		}
	}
}

// PositionSizeMultiplier scales position size down as volatility rises.
func PositionSizeMultiplier(regime domain.VolatilityRegime) float64 {
	switch regime {
	case domain.RegimeHighVol:
		return 0.75
	case domain.RegimeExtreme:
		return 0.5
	default:
		return 1.0
	}
}
