// Package engine orchestrates per-symbol signal generation: it fans bars
// out to the enabled strategies, reconciles their disagreement through a
// confluence step, applies the secondary filters, and retains a bounded
// history of accepted signals.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mzahran/scalpbot/internal/domain"
	"github.com/mzahran/scalpbot/internal/strategy"
	"github.com/mzahran/scalpbot/internal/volatility"
)

const (
	defaultMinConfluence = 0.7
	defaultHistoryLimit  = 500

	fastBarCount   = 250
	mediumBarCount = 200
	slowBarCount   = 120

	trendFastPeriod = 8
	trendSlowPeriod = 21
	trendMinBars    = 25

	// defaultWeight applies to any strategy missing from the regime
	// weight table.
	defaultWeight = 0.1
)

// Config holds the engine's tunable policy knobs.
type Config struct {
	// MinConfluence rejects decisions whose weight-normalized confidence
	// falls below this threshold. Zero means the default of 0.7.
	MinConfluence float64
	// SkipExtremeRegime skips evaluation outright in the EXTREME regime.
	SkipExtremeRegime bool
	// HistoryLimit bounds the retained signal history. Zero means 500.
	HistoryLimit int
}

// Record is one retained history entry: the accepted signal and the
// regime it was generated under.
type Record struct {
	Signal domain.SignalResult     `json:"signal"`
	Regime domain.VolatilityRegime `json:"regime"`
}

// StrategyStatus is the queryable runtime state of one strategy.
type StrategyStatus struct {
	Kind      domain.StrategyKind `json:"name"`
	Enabled   bool                `json:"enabled"`
	Overrides map[string]float64  `json:"overrides,omitempty"`
}

// Engine evaluates one symbol at a time. Strategy instances are cached
// per (kind, symbol); history and flags are guarded by a single mutex so
// evaluation cycles may be sharded by symbol.
type Engine struct {
	marketData domain.MarketData
	classifier volatility.Classifier
	registry   *strategy.Registry
	cfg        Config
	logger     *slog.Logger

	mu        sync.Mutex
	history   []Record
	autoExec  map[string]bool
	enabled   map[domain.StrategyKind]bool
	overrides map[domain.StrategyKind]map[string]float64
}

// New creates an Engine. All strategies start enabled with no overrides
// and auto-execute off for every symbol.
func New(marketData domain.MarketData, cfg Config, logger *slog.Logger) *Engine {
	if cfg.MinConfluence <= 0 {
		cfg.MinConfluence = defaultMinConfluence
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	enabled := make(map[domain.StrategyKind]bool, len(domain.AllStrategyKinds))
	for _, kind := range domain.AllStrategyKinds {
		enabled[kind] = true
	}
	return &Engine{
		marketData: marketData,
		registry:   strategy.NewRegistry(),
		cfg:        cfg,
		logger:     logger.With(slog.String("component", "signal_engine")),
		autoExec:   make(map[string]bool),
		enabled:    enabled,
		overrides:  make(map[domain.StrategyKind]map[string]float64),
	}
}

// Evaluate runs one decision cycle for symbol. It returns (nil, nil)
// whenever no signal is emitted: missing data, an extreme regime, no
// confluence, a failed filter. The regime the decision was made under is
// returned alongside the signal.
func (e *Engine) Evaluate(ctx context.Context, symbol string) (*domain.SignalResult, domain.VolatilityRegime, error) {
	fast, err := e.marketData.GetBars(ctx, symbol, domain.TimeframeM1, fastBarCount)
	if err != nil || len(fast) == 0 {
		e.logSkip(symbol, "bars missing", slog.String("timeframe", "M1"))
		return nil, domain.RegimeNormal, nil
	}
	medium, err := e.marketData.GetBars(ctx, symbol, domain.TimeframeM5, mediumBarCount)
	if err != nil || len(medium) == 0 {
		e.logSkip(symbol, "bars missing", slog.String("timeframe", "M5"))
		return nil, domain.RegimeNormal, nil
	}
	slow, err := e.marketData.GetBars(ctx, symbol, domain.TimeframeM15, slowBarCount)
	if err != nil || len(slow) == 0 {
		e.logSkip(symbol, "bars missing", slog.String("timeframe", "M15"))
		return nil, domain.RegimeNormal, nil
	}

	regime := e.classifier.DetectRegime(fast)
	if regime == domain.RegimeExtreme && e.cfg.SkipExtremeRegime {
		e.logSkip(symbol, "extreme regime")
		return nil, regime, nil
	}
	weights := volatility.StrategyWeights(regime)

	candidates := e.runStrategies(symbol, fast, medium, slow)
	if len(candidates) == 0 {
		return nil, regime, nil
	}

	decided, confidence, ok := confluence(candidates, weights)
	if !ok || confidence < e.cfg.MinConfluence {
		e.logSkip(symbol, "low confluence",
			slog.Float64("confidence", confidence),
			slog.Int("candidates", len(candidates)),
		)
		return nil, regime, nil
	}

	if !trendAligned(decided.Direction, medium) {
		e.logSkip(symbol, "trend misalignment", slog.String("direction", string(decided.Direction)))
		return nil, regime, nil
	}
	if !e.spreadOK(ctx, symbol) {
		e.logSkip(symbol, "bad spread")
		return nil, regime, nil
	}

	decided.ID = uuid.New().String()
	decided.Confidence = confidence
	decided.CreatedAt = time.Now().UTC()

	e.record(Record{Signal: decided, Regime: regime})
	e.logger.Info("signal generated",
		slog.String("symbol", symbol),
		slog.String("direction", string(decided.Direction)),
		slog.Float64("confidence", confidence),
		slog.String("regime", string(regime)),
	)
	return &decided, regime, nil
}

// runStrategies evaluates every enabled strategy with its effective
// parameters and collects the non-neutral candidates.
func (e *Engine) runStrategies(symbol string, fast, medium, slow []domain.Bar) []domain.SignalResult {
	e.mu.Lock()
	enabled := make(map[domain.StrategyKind]bool, len(e.enabled))
	for k, v := range e.enabled {
		enabled[k] = v
	}
	overrides := make(map[domain.StrategyKind]map[string]float64, len(e.overrides))
	for k, v := range e.overrides {
		overrides[k] = v
	}
	e.mu.Unlock()

	var candidates []domain.SignalResult
	for _, kind := range domain.AllStrategyKinds {
		if !enabled[kind] {
			continue
		}
		s, err := e.registry.Get(kind, symbol)
		if err != nil {
			continue
		}
		params := s.DefaultParams().Merge(overrides[kind])
		sig := s.GenerateSignal(fast, medium, slow, params)
		if !sig.IsNeutral() {
			candidates = append(candidates, sig)
		}
	}
	return candidates
}

// confluence reconciles candidate signals into one decision. A direction
// wins only with at least two supporters and strictly more than the
// opposite side; an exact tie yields no signal. The winning confidence
// is the weight-normalized average of the supporters' confidences, and
// the price fields come from the highest-confidence supporter.
func confluence(candidates []domain.SignalResult, weights map[domain.StrategyKind]float64) (domain.SignalResult, float64, bool) {
	var buy, sell []domain.SignalResult
	for _, c := range candidates {
		switch c.Direction {
		case domain.DirectionBuy:
			buy = append(buy, c)
		case domain.DirectionSell:
			sell = append(sell, c)
		}
	}

	switch {
	case len(buy) >= 2 && len(buy) > len(sell):
		best, conf := aggregate(buy, weights)
		return best, conf, true
	case len(sell) >= 2 && len(sell) > len(buy):
		best, conf := aggregate(sell, weights)
		return best, conf, true
	default:
		// Includes the exact tie with two or more supporters per side.
		return domain.SignalResult{}, 0, false
	}
}

// aggregate computes the weighted confidence and picks the best
// supporter's price fields.
func aggregate(supporters []domain.SignalResult, weights map[domain.StrategyKind]float64) (domain.SignalResult, float64) {
	var totalWeight, weightedConf float64
	best := supporters[0]
	for _, s := range supporters {
		w, ok := weights[s.Strategy]
		if !ok {
			w = defaultWeight
		}
		totalWeight += w
		weightedConf += s.Confidence * w
		if s.Confidence > best.Confidence {
			best = s
		}
	}
	if totalWeight <= 0 {
		return best, 0
	}
	return best, weightedConf / totalWeight
}

// trendAligned checks the higher-timeframe trend filter: the decision
// direction must agree with the fast/slow EMA relation on the medium
// series.
func trendAligned(direction domain.Direction, medium []domain.Bar) bool {
	if len(medium) < trendMinBars {
		return false
	}
	closes := domain.Closes(medium)
	fast := emaLast(closes, trendFastPeriod)
	slow := emaLast(closes, trendSlowPeriod)
	switch direction {
	case domain.DirectionBuy:
		return fast > slow
	case domain.DirectionSell:
		return fast < slow
	default:
		return false
	}
}

// spreadOK rejects stale or crossed quotes: the bid/ask spread must be
// strictly positive.
func (e *Engine) spreadOK(ctx context.Context, symbol string) bool {
	tick, err := e.marketData.GetTick(ctx, symbol)
	if err != nil || tick == nil {
		return false
	}
	return tick.Spread() > 0
}

func (e *Engine) logSkip(symbol, reason string, attrs ...any) {
	args := append([]any{slog.String("symbol", symbol), slog.String("reason", reason)}, attrs...)
	e.logger.Debug("signal skipped", args...)
}
