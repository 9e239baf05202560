// Package risk gates trade intents against exposure, correlation,
// margin, and daily-loss constraints, and computes risk-budgeted
// position sizes with exact decimal arithmetic.
package risk

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/mzahran/scalpbot/internal/domain"
	"github.com/mzahran/scalpbot/internal/volatility"
)

// Config holds the risk limits. Percent values are whole percentages
// (1.0 means 1%).
type Config struct {
	MaxRiskPerTradePct float64
	MaxDailyLossPct    float64
	MaxOpenPositions   int
	FreeMarginMinPct   float64
	MaxLotSize         float64
	// MinLotOverrides raises the per-symbol minimum above the
	// instrument's own minimum.
	MinLotOverrides map[string]float64
	// CorrelatedPairs caps concurrent exposure across historically
	// correlated symbols: opening either side requires fewer than two
	// open positions in the paired symbol. Entries are symmetric.
	CorrelatedPairs map[string]string
}

// Manager is the risk state machine. The pause latch and the daily PnL
// accumulator are shared across symbols and guarded by one mutex; all
// reads and the daily-loss check happen under it.
type Manager struct {
	broker domain.BrokerGateway
	cfg    Config
	logger *slog.Logger

	mu           sync.Mutex
	paused       bool
	dailyPnL     decimal.Decimal
	startBalance *decimal.Decimal
}

// NewManager creates a Manager with a zero daily PnL and the pause latch
// clear.
func NewManager(broker domain.BrokerGateway, cfg Config, logger *slog.Logger) *Manager {
	return &Manager{
		broker: broker,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "risk_manager")),
	}
}

// ApproveTrade evaluates the approval rules in order, short-circuiting
// on the first failure. A rejection is data: the decision always carries
// a human-readable reason. Hitting the daily-loss limit latches the
// pause flag in addition to rejecting.
func (m *Manager) ApproveTrade(ctx context.Context, symbol string, direction domain.Direction, equity float64) domain.RiskDecision {
	if m.IsPaused() {
		return m.reject(symbol, direction, "Trading paused by risk manager")
	}

	if !m.broker.Connected() {
		return m.reject(symbol, direction, "Broker not connected")
	}

	positions, err := m.broker.OpenPositions(ctx, "")
	if err != nil {
		return m.reject(symbol, direction, "Cannot read open positions")
	}
	if len(positions) >= m.cfg.MaxOpenPositions {
		return m.reject(symbol, direction, "Max open positions reached")
	}

	if m.dailyLossBreached(equity) {
		return m.reject(symbol, direction, "Daily loss limit hit")
	}

	if !m.correlationOK(ctx, symbol) {
		return m.reject(symbol, direction, "Correlated exposure limit")
	}

	if !m.freeMarginOK(ctx) {
		return m.reject(symbol, direction, "Free margin below threshold")
	}

	return domain.RiskDecision{Approved: true, Reason: "Approved"}
}

// dailyLossBreached checks the accumulator against the equity-scaled
// limit and latches the pause flag when breached. The read-modify-write
// happens under the mutex so concurrent cycles agree on the latch.
func (m *Manager) dailyLossBreached(equity float64) bool {
	limit := decimal.NewFromFloat(equity).
		Mul(decimal.NewFromFloat(m.cfg.MaxDailyLossPct)).
		Div(decimal.NewFromInt(100)).
		Neg()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dailyPnL.LessThanOrEqual(limit) {
		m.paused = true
		m.logger.Warn("daily loss limit hit, pausing",
			slog.String("daily_pnl", m.dailyPnL.String()),
			slog.String("limit", limit.String()),
		)
		return true
	}
	return false
}

// correlationOK enforces the correlated-pair cap: fewer than two open
// positions in the paired symbol.
func (m *Manager) correlationOK(ctx context.Context, symbol string) bool {
	paired, ok := m.cfg.CorrelatedPairs[symbol]
	if !ok {
		return true
	}
	positions, err := m.broker.OpenPositions(ctx, paired)
	if err != nil {
		return false
	}
	return len(positions) < 2
}

// freeMarginOK requires free margin / used margin to meet the configured
// minimum percentage. Zero used margin passes: nothing is committed.
func (m *Manager) freeMarginOK(ctx context.Context) bool {
	snap, err := m.broker.AccountSnapshot(ctx)
	if err != nil || snap == nil {
		return false
	}
	if snap.Margin <= 0 {
		return true
	}
	return snap.FreeMargin/snap.Margin*100 >= m.cfg.FreeMarginMinPct
}

// CalculateLotSize converts the risk budget into a lot size: risk amount
// over stop distance times value-per-price-unit, scaled by the regime
// multiplier, floored to the instrument's volume step, and clamped to
// [minimum-or-override, min(instrument max, global cap)]. A non-positive
// stop distance yields zero: do not trade.
func (m *Manager) CalculateLotSize(ctx context.Context, symbol string, equity, stopDistance float64, regime domain.VolatilityRegime) float64 {
	if stopDistance <= 0 {
		return 0
	}

	constraints, err := m.broker.InstrumentConstraints(ctx, symbol)
	if err != nil || constraints == nil {
		return 0
	}
	if constraints.TickValue <= 0 || constraints.TickSize <= 0 {
		return constraints.MinLot
	}

	riskAmount := decimal.NewFromFloat(equity).
		Mul(decimal.NewFromFloat(m.cfg.MaxRiskPerTradePct)).
		Div(decimal.NewFromInt(100))

	valuePerUnit := decimal.NewFromFloat(constraints.TickValue).
		Div(decimal.NewFromFloat(constraints.TickSize))
	lot := riskAmount.Div(decimal.NewFromFloat(stopDistance).Mul(valuePerUnit))

	multiplier := decimal.NewFromFloat(volatility.PositionSizeMultiplier(regime))
	lot = lot.Mul(multiplier)

	step := decimal.NewFromFloat(constraints.LotStep)
	if step.IsPositive() {
		// Round toward zero: never risk more than budgeted.
		lot = lot.Div(step).Floor().Mul(step)
	}

	minLot := decimal.NewFromFloat(constraints.MinLot)
	if override, ok := m.cfg.MinLotOverrides[symbol]; ok {
		minLot = decimal.NewFromFloat(override)
	}
	maxLot := decimal.NewFromFloat(constraints.MaxLot)
	if globalCap := decimal.NewFromFloat(m.cfg.MaxLotSize); globalCap.IsPositive() && globalCap.LessThan(maxLot) {
		maxLot = globalCap
	}

	if lot.LessThan(minLot) {
		lot = minLot
	}
	if lot.GreaterThan(maxLot) {
		lot = maxLot
	}

	f, _ := lot.Float64()
	return f
}

// SyncFromAccount reconciles the daily PnL from the broker-reported
// balance. The first call latches the baseline; every later call
// recomputes PnL as balance minus baseline, correcting any drift from
// missed updates rather than incrementing.
func (m *Manager) SyncFromAccount(balance float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := decimal.NewFromFloat(balance)
	if m.startBalance == nil {
		m.startBalance = &b
	}
	m.dailyPnL = b.Sub(*m.startBalance)
}

// DailyPnL returns the current accumulator value.
func (m *Manager) DailyPnL() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dailyPnL
}

// IsPaused reports the sticky pause latch.
func (m *Manager) IsPaused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

// Resume clears the pause latch. Only external day-boundary or operator
// action calls this; nothing inside the manager unlatches itself.
func (m *Manager) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = false
}

// Pause latches the pause flag with a logged reason.
func (m *Manager) Pause(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = true
	m.logger.Warn("risk manager paused", slog.String("reason", reason))
}

func (m *Manager) reject(symbol string, direction domain.Direction, reason string) domain.RiskDecision {
	m.logger.Warn("trade rejected",
		slog.String("symbol", symbol),
		slog.String("direction", string(direction)),
		slog.String("reason", reason),
	)
	return domain.RiskDecision{Approved: false, Reason: reason}
}

var _ fmt.Stringer = (*Manager)(nil)

// String returns a short diagnostic description.
func (m *Manager) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fmt.Sprintf("RiskManager(paused=%t, daily_pnl=%s)", m.paused, m.dailyPnL.String())
}
