package engine

import (
	"github.com/mzahran/scalpbot/internal/domain"
	"github.com/mzahran/scalpbot/internal/indicator"
)

// emaLast returns the final EMA value for the series.
func emaLast(values []float64, period int) float64 {
	ema := indicator.EMA(values, period)
	if len(ema) == 0 {
		return 0
	}
	return ema[len(ema)-1]
}

// record appends an accepted signal to the bounded history, evicting the
// oldest entries on overflow.
func (e *Engine) record(r Record) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = append(e.history, r)
	if overflow := len(e.history) - e.cfg.HistoryLimit; overflow > 0 {
		e.history = append([]Record(nil), e.history[overflow:]...)
	}
}

// RecentSignals returns up to limit retained records, newest first.
func (e *Engine) RecentSignals(limit int) []Record {
	if limit <= 0 {
		limit = 50
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	n := len(e.history)
	if limit > n {
		limit = n
	}
	out := make([]Record, 0, limit)
	for i := n - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, e.history[i])
	}
	return out
}

// SetAutoExecute toggles the per-symbol auto-execute flag. The flag is
// consulted only by the execution loop, never by Evaluate.
func (e *Engine) SetAutoExecute(symbol string, enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.autoExec[symbol] = enabled
}

// AutoExecute reports whether auto-execution is enabled for symbol.
func (e *Engine) AutoExecute(symbol string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.autoExec[symbol]
}

// SetStrategyEnabled toggles one strategy at runtime.
func (e *Engine) SetStrategyEnabled(kind domain.StrategyKind, enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enabled[kind] = enabled
}

// SetStrategyOverrides replaces the runtime parameter overrides for one
// strategy. The stored base parameters are never touched; overrides are
// merged into a fresh effective value at each evaluation.
func (e *Engine) SetStrategyOverrides(kind domain.StrategyKind, overrides map[string]float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(overrides) == 0 {
		delete(e.overrides, kind)
		return
	}
	copied := make(map[string]float64, len(overrides))
	for k, v := range overrides {
		copied[k] = v
	}
	e.overrides[kind] = copied
}

// StrategyStatus returns the runtime state of every strategy in
// evaluation order.
func (e *Engine) StrategyStatus() []StrategyStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]StrategyStatus, 0, len(domain.AllStrategyKinds))
	for _, kind := range domain.AllStrategyKinds {
		st := StrategyStatus{Kind: kind, Enabled: e.enabled[kind]}
		if ov := e.overrides[kind]; len(ov) > 0 {
			st.Overrides = make(map[string]float64, len(ov))
			for k, v := range ov {
				st.Overrides[k] = v
			}
		}
		out = append(out, st)
	}
	return out
}

// ApplySettings hydrates strategy flags and overrides from persisted
// settings, typically at startup.
func (e *Engine) ApplySettings(settings []domain.StrategySettings) {
	for _, s := range settings {
		e.SetStrategyEnabled(s.Kind, s.Enabled)
		e.SetStrategyOverrides(s.Kind, s.Overrides)
	}
}
