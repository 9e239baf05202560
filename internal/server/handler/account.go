package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/mzahran/scalpbot/internal/domain"
	"github.com/mzahran/scalpbot/internal/risk"
)

// AccountHandler serves account, position, and risk-state endpoints.
type AccountHandler struct {
	broker  domain.BrokerGateway
	riskMgr *risk.Manager
	ticks   domain.TickCache // optional
	logger  *slog.Logger
}

// NewAccountHandler creates an AccountHandler. ticks may be nil when Redis is
// not configured.
func NewAccountHandler(broker domain.BrokerGateway, riskMgr *risk.Manager, ticks domain.TickCache, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{broker: broker, riskMgr: riskMgr, ticks: ticks, logger: logger}
}

// GetAccount responds with the current account snapshot.
// GET /api/account
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.broker.AccountSnapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "account snapshot unavailable: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// ListPositions responds with all open positions, optionally filtered by the
// "symbol" query parameter.
// GET /api/positions
func (h *AccountHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	positions, err := h.broker.OpenPositions(r.Context(), symbol)
	if err != nil {
		writeError(w, http.StatusBadGateway, "open positions unavailable: "+err.Error())
		return
	}
	if positions == nil {
		positions = []domain.Position{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"positions": positions})
}

// GetRiskStatus responds with the risk manager's runtime state.
// GET /api/risk
func (h *AccountHandler) GetRiskStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"daily_pnl": h.riskMgr.DailyPnL(),
		"paused":    h.riskMgr.IsPaused(),
	})
}

// ResumeRisk clears a latched risk pause (e.g. after a daily-loss breach).
// POST /api/risk/resume
func (h *AccountHandler) ResumeRisk(w http.ResponseWriter, r *http.Request) {
	h.riskMgr.Resume()
	h.logger.InfoContext(r.Context(), "risk pause cleared over API")
	writeJSON(w, http.StatusOK, map[string]any{"paused": false})
}

// GetTick responds with the latest cached quote for a symbol.
// GET /api/ticks/{symbol}
func (h *AccountHandler) GetTick(w http.ResponseWriter, r *http.Request) {
	if h.ticks == nil {
		writeError(w, http.StatusNotImplemented, "tick cache not configured")
		return
	}

	symbol := r.PathValue("symbol")
	tick, err := h.ticks.GetTick(r.Context(), symbol)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no quote cached for "+symbol)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"symbol": tick.Symbol,
		"bid":    tick.Bid,
		"ask":    tick.Ask,
		"spread": tick.Spread(),
		"time":   tick.Time,
	})
}
