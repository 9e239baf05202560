package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mzahran/scalpbot/internal/domain"
	"github.com/mzahran/scalpbot/internal/service"
)

// TradeHandler serves manual trade execution and position management. All
// execution goes through the trade service so risk checks are never skipped.
type TradeHandler struct {
	trades *service.TradeService
	logger *slog.Logger
}

// NewTradeHandler creates a TradeHandler.
func NewTradeHandler(trades *service.TradeService, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{trades: trades, logger: logger}
}

// ExecuteRequest is the JSON body for POST /api/trade/execute.
type ExecuteRequest struct {
	Symbol     string  `json:"symbol"`
	Direction  string  `json:"direction"`
	EntryPrice float64 `json:"entry_price"`
	StopLoss   float64 `json:"stop_loss"`
	TakeProfit float64 `json:"take_profit"`
}

// Execute submits a manually constructed trade through the full risk
// pipeline. The lot is always sized by the risk manager.
// POST /api/trade/execute
func (h *TradeHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var req ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	direction := domain.Direction(req.Direction)
	if direction != domain.DirectionBuy && direction != domain.DirectionSell {
		writeError(w, http.StatusBadRequest, "direction must be BUY or SELL")
		return
	}
	if req.StopLoss <= 0 || req.EntryPrice <= 0 {
		writeError(w, http.StatusBadRequest, "entry_price and stop_loss are required")
		return
	}

	sig := domain.SignalResult{
		Direction:  direction,
		EntryPrice: req.EntryPrice,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
		Symbol:     req.Symbol,
		Reasoning:  "manual execution over API",
	}

	decision, outcome, err := h.trades.ExecuteSignal(r.Context(), sig, domain.RegimeNormal)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if !decision.Approved {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"decision": decision})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"decision": decision,
		"outcome":  outcome,
	})
}

// CloseRequest is the JSON body for POST /api/positions/{id}/close. Lot zero
// closes the full position.
type CloseRequest struct {
	Lot float64 `json:"lot,omitempty"`
}

// Close closes one open position.
// POST /api/positions/{id}/close
func (h *TradeHandler) Close(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid position id")
		return
	}

	var req CloseRequest
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
			return
		}
	}

	outcome := h.trades.ClosePosition(r.Context(), id, req.Lot)
	status := http.StatusOK
	if !outcome.Success {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, map[string]any{"outcome": outcome})
}

// CloseAll closes every open position, optionally filtered by the "symbol"
// query parameter.
// POST /api/positions/close_all
func (h *TradeHandler) CloseAll(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	outcomes := h.trades.CloseAllPositions(r.Context(), symbol)
	h.logger.InfoContext(r.Context(), "close all requested",
		slog.String("symbol", symbol),
		slog.Int("closed", len(outcomes)),
	)
	writeJSON(w, http.StatusOK, map[string]any{"outcomes": outcomes})
}

// ModifyRequest is the JSON body for PATCH /api/positions/{id}.
type ModifyRequest struct {
	StopLoss   float64 `json:"stop_loss"`
	TakeProfit float64 `json:"take_profit"`
}

// Modify updates the protective stops of one open position.
// PATCH /api/positions/{id}
func (h *TradeHandler) Modify(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid position id")
		return
	}

	var req ModifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	outcome := h.trades.ModifyPosition(r.Context(), id, req.StopLoss, req.TakeProfit)
	status := http.StatusOK
	if !outcome.Success {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, map[string]any{"outcome": outcome})
}
