package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mzahran/scalpbot/internal/engine"
)

// SignalHandler serves signal history and on-demand evaluation.
type SignalHandler struct {
	engine *engine.Engine
	logger *slog.Logger
}

// NewSignalHandler creates a SignalHandler.
func NewSignalHandler(eng *engine.Engine, logger *slog.Logger) *SignalHandler {
	return &SignalHandler{engine: eng, logger: logger}
}

// ListRecent responds with the newest accepted signals, newest first.
// GET /api/signals/recent?limit=50
func (h *SignalHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 50, 500)
	records := h.engine.RecentSignals(limit)
	if records == nil {
		records = []engine.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"signals": records})
}

// EvaluateRequest is the JSON body for POST /api/signals/evaluate.
type EvaluateRequest struct {
	Symbol string `json:"symbol"`
}

// Evaluate runs one decision cycle for a symbol and returns the outcome.
// A neutral cycle returns signal null rather than an error.
// POST /api/signals/evaluate
func (h *SignalHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	sig, regime, err := h.engine.Evaluate(r.Context(), req.Symbol)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"signal": sig,
		"regime": regime,
	})
}
