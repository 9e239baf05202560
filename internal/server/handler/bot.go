package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mzahran/scalpbot/internal/service"
)

// BotHandler serves the bot's runtime switches: arming, pausing, and the
// auto-trade flag.
type BotHandler struct {
	state  *service.BotState
	logger *slog.Logger
}

// NewBotHandler creates a BotHandler.
func NewBotHandler(state *service.BotState, logger *slog.Logger) *BotHandler {
	return &BotHandler{state: state, logger: logger}
}

// GetStatus responds with a snapshot of the bot's runtime state.
// GET /api/bot/status
func (h *BotHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.state.Status())
}

// Arm enables live order submission.
// POST /api/bot/arm
func (h *BotHandler) Arm(w http.ResponseWriter, r *http.Request) {
	h.state.Arm()
	h.logger.InfoContext(r.Context(), "bot armed over API")
	writeJSON(w, http.StatusOK, h.state.Status())
}

// reasonRequest is the JSON body for disarm and pause requests.
type reasonRequest struct {
	Reason string `json:"reason,omitempty"`
}

// Disarm disables live order submission.
// POST /api/bot/disarm
func (h *BotHandler) Disarm(w http.ResponseWriter, r *http.Request) {
	req := decodeReason(r)
	if req.Reason == "" {
		req.Reason = "disarmed over API"
	}
	h.state.Disarm(req.Reason)
	h.logger.InfoContext(r.Context(), "bot disarmed over API", slog.String("reason", req.Reason))
	writeJSON(w, http.StatusOK, h.state.Status())
}

// Pause suspends signal evaluation.
// POST /api/bot/pause
func (h *BotHandler) Pause(w http.ResponseWriter, r *http.Request) {
	req := decodeReason(r)
	h.state.SetPaused(true, req.Reason)
	h.logger.InfoContext(r.Context(), "bot paused over API", slog.String("reason", req.Reason))
	writeJSON(w, http.StatusOK, h.state.Status())
}

// Resume restarts signal evaluation.
// POST /api/bot/resume
func (h *BotHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.state.SetPaused(false, "")
	h.logger.InfoContext(r.Context(), "bot resumed over API")
	writeJSON(w, http.StatusOK, h.state.Status())
}

// AutoTradeRequest is the JSON body for POST /api/bot/auto_trade.
type AutoTradeRequest struct {
	Enabled bool `json:"enabled"`
}

// SetAutoTrade toggles automatic execution of accepted signals.
// POST /api/bot/auto_trade
func (h *BotHandler) SetAutoTrade(w http.ResponseWriter, r *http.Request) {
	var req AutoTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	h.state.SetAutoTrade(req.Enabled)
	h.logger.InfoContext(r.Context(), "auto-trade toggled over API", slog.Bool("enabled", req.Enabled))
	writeJSON(w, http.StatusOK, h.state.Status())
}

func decodeReason(r *http.Request) reasonRequest {
	var req reasonRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	return req
}
