package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/mzahran/scalpbot/internal/domain"
	"github.com/mzahran/scalpbot/internal/engine"
)

// StrategyHandler serves runtime strategy configuration.
type StrategyHandler struct {
	engine *engine.Engine
	store  domain.StrategySettingsStore // optional
	logger *slog.Logger
}

// NewStrategyHandler creates a StrategyHandler. store may be nil when
// Postgres is not configured; updates are then runtime-only.
func NewStrategyHandler(eng *engine.Engine, store domain.StrategySettingsStore, logger *slog.Logger) *StrategyHandler {
	return &StrategyHandler{engine: eng, store: store, logger: logger}
}

// List responds with the runtime state of every strategy.
// GET /api/strategies
func (h *StrategyHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"strategies": h.engine.StrategyStatus()})
}

// UpdateRequest is the JSON body for PUT /api/strategies/{kind}. A nil
// Enabled leaves the flag unchanged; a nil Overrides leaves overrides
// unchanged, while an empty map clears them.
type UpdateRequest struct {
	Enabled   *bool              `json:"enabled,omitempty"`
	Overrides map[string]float64 `json:"overrides,omitempty"`
}

// Update changes one strategy's enable flag and parameter overrides, and
// persists the new settings when a store is configured.
// PUT /api/strategies/{kind}
func (h *StrategyHandler) Update(w http.ResponseWriter, r *http.Request) {
	kind := domain.StrategyKind(r.PathValue("kind"))
	if !validKind(kind) {
		writeError(w, http.StatusNotFound, "unknown strategy "+string(kind))
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	if req.Enabled != nil {
		h.engine.SetStrategyEnabled(kind, *req.Enabled)
	}
	if req.Overrides != nil {
		h.engine.SetStrategyOverrides(kind, req.Overrides)
	}

	if h.store != nil {
		settings := currentSettings(h.engine, kind)
		if err := h.store.Upsert(r.Context(), settings); err != nil {
			h.logger.ErrorContext(r.Context(), "persist strategy settings failed",
				slog.String("kind", string(kind)),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "settings applied but not persisted")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"strategies": h.engine.StrategyStatus()})
}

func validKind(kind domain.StrategyKind) bool {
	for _, k := range domain.AllStrategyKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// currentSettings reads one strategy's runtime state back out of the engine.
func currentSettings(eng *engine.Engine, kind domain.StrategyKind) domain.StrategySettings {
	settings := domain.StrategySettings{
		Kind:      kind,
		Enabled:   true,
		UpdatedAt: time.Now().UTC(),
	}
	for _, st := range eng.StrategyStatus() {
		if st.Kind == kind {
			settings.Enabled = st.Enabled
			settings.Overrides = st.Overrides
			break
		}
	}
	return settings
}
