package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/mzahran/scalpbot/internal/domain"
)

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	broker domain.BrokerGateway // optional
	logger *slog.Logger
}

// NewHealthHandler creates a HealthHandler. broker may be nil in server-only
// mode; the connectivity field is then omitted.
func NewHealthHandler(broker domain.BrokerGateway, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{broker: broker, logger: logger}
}

// HealthCheck responds with a JSON status including broker connectivity.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if h.broker != nil {
		body["broker_connected"] = h.broker.Connected()
	}
	writeJSON(w, http.StatusOK, body)
}
