// Package server exposes the bot's HTTP and WebSocket API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mzahran/scalpbot/internal/server/handler"
	"github.com/mzahran/scalpbot/internal/server/middleware"
	"github.com/mzahran/scalpbot/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health   *handler.HealthHandler
	Account  *handler.AccountHandler
	Signals  *handler.SignalHandler
	Strategy *handler.StrategyHandler
	Trade    *handler.TradeHandler
	Bot      *handler.BotHandler
	Journal  *handler.JournalHandler
}

// Server is the headless HTTP + WebSocket API server for the scalping bot.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth) and attaches the WebSocket
// hub. Trade and account handlers may be nil in server-only mode; their
// routes are then not registered.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	if handlers.Account != nil {
		mux.HandleFunc("GET /api/account", handlers.Account.GetAccount)
		mux.HandleFunc("GET /api/positions", handlers.Account.ListPositions)
		mux.HandleFunc("GET /api/risk", handlers.Account.GetRiskStatus)
		mux.HandleFunc("POST /api/risk/resume", handlers.Account.ResumeRisk)
		mux.HandleFunc("GET /api/ticks/{symbol}", handlers.Account.GetTick)
	}

	if handlers.Signals != nil {
		mux.HandleFunc("GET /api/signals/recent", handlers.Signals.ListRecent)
		mux.HandleFunc("POST /api/signals/evaluate", handlers.Signals.Evaluate)
	}

	if handlers.Strategy != nil {
		mux.HandleFunc("GET /api/strategies", handlers.Strategy.List)
		mux.HandleFunc("PUT /api/strategies/{kind}", handlers.Strategy.Update)
	}

	if handlers.Trade != nil {
		mux.HandleFunc("POST /api/trade/execute", handlers.Trade.Execute)
		mux.HandleFunc("POST /api/positions/{id}/close", handlers.Trade.Close)
		mux.HandleFunc("POST /api/positions/close_all", handlers.Trade.CloseAll)
		mux.HandleFunc("PATCH /api/positions/{id}", handlers.Trade.Modify)
	}

	if handlers.Journal != nil {
		mux.HandleFunc("GET /api/journal", handlers.Journal.List)
		mux.HandleFunc("GET /api/journal/{key...}", handlers.Journal.Download)
	}

	if handlers.Bot != nil {
		mux.HandleFunc("GET /api/bot/status", handlers.Bot.GetStatus)
		mux.HandleFunc("POST /api/bot/arm", handlers.Bot.Arm)
		mux.HandleFunc("POST /api/bot/disarm", handlers.Bot.Disarm)
		mux.HandleFunc("POST /api/bot/pause", handlers.Bot.Pause)
		mux.HandleFunc("POST /api/bot/resume", handlers.Bot.Resume)
		mux.HandleFunc("POST /api/bot/auto_trade", handlers.Bot.SetAutoTrade)
	}

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
